package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/robolab-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux, h *handlers.Handlers) {
	// Auth
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/logout", h.Logout)
	r.Get("/api/auth/me", h.Me)

	// Inventory
	r.Get("/api/components", h.ListComponents)
	r.Post("/api/components", h.CreateComponent)
	r.Put("/api/components", h.UpdateComponent)
	r.Delete("/api/components", h.DeleteComponent)
	r.Post("/api/components/image", h.UploadComponentImage)

	// Borrow requests
	r.Post("/api/requests", h.CreateRequest)
	r.Get("/api/requests", h.ListRequests)
	r.Put("/api/requests/decide", h.DecideRequest)
	r.Put("/api/requests/return", h.ReturnRequest)

	// Notifications
	r.Get("/api/notifications", h.ListNotifications)
	r.Put("/api/notifications/read", h.MarkNotificationRead)

	// Admin
	r.Get("/api/admin/users", h.GetUsers)
	r.Put("/api/admin/users", h.UpdateUser)
	r.Get("/api/admin/sessions", h.GetSessions)
	r.Get("/api/admin/sessions/export", h.ExportSessions)
	r.Get("/api/admin/stats", h.GetStats)
	r.Post("/api/admin/resync", h.Resync)
	r.Post("/api/admin/connectivity", h.SetConnectivity)

	// WebSocket event stream
	r.Get("/ws/events", h.Events)
}
