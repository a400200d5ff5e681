package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

// SessionTokenHeader carries the client's session marker token.
const SessionTokenHeader = "X-Session-Token"

// Handlers holds every service the HTTP layer needs. One instance is built
// in main and wired into the router; there are no package-level service
// globals.
type Handlers struct {
	Auth   *services.AuthService
	Sync   *services.SyncService
	Hub    *services.EventHub
	Images *services.CloudinaryService // nil when Cloudinary is not configured
}

func New(auth *services.AuthService, sync *services.SyncService, hub *services.EventHub, images *services.CloudinaryService) *Handlers {
	return &Handlers{Auth: auth, Sync: sync, Hub: hub, Images: images}
}

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func (h *Handlers) sessionToken(r *http.Request) string {
	if token := r.Header.Get(SessionTokenHeader); token != "" {
		return token
	}
	// WebSocket clients can't set custom headers from the browser.
	return r.URL.Query().Get("token")
}

// currentUser resolves the caller from the session marker.
func (h *Handlers) currentUser(r *http.Request) (*models.User, bool) {
	return h.Auth.Current(r.Context(), h.sessionToken(r))
}

// requireAdmin resolves the caller and rejects non-admins. Returns nil after
// writing the response when the check fails.
func (h *Handlers) requireAdmin(w http.ResponseWriter, r *http.Request) *models.User {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return nil
	}
	if u.Role != models.RoleAdmin {
		fail(w, http.StatusForbidden, "Admin access required")
		return nil
	}
	return u
}
