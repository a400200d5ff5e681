package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

// GetUsers lists all registered users (admin).
func (h *Handlers) GetUsers(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.ListUsers(r.Context())})
}

// UpdateUser edits a user record (admin).
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if u.ID == "" {
		http.Error(w, "User id is required", http.StatusBadRequest)
		return
	}
	if h.Sync.GetUserByID(r.Context(), u.ID) == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}

	saved := h.Sync.SaveUser(r.Context(), u)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "User updated", Data: saved})
}

// GetSessions lists login sessions for the audit view (admin).
func (h *Handlers) GetSessions(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.ListSessions(r.Context())})
}

// ExportSessions downloads the login-session audit report as CSV (admin).
func (h *Handlers) ExportSessions(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	csv := services.ExportSessionsCSV(h.Sync.ListSessions(r.Context()))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="login-sessions.csv"`)
	w.Write([]byte(csv))
}

// GetStats returns system totals computed from the local snapshot (admin).
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.GetSystemStats(r.Context())})
}

// Resync pulls a fresh snapshot from the remote store on demand (admin).
// Failure is reported in the envelope, never thrown.
func (h *Handlers) Resync(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	if err := h.Sync.ResyncFromRemote(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, Response{Success: false, Message: "Resync failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Local snapshot resynced"})
}

type connectivityBody struct {
	Online bool `json:"online"`
}

// SetConnectivity records a connectivity transition (admin/host signal).
// Coming back online triggers one best-effort resync.
func (h *Handlers) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var body connectivityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.Sync.SetOnline(r.Context(), body.Online)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]bool{
		"online":         h.Sync.Online(),
		"remote_enabled": h.Sync.RemoteEnabled(),
	}})
}
