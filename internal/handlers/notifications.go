package handlers

import (
	"encoding/json"
	"net/http"
)

// ListNotifications returns the caller's notifications, newest first when
// served from the remote store.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.NotificationsForUser(r.Context(), u.ID)})
}

type markReadBody struct {
	ID string `json:"id"`
}

// MarkNotificationRead flips the read flag on one of the caller's
// notifications.
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	var body markReadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	owned := false
	for _, n := range h.Sync.NotificationsForUser(r.Context(), u.ID) {
		if n.ID == body.ID {
			owned = true
			break
		}
	}
	if !owned {
		fail(w, http.StatusNotFound, "Notification not found")
		return
	}

	h.Sync.MarkNotificationRead(r.Context(), body.ID)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Notification marked read"})
}
