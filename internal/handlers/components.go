package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

// ListComponents returns the inventory. Requires a signed-in user.
func (h *Handlers) ListComponents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(r); !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.ListComponents(r.Context())})
}

// CreateComponent adds a component to the inventory (admin).
func (h *Handlers) CreateComponent(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var c models.Component
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.Name == "" || c.TotalQuantity < 0 {
		http.Error(w, "Name and a non-negative total quantity are required", http.StatusBadRequest)
		return
	}
	if c.AvailableQuantity == 0 {
		c.AvailableQuantity = c.TotalQuantity
	}
	if c.AvailableQuantity < 0 || c.AvailableQuantity > c.TotalQuantity {
		http.Error(w, "Available quantity must be between 0 and the total quantity", http.StatusBadRequest)
		return
	}

	saved := h.Sync.SaveComponent(r.Context(), c)
	h.publishInventory(r)
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Component created", Data: saved})
}

// UpdateComponent edits an existing component (admin).
func (h *Handlers) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var c models.Component
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.ID == "" {
		http.Error(w, "Component id is required", http.StatusBadRequest)
		return
	}
	if h.Sync.GetComponent(r.Context(), c.ID) == nil {
		fail(w, http.StatusNotFound, "Component not found")
		return
	}
	if c.AvailableQuantity < 0 || c.AvailableQuantity > c.TotalQuantity {
		http.Error(w, "Available quantity must be between 0 and the total quantity", http.StatusBadRequest)
		return
	}

	saved := h.Sync.SaveComponent(r.Context(), c)
	h.publishInventory(r)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Component updated", Data: saved})
}

// DeleteComponent removes a component from the inventory (admin).
func (h *Handlers) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Component id is required", http.StatusBadRequest)
		return
	}

	h.Sync.DeleteComponent(r.Context(), id)
	h.publishInventory(r)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Component deleted"})
}

// UploadComponentImage attaches a photo to a component (admin).
func (h *Handlers) UploadComponentImage(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	if h.Images == nil {
		fail(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		http.Error(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}
	_, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided: "+err.Error(), http.StatusBadRequest)
		return
	}

	url, err := h.Images.UploadComponentImage(r.Context(), fileHeader)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	if componentID := r.FormValue("component_id"); componentID != "" {
		if c := h.Sync.GetComponent(r.Context(), componentID); c != nil {
			c.ImageURL = url
			h.Sync.SaveComponent(r.Context(), *c)
			h.publishInventory(r)
		}
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Image uploaded", Data: map[string]string{"url": url}})
}

// publishInventory pushes the refreshed inventory snapshot to connected
// clients. Best-effort.
func (h *Handlers) publishInventory(r *http.Request) {
	if h.Hub == nil {
		return
	}
	h.Hub.Publish(r.Context(), services.Event{
		Type:    "inventory",
		Payload: h.Sync.ListComponents(r.Context()),
	})
}
