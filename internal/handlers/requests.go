package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

type createRequestBody struct {
	ComponentID string    `json:"component_id"`
	Quantity    int       `json:"quantity"`
	DueDate     time.Time `json:"due_date"`
}

// CreateRequest submits a borrow request for the signed-in student.
func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ComponentID == "" {
		http.Error(w, "Component id is required", http.StatusBadRequest)
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}

	component := h.Sync.GetComponent(r.Context(), body.ComponentID)
	if component == nil {
		fail(w, http.StatusNotFound, "Component not found")
		return
	}

	req := h.Sync.SaveRequest(r.Context(), models.BorrowRequest{
		StudentID:     u.ID,
		ComponentID:   component.ID,
		ComponentName: component.Name,
		Quantity:      body.Quantity,
		Status:        models.RequestPending,
		DueDate:       body.DueDate,
		CreatedAt:     time.Now().UTC(),
	})

	if h.Hub != nil {
		h.Hub.Publish(r.Context(), services.Event{
			Type:    "request",
			Title:   "New borrow request",
			Message: u.Name + " requested " + component.Name,
		})
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Request submitted", Data: req})
}

// ListRequests returns the caller's requests, or all of them for admins.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	if u.Role == models.RoleAdmin {
		writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.ListRequests(r.Context())})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: h.Sync.ListRequestsByStudent(r.Context(), u.ID)})
}

type decideRequestBody struct {
	ID      string `json:"id"`
	Approve bool   `json:"approve"`
}

// DecideRequest approves or rejects a pending request (admin). Approval
// takes the requested quantity out of the component's availability.
func (h *Handlers) DecideRequest(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var body decideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := h.Sync.GetRequest(r.Context(), body.ID)
	if req == nil {
		fail(w, http.StatusNotFound, "Request not found")
		return
	}
	if req.Status != models.RequestPending {
		fail(w, http.StatusConflict, "Request has already been decided")
		return
	}

	if body.Approve {
		component := h.Sync.GetComponent(r.Context(), req.ComponentID)
		if component == nil {
			fail(w, http.StatusNotFound, "Component no longer exists")
			return
		}
		if component.AvailableQuantity < req.Quantity {
			fail(w, http.StatusConflict, "Not enough units available")
			return
		}
		component.AvailableQuantity -= req.Quantity
		h.Sync.SaveComponent(r.Context(), *component)
		req.Status = models.RequestApproved
	} else {
		req.Status = models.RequestRejected
	}
	saved := h.Sync.SaveRequest(r.Context(), *req)

	h.notifyDecision(r, saved)
	h.publishInventory(r)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Request " + saved.Status, Data: saved})
}

type returnRequestBody struct {
	ID string `json:"id"`
}

// ReturnRequest marks an approved loan as returned and puts the units back,
// clamped so availability never exceeds the total.
func (h *Handlers) ReturnRequest(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var body returnRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := h.Sync.GetRequest(r.Context(), body.ID)
	if req == nil {
		fail(w, http.StatusNotFound, "Request not found")
		return
	}
	if req.Status != models.RequestApproved {
		fail(w, http.StatusConflict, "Only approved requests can be returned")
		return
	}

	if component := h.Sync.GetComponent(r.Context(), req.ComponentID); component != nil {
		component.AvailableQuantity += req.Quantity
		if component.AvailableQuantity > component.TotalQuantity {
			component.AvailableQuantity = component.TotalQuantity
		}
		h.Sync.SaveComponent(r.Context(), *component)
	}

	req.Status = models.RequestReturned
	saved := h.Sync.SaveRequest(r.Context(), *req)

	h.notifyDecision(r, saved)
	h.publishInventory(r)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Request returned", Data: saved})
}

func (h *Handlers) notifyDecision(r *http.Request, req models.BorrowRequest) {
	var title, message string
	switch req.Status {
	case models.RequestApproved:
		title = "Request approved"
		message = "Your request for " + req.ComponentName + " has been approved."
	case models.RequestRejected:
		title = "Request rejected"
		message = "Your request for " + req.ComponentName + " has been rejected."
	case models.RequestReturned:
		title = "Return recorded"
		message = "Your return of " + req.ComponentName + " has been recorded."
	default:
		return
	}

	n := h.Sync.SaveNotification(r.Context(), models.Notification{
		UserID:  req.StudentID,
		Title:   title,
		Message: message,
		Type:    "request",
	})
	if h.Hub != nil {
		h.Hub.Publish(r.Context(), services.Event{
			Type:    "notification",
			UserID:  req.StudentID,
			Title:   n.Title,
			Message: n.Message,
		})
	}
}
