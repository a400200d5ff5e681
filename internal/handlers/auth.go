package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/robolab-backend/internal/services"
	"github.com/AnshRaj112/robolab-backend/pkg/clientip"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authData struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// Register handles student self-registration.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Name, email, and password are required", http.StatusBadRequest)
		return
	}

	result, ok := h.Auth.Register(r.Context(), req, clientip.RealClientIP(r), r.UserAgent())
	if !ok {
		fail(w, http.StatusConflict, "An account with this email already exists")
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Account created",
		Data:    authData{Token: result.Token, User: result.User},
	})
}

// Login handles sign-in for students and admins.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	result, ok := h.Auth.Login(r.Context(), req.Email, req.Password, clientip.RealClientIP(r), r.UserAgent())
	if !ok {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Login successful",
		Data:    authData{Token: result.Token, User: result.User},
	})
}

// Logout closes the caller's sessions and clears the marker.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.Logout(r.Context(), h.sessionToken(r)) {
		fail(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out"})
}

// Me restores the session from a persisted marker.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Auth.Restore(r.Context(), h.sessionToken(r))
	if !ok {
		fail(w, http.StatusUnauthorized, "Session expired")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: u})
}
