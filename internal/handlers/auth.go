package handlers

import (
	"net/http"

	"jobtrack/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and sets the session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.parseJSONRequest(r, &req); err != nil {
		h.sendAppError(w, err, "Failed to parse login request")
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.sendAppError(w, err, "Login failed")
		return
	}

	http.SetCookie(w, h.auth.SessionCookie(token))
	h.sendJSONResponse(w, map[string]string{"status": "logged_in"})
}

// Logout clears the session cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedSessionCookie())
	h.sendJSONResponse(w, map[string]string{"status": "logged_out"})
}
