package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"echo-viewer/internal/auth"
	"echo-viewer/internal/database"
)

// PasswordRequest is the body of setup and login requests.
type PasswordRequest struct {
	Password string `json:"password"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // Seconds until session expires
}

// AuthStatus reports whether auth is enabled and set up.
func (h *Handlers) AuthStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.auth.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, status)
}

// Setup sets the initial password and logs the caller in.
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.auth.Setup(r.Context(), req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	setSessionCookie(w, session)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		Message:   "Password configured successfully",
		ExpiresIn: int(h.auth.SessionDuration().Seconds()),
	})
}

// Login authenticates with password
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	setSessionCookie(w, session)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		ExpiresIn: int(h.auth.SessionDuration().Seconds()),
	})
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	// Best-effort session cleanup; logout always clears the cookie.
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		writeFailed(r, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

func setSessionCookie(w http.ResponseWriter, session *database.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
