package handlers

import (
	"errors"
	"net/http"
	"strings"

	applog "aloniva/internal/log"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirmPassword"`
}

type accountResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login verifies staff credentials and opens a session.
func Login(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling login request", "method", r.Method)

	if r.Method != http.MethodPost {
		applog.Debug(r.Context(), "method not allowed for login", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var payload credentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(r.Context(), "failed to decode login payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	email := strings.TrimSpace(payload.Email)
	if email == "" || payload.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := authenticate(r, email, payload.Password)
	if err != nil {
		applog.Debug(r.Context(), "authentication failed", "email", strings.ToLower(email))
		if errors.Is(err, errInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "Invalid email or password. Please try again.")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "We were unable to sign you in. Please try again.")
		return
	}

	applog.Info(r.Context(), "staff signed in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, accountResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}
