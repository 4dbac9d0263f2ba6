package handlers

import (
	"net/http"
	"strings"

	applog "aloniva/internal/log"
)

// Signup creates a staff account and signs it in.
func Signup(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling signup request", "method", r.Method)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var payload credentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid signup payload")
		return
	}

	email := strings.TrimSpace(payload.Email)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		writeJSONError(w, http.StatusBadRequest, "Please provide a valid email address.")
		return
	case len(payload.Password) < 8:
		writeJSONError(w, http.StatusBadRequest, "Password must be at least 8 characters long.")
		return
	case payload.Password != payload.Confirm:
		writeJSONError(w, http.StatusBadRequest, "Passwords do not match.")
		return
	}

	if _, err := findUserByEmail(r, email); err == nil {
		applog.Debug(r.Context(), "signup email already registered", "email", strings.ToLower(email))
		writeJSONError(w, http.StatusConflict, "An account with that email already exists.")
		return
	}

	user, err := createUser(r, email, payload.Name, payload.Password)
	if err != nil {
		applog.Error(r.Context(), "failed to create user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "We were unable to create your account. Please try again.")
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Account created, but we could not sign you in.")
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}
