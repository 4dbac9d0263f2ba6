package handlers

import (
	"net/http"
	"strings"

	applog "aloniva/internal/log"
	"aloniva/internal/settings"
	"aloniva/models"
)

type preferencesRequest struct {
	Theme       *string `json:"theme"`
	LastFormula *string `json:"lastFormulaId"`
}

type preferencesResponse struct {
	Theme       string `json:"theme"`
	LastFormula string `json:"lastFormulaId"`
}

// Preferences reads and updates the workspace preferences of the signed-in
// user. Theme changes are also written to the user's account.
func Preferences(w http.ResponseWriter, r *http.Request) {
	prefs := preferenceStore()
	if prefs == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "preferences not available")
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var payload preferencesRequest
		if err := decodeJSON(r, &payload); err != nil {
			applog.Debug(r.Context(), "failed to decode preferences payload", "error", err)
			writeJSONError(w, http.StatusBadRequest, "invalid preferences payload")
			return
		}
		if payload.Theme != nil {
			value := strings.ToLower(strings.TrimSpace(*payload.Theme))
			if !models.ValidTheme(value) {
				applog.Debug(r.Context(), "received invalid theme selection", "value", value)
				writeJSONError(w, http.StatusBadRequest, "invalid theme selection")
				return
			}
			if err := persistTheme(r, value); err != nil {
				applog.Error(r.Context(), "failed to persist user preferences", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "failed to save preferences")
				return
			}
			settings.SetTheme(r.Context(), prefs, value)
		}
		if payload.LastFormula != nil {
			settings.SetLastFormula(r.Context(), prefs, *payload.LastFormula)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, preferencesResponse{
		Theme:       settings.Theme(r.Context(), prefs),
		LastFormula: settings.LastFormula(r.Context(), prefs),
	})
}

func persistTheme(r *http.Request, theme string) error {
	userID, ok := currentUserID(r)
	if database == nil || !ok {
		applog.Debug(r.Context(), "database not configured; skipping preference persistence")
		return nil
	}
	applog.Debug(r.Context(), "updating user preferences", "userID", userID, "theme", theme)
	return database.WithContext(r.Context()).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("theme", theme).Error
}
