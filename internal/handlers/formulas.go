package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/internal/settings"
	"aloniva/internal/store"
	"aloniva/models"
)

const manualSaveNote = "Manual save"

var nowFunc = time.Now

type evaluationResponse struct {
	Formula  models.Formula   `json:"formula"`
	Summary  formula.Summary  `json:"summary"`
	Warnings []models.Warning `json:"warnings"`
	Blocking bool             `json:"blocking"`
}

type savedFormulaResponse struct {
	evaluationResponse
	Version models.Version `json:"version"`
}

type formulaListEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	ProductType string     `json:"productType"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Total       float64    `json:"total"`
	Balanced    bool       `json:"isBalanced"`
}

type versionRequest struct {
	Note string `json:"note"`
}

func evaluate(f models.Formula, idx catalog.Index) evaluationResponse {
	projected := formula.ApplyBatchGrams(f)
	warnings := formula.Validate(projected, idx)
	return evaluationResponse{
		Formula:  projected,
		Summary:  formula.Summarize(projected, idx, calculatorOptions()),
		Warnings: warnings,
		Blocking: formula.HasBlocking(warnings),
	}
}

// FormulaResource routes the formula builder API under /app/api/formulas.
func FormulaResource(w http.ResponseWriter, r *http.Request) {
	if formulas == nil {
		applog.Debug(r.Context(), "formula request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/app/api/formulas"), "/")
	segments := strings.Split(path, "/")

	idx, err := ingredientIndex(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to load ingredient library", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			listFormulas(w, r)
		case http.MethodPost:
			saveFormula(w, r, idx, "")
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "evaluate":
		requireMethod(w, r, http.MethodPost, func() { evaluateFormula(w, r, idx) })
	case path == "import":
		requireMethod(w, r, http.MethodPost, func() { importFormula(w, r, idx) })
	case path == "new":
		requireMethod(w, r, http.MethodPost, func() { writeJSON(w, http.StatusOK, evaluate(formula.NewFormula(), idx)) })
	case len(segments) == 2 && segments[0] == "from-template":
		requireMethod(w, r, http.MethodPost, func() { formulaFromTemplate(w, r, idx, segments[1]) })
	case len(segments) == 1:
		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			showFormula(w, r, idx, id)
		case http.MethodPut:
			saveFormula(w, r, idx, id)
		case http.MethodDelete:
			deleteFormula(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(segments) >= 2 && segments[1] == "phases":
		editFormula(w, r, idx, segments)
	case len(segments) == 2 && segments[1] == "clone":
		requireMethod(w, r, http.MethodPost, func() { cloneFormula(w, r, idx, segments[0]) })
	case len(segments) == 2 && segments[1] == "versions":
		switch r.Method {
		case http.MethodGet:
			listVersions(w, r, segments[0])
		case http.MethodPost:
			snapshotFormula(w, r, segments[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(segments) == 2 && segments[1] == "export":
		requireMethod(w, r, http.MethodGet, func() { exportFormula(w, r, idx, segments[0]) })
	case len(segments) == 2 && segments[1] == "batch":
		requireMethod(w, r, http.MethodPost, func() { batchReportHandler(w, r, idx, segments[0]) })
	default:
		http.NotFound(w, r)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string, next func()) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	next()
}

func listFormulas(w http.ResponseWriter, r *http.Request) {
	list, err := formulas.List(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to list formulas", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formulas")
		return
	}

	entries := make([]formulaListEntry, 0, len(list))
	for _, f := range list {
		totals := formula.CalcTotals(f)
		entries = append(entries, formulaListEntry{
			ID:          f.ID,
			Name:        f.Name,
			Version:     f.Version,
			ProductType: f.ProductType,
			UpdatedAt:   f.UpdatedAt,
			Total:       totals.Total,
			Balanced:    totals.IsBalanced,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func showFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index, id string) {
	f, ok := loadFormula(w, r, id)
	if !ok {
		return
	}
	rememberFormula(r, f.ID)
	writeJSON(w, http.StatusOK, evaluate(f, idx))
}

func loadFormula(w http.ResponseWriter, r *http.Request, id string) (models.Formula, bool) {
	f, err := formulas.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrFormulaNotFound) {
			writeJSONError(w, http.StatusNotFound, "formula not found")
			return models.Formula{}, false
		}
		applog.Error(r.Context(), "failed to load formula", "error", err, "formula_id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return models.Formula{}, false
	}
	return f, true
}

func rememberFormula(r *http.Request, id string) {
	if prefs := preferenceStore(); prefs != nil {
		settings.SetLastFormula(r.Context(), prefs, id)
	}
}

// decodeFormula reads a working copy leniently: numeric fields sent as
// strings are parsed and garbage becomes zero. The bool reports whether the
// body carried its own id.
func decodeFormula(r *http.Request) (models.Formula, bool, error) {
	if r.Body == nil {
		return models.Formula{}, false, errors.New("empty request body")
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return models.Formula{}, false, err
	}
	return parseFormulaDocument(data)
}

func parseFormulaDocument(data []byte) (f models.Formula, hasID bool, err error) {
	var head struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return models.Formula{}, false, err
	}
	if s, ok := head.ID.(string); ok && strings.TrimSpace(s) != "" {
		hasID = true
	}
	f, err = formula.ParseJSON(data, "")
	return f, hasID, err
}

// saveFormula projects grams, stores the document and appends a version.
func saveFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index, id string) {
	ctx := r.Context()
	payload, hasID, err := decodeFormula(r)
	if err != nil {
		applog.Debug(ctx, "failed to decode formula payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid formula payload")
		return
	}
	if id != "" {
		if hasID && payload.ID != id {
			writeJSONError(w, http.StatusBadRequest, "formula id does not match the request path")
			return
		}
		payload.ID = id
	}
	if len(payload.Phases) == 0 {
		writeJSONError(w, http.StatusBadRequest, "formula must contain at least one phase")
		return
	}

	note := strings.TrimSpace(r.URL.Query().Get("note"))
	if note == "" {
		note = manualSaveNote
	}

	saved, err := formulas.Save(ctx, formula.ApplyBatchGrams(payload))
	if err != nil {
		applog.Error(ctx, "failed to save formula", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to save formula")
		return
	}
	ctx = applog.ContextWith(ctx, "formula_id", saved.ID)
	version, err := formulas.SaveVersion(ctx, saved, note)
	if err != nil {
		applog.Error(ctx, "failed to record formula version", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "formula saved but version history failed")
		return
	}
	rememberFormula(r, saved.ID)
	applog.Info(ctx, "formula saved", "version_id", version.VersionID)

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, savedFormulaResponse{evaluationResponse: evaluate(saved, idx), Version: version})
}

func deleteFormula(w http.ResponseWriter, r *http.Request, id string) {
	if err := formulas.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrFormulaNotFound) {
			writeJSONError(w, http.StatusNotFound, "formula not found")
			return
		}
		applog.Error(r.Context(), "failed to delete formula", "error", err, "formula_id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete formula")
		return
	}
	if prefs := preferenceStore(); prefs != nil && settings.LastFormula(r.Context(), prefs) == id {
		settings.SetLastFormula(r.Context(), prefs, "")
	}
	w.WriteHeader(http.StatusNoContent)
}

func evaluateFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index) {
	payload, _, err := decodeFormula(r)
	if err != nil {
		applog.Debug(r.Context(), "failed to decode formula payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid formula payload")
		return
	}
	writeJSON(w, http.StatusOK, evaluate(payload, idx))
}

func formulaFromTemplate(w http.ResponseWriter, r *http.Request, idx catalog.Index, templateID string) {
	t, ok := formula.TemplateByID(templateID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, evaluate(t.Formula(idx), idx))
}

func cloneFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index, id string) {
	f, ok := loadFormula(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, evaluate(formula.CloneAs(f), idx))
}

func listVersions(w http.ResponseWriter, r *http.Request, id string) {
	versions, err := formulas.ListVersions(r.Context(), id)
	if err != nil {
		applog.Error(r.Context(), "failed to list versions", "error", err, "formula_id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to load versions")
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func snapshotFormula(w http.ResponseWriter, r *http.Request, id string) {
	var payload versionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid version payload")
			return
		}
	}
	f, ok := loadFormula(w, r, id)
	if !ok {
		return
	}
	version, err := formulas.SaveVersion(r.Context(), f, strings.TrimSpace(payload.Note))
	if err != nil {
		applog.Error(r.Context(), "failed to save version", "error", err, "formula_id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to save version")
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

// VersionResource restores snapshots under /app/api/versions. The restored
// document is returned as an unsaved working copy.
func VersionResource(w http.ResponseWriter, r *http.Request) {
	if formulas == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/app/api/versions"), "/")
	versionID, action, found := strings.Cut(path, "/")
	if !found || action != "restore" || versionID == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	restored, err := formulas.RestoreVersion(r.Context(), versionID)
	if err != nil {
		if errors.Is(err, store.ErrVersionNotFound) {
			writeJSONError(w, http.StatusNotFound, "version not found")
			return
		}
		applog.Error(r.Context(), "failed to restore version", "error", err, "version_id", versionID)
		writeJSONError(w, http.StatusInternalServerError, "unable to restore version")
		return
	}

	idx, err := ingredientIndex(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to load ingredient library", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}
	writeJSON(w, http.StatusOK, evaluate(restored, idx))
}

// Templates lists the built-in formula templates.
func Templates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, formula.Templates())
}
