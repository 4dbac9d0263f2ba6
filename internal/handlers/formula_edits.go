package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/models"
)

type formulaEditResponse struct {
	evaluationResponse
	CreatedID string `json:"createdId,omitempty"`
}

// formulaEdit holds the raw fields of an edit body so that absent fields can
// be told apart from explicit nulls.
type formulaEdit map[string]json.RawMessage

func (e formulaEdit) has(key string) bool {
	_, ok := e[key]
	return ok
}

func (e formulaEdit) text(key string) (string, bool) {
	raw, ok := e[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// number coerces the field leniently; nil means absent or null.
func (e formulaEdit) number(key string) *float64 {
	raw, ok := e[key]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil
	}
	return models.Float(catalog.ToFloat(v))
}

// editFormula applies one phase or item edit under
// /app/api/formulas/{id}/phases[/{phaseId}[/items[/{itemId}]]]. The edit runs
// against the working copy posted as "formula", or the stored document when
// none is sent, and the result is returned unsaved.
func editFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index, segments []string) {
	ctx := r.Context()
	id := segments[0]
	if len(segments) > 5 || (len(segments) >= 4 && segments[3] != "items") {
		http.NotFound(w, r)
		return
	}

	edit := formulaEdit{}
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid edit payload")
			return
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &edit); err != nil {
				applog.Debug(ctx, "failed to decode formula edit", "error", err)
				writeJSONError(w, http.StatusBadRequest, "invalid edit payload")
				return
			}
		}
	}

	f, ok := workingCopy(w, r, edit, id)
	if !ok {
		return
	}

	var (
		out       models.Formula
		createdID string
		err       error
	)
	switch {
	case len(segments) == 2 && r.Method == http.MethodPost:
		out, createdID = formula.AddPhase(f)
	case len(segments) == 3 && r.Method == http.MethodPatch:
		out, err = updatePhase(f, segments[2], edit)
	case len(segments) == 3 && r.Method == http.MethodDelete:
		out, err = formula.RemovePhase(f, segments[2])
	case len(segments) == 4 && r.Method == http.MethodPost:
		ingredientID, _ := edit.text("ingredientId")
		out, createdID, err = formula.AddItem(f, idx, segments[2], strings.TrimSpace(ingredientID))
	case len(segments) == 5 && r.Method == http.MethodPatch:
		out, err = updateItem(f, idx, segments[2], segments[4], edit)
	case len(segments) == 5 && r.Method == http.MethodDelete:
		out, err = formula.RemoveItem(f, segments[2], segments[4])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch {
	case errors.Is(err, formula.ErrPhaseNotFound):
		writeJSONError(w, http.StatusNotFound, "phase not found")
		return
	case errors.Is(err, formula.ErrItemNotFound):
		writeJSONError(w, http.StatusNotFound, "item not found")
		return
	case errors.Is(err, formula.ErrLastPhase):
		writeJSONError(w, http.StatusConflict, "a formula keeps at least one phase")
		return
	case err != nil:
		applog.Error(ctx, "failed to edit formula", "error", err, "formula_id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to edit formula")
		return
	}

	applog.Debug(ctx, "formula edited", "formula_id", id, "method", r.Method, "path", strings.Join(segments[1:], "/"))
	writeJSON(w, http.StatusOK, formulaEditResponse{evaluationResponse: evaluate(out, idx), CreatedID: createdID})
}

func workingCopy(w http.ResponseWriter, r *http.Request, edit formulaEdit, id string) (models.Formula, bool) {
	raw, ok := edit["formula"]
	if !ok {
		return loadFormula(w, r, id)
	}
	f, hasID, err := parseFormulaDocument(raw)
	if err != nil {
		applog.Debug(r.Context(), "failed to decode working copy", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid formula payload")
		return models.Formula{}, false
	}
	if hasID && f.ID != id {
		writeJSONError(w, http.StatusBadRequest, "formula id does not match the request path")
		return models.Formula{}, false
	}
	f.ID = id
	return f, true
}

func updatePhase(f models.Formula, phaseID string, edit formulaEdit) (models.Formula, error) {
	if err := findRow(f, phaseID, ""); err != nil {
		return f, err
	}
	out := f
	var err error
	if name, ok := edit.text("name"); ok {
		if out, err = formula.RenamePhase(out, phaseID, strings.TrimSpace(name)); err != nil {
			return f, err
		}
	}
	if edit.has("temperature") {
		if out, err = formula.SetPhaseTemperature(out, phaseID, edit.number("temperature")); err != nil {
			return f, err
		}
	}
	return out, nil
}

// updateItem applies the ingredient before the function so the function
// check runs against the new ingredient.
func updateItem(f models.Formula, idx catalog.Index, phaseID, itemID string, edit formulaEdit) (models.Formula, error) {
	if err := findRow(f, phaseID, itemID); err != nil {
		return f, err
	}
	out := f
	var err error
	if ingredientID, ok := edit.text("ingredientId"); ok {
		if out, err = formula.AssignIngredient(out, idx, phaseID, itemID, strings.TrimSpace(ingredientID)); err != nil {
			return f, err
		}
	}
	if function, ok := edit.text("function"); ok {
		if out, err = formula.SetItemFunction(out, idx, phaseID, itemID, strings.TrimSpace(function)); err != nil {
			return f, err
		}
	}
	if edit.has("percent") {
		percent := 0.0
		if p := edit.number("percent"); p != nil {
			percent = *p
		}
		if out, err = formula.SetItemPercent(out, phaseID, itemID, percent); err != nil {
			return f, err
		}
	}
	if notes, ok := edit.text("notes"); ok {
		if out, err = formula.SetItemNotes(out, phaseID, itemID, notes); err != nil {
			return f, err
		}
	}
	return out, nil
}

// findRow reports whether the phase, and the item when itemID is set, exist.
func findRow(f models.Formula, phaseID, itemID string) error {
	for _, p := range f.Phases {
		if p.ID != phaseID {
			continue
		}
		if itemID == "" {
			return nil
		}
		for _, item := range p.Items {
			if item.ID == itemID {
				return nil
			}
		}
		return formula.ErrItemNotFound
	}
	return formula.ErrPhaseNotFound
}
