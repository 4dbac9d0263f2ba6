package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	"aloniva/internal/settings"
	"aloniva/models"
)

func lotion(t *testing.T) models.Formula {
	t.Helper()
	tmpl, ok := formula.TemplateByID("template-hydrating-lotion")
	if !ok {
		t.Fatal("hydrating lotion template missing")
	}
	return tmpl.Formula(catalog.BuildIndex(catalog.MustDefault()))
}

func withFixedNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = prev })
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestFormulaResourceWithoutDatabase(t *testing.T) {
	original := formulas
	formulas = nil
	t.Cleanup(func() { formulas = original })

	w := httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodGet, "/app/api/formulas", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("FormulaResource() status = %d, want 503", w.Code)
	}
}

func TestFormulaLifecycle(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	draft := lotion(t)
	draft.ID = ""

	// Create.
	req := authenticateRequest(t, sm, jsonRequest(t, http.MethodPost, "/app/api/formulas", draft), 1)
	w := httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	created := decodeBody[savedFormulaResponse](t, w)
	id := created.Formula.ID
	if id == "" || created.Formula.CreatedAt == nil {
		t.Fatalf("created formula = %+v, want id and timestamps", created.Formula)
	}
	if created.Version.Note != manualSaveNote || !strings.HasPrefix(created.Version.VersionID, id+":") {
		t.Fatalf("created version = %+v", created.Version)
	}
	if got := settings.LastFormula(req.Context(), settings.NewSession(sm)); got != id {
		t.Fatalf("last formula = %q, want %q", got, id)
	}
	firstItem := created.Formula.Phases[0].Items[0]
	if want := created.Formula.BatchSize * firstItem.Percent / 100; math.Abs(firstItem.Grams-want) > 1e-9 {
		t.Fatalf("grams = %v, want %v", firstItem.Grams, want)
	}

	// Update.
	renamed := created.Formula
	renamed.Name = "Hydrating Lotion II"
	req = authenticateRequest(t, sm, jsonRequest(t, http.MethodPut, "/app/api/formulas/"+id, renamed), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	// Mismatched id.
	req = authenticateRequest(t, sm, jsonRequest(t, http.MethodPut, "/app/api/formulas/other", renamed), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatched update status = %d, want 400", w.Code)
	}

	// List.
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/formulas", nil), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	list := decodeBody[[]formulaListEntry](t, w)
	if len(list) != 1 || list[0].Name != "Hydrating Lotion II" || !list[0].Balanced {
		t.Fatalf("list = %+v", list)
	}

	// Versions, newest first.
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/formulas/"+id+"/versions", nil), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	versions := decodeBody[[]models.Version](t, w)
	if len(versions) != 2 || versions[0].Name != "Hydrating Lotion II" {
		t.Fatalf("versions = %+v", versions)
	}

	// Restore returns the old snapshot without touching the stored formula.
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodPost, "/app/api/versions/"+created.Version.VersionID+"/restore", nil), 1)
	w = httptest.NewRecorder()
	VersionResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d (body %s)", w.Code, w.Body.String())
	}
	restored := decodeBody[evaluationResponse](t, w)
	if restored.Formula.Name != "Hydrating Lotion" {
		t.Fatalf("restored name = %q, want Hydrating Lotion", restored.Formula.Name)
	}
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/formulas/"+id, nil), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if current := decodeBody[evaluationResponse](t, w); current.Formula.Name != "Hydrating Lotion II" {
		t.Fatalf("stored name after restore = %q", current.Formula.Name)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodPost, "/app/api/versions/"+id+":missing/restore", nil), 1)
	w = httptest.NewRecorder()
	VersionResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing version status = %d, want 404", w.Code)
	}

	// Delete.
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodDelete, "/app/api/formulas/"+id, nil), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/formulas/"+id, nil), 1)
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}

func TestEvaluateAndTemplates(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	w := httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/evaluate", lotion(t)))
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d (body %s)", w.Code, w.Body.String())
	}
	evaluated := decodeBody[evaluationResponse](t, w)
	if !evaluated.Summary.Totals.IsBalanced {
		t.Fatalf("lotion totals = %+v, want balanced", evaluated.Summary.Totals)
	}
	if evaluated.Warnings == nil {
		t.Fatal("warnings = nil, want a list")
	}

	w = httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodPost, "/app/api/formulas/from-template/template-gel-serum", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("from-template status = %d", w.Code)
	}
	if got := decodeBody[evaluationResponse](t, w); got.Formula.Name != "Gel Serum" {
		t.Fatalf("from-template name = %q", got.Formula.Name)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodPost, "/app/api/formulas/from-template/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown template status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	Templates(w, httptest.NewRequest(http.MethodGet, "/app/api/templates", nil))
	if got := decodeBody[[]formula.Template](t, w); len(got) != 4 {
		t.Fatalf("templates = %d, want 4", len(got))
	}
}

func TestFormulaPayloadCoercesNumbers(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	payload := map[string]any{
		"name":      "Typed By Hand",
		"batchSize": "500",
		"phases": []any{map[string]any{
			"name": "Phase A",
			"items": []any{
				map[string]any{"ingredientId": "ing-deionized-water", "percent": "60.5"},
				map[string]any{"ingredientId": "ing-glycerin", "percent": "abc"},
			},
		}},
	}

	w := httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/evaluate", payload))
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	got := decodeBody[evaluationResponse](t, w)
	if got.Summary.Totals.Total != 60.5 || got.Summary.Totals.IsBalanced {
		t.Fatalf("totals = %+v, want 60.5 unbalanced", got.Summary.Totals)
	}
	items := got.Formula.Phases[0].Items
	if items[0].Grams != 302.5 || items[1].Percent != 0 {
		t.Fatalf("items = %+v, want 302.5 g and a zero percent", items)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPut, "/app/api/formulas/typed", payload))
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if saved := decodeBody[savedFormulaResponse](t, w); saved.Formula.ID != "typed" || saved.Formula.BatchSize != 500 {
		t.Fatalf("saved = %s / %v, want typed / 500", saved.Formula.ID, saved.Formula.BatchSize)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/evaluate", map[string]any{"name": "No Phases"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("evaluate without phases status = %d, want 400", w.Code)
	}
}

func TestExportAndBatch(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	withFixedNow(t, time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC))

	f := lotion(t)
	f.ID = "lotion-1"
	if _, err := formulas.Save(context.Background(), formula.ApplyBatchGrams(f)); err != nil {
		t.Fatalf("seed formula: %v", err)
	}

	w := httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodGet, "/app/api/formulas/lotion-1/export?format=csv", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("csv export status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "Phase,Ingredient,Trade Name,Percent,Grams,Notes") {
		t.Fatalf("csv export = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "Hydrating-Lotion_v1.0_2025-01-02.csv") {
		t.Fatalf("Content-Disposition = %q", got)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodGet, "/app/api/formulas/lotion-1/export", nil))
	payload := decodeBody[formula.Payload](t, w)
	if payload.FileBase != "Hydrating-Lotion_v1.0_2025-01-02" || len(payload.INCI) == 0 {
		t.Fatalf("json export = %+v", payload)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodGet, "/app/api/formulas/lotion-1/export?format=sheet", nil))
	if !strings.Contains(w.Body.String(), "% (") {
		t.Fatalf("sheet export = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	FormulaResource(w, httptest.NewRequest(http.MethodGet, "/app/api/formulas/lotion-1/export?format=docx", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/lotion-1/batch", batchReportRequest{TargetGrams: 5000}))
	if w.Code != http.StatusOK {
		t.Fatalf("batch status = %d (body %s)", w.Code, w.Body.String())
	}
	report := decodeBody[batchReport](t, w)
	var grams float64
	for _, line := range report.Lines {
		grams += line.Grams
	}
	if math.Abs(grams-5000) > 0.01 {
		t.Fatalf("batch grams = %v, want 5000", grams)
	}
	if !report.GeneratedAt.Equal(time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Fatalf("GeneratedAt = %v", report.GeneratedAt)
	}

	w = httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/lotion-1/batch", batchReportRequest{}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero batch status = %d, want 400", w.Code)
	}
}

func TestImportFormula(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	idx := catalog.BuildIndex(catalog.MustDefault())
	source := formula.ApplyBatchGrams(lotion(t))

	w := httptest.NewRecorder()
	FormulaResource(w, jsonRequest(t, http.MethodPost, "/app/api/formulas/import", source))
	if w.Code != http.StatusOK {
		t.Fatalf("json import status = %d (body %s)", w.Code, w.Body.String())
	}
	if got := decodeBody[evaluationResponse](t, w); got.Formula.Name != "Hydrating Lotion" {
		t.Fatalf("json import name = %q", got.Formula.Name)
	}

	var csvBody bytes.Buffer
	if err := formula.WriteCSV(&csvBody, source, idx); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("formula_file", "Night Lotion.csv")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write(csvBody.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/app/api/formulas/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("csv import status = %d (body %s)", w.Code, w.Body.String())
	}
	imported := decodeBody[evaluationResponse](t, w)
	if imported.Formula.Name != "Night Lotion" || len(imported.Formula.Phases) != len(source.Phases) {
		t.Fatalf("csv import = %q with %d phases", imported.Formula.Name, len(imported.Formula.Phases))
	}
	if !imported.Summary.Totals.IsBalanced {
		t.Fatalf("csv import totals = %+v", imported.Summary.Totals)
	}

	req = httptest.NewRequest(http.MethodPost, "/app/api/formulas/import", strings.NewReader("\x89PNG"))
	req.Header.Set("Content-Type", "image/png")
	w = httptest.NewRecorder()
	FormulaResource(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unsupported import status = %d, want 422", w.Code)
	}
}

func TestMimeTypeFromName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.pdf":  "application/pdf",
		"a.CSV":  "text/csv",
		"a.json": "application/json",
		"a.txt":  "text/plain",
		"a.docx": "application/octet-stream",
	}
	for name, want := range tests {
		if got := mimeTypeFromName(name); got != want {
			t.Fatalf("mimeTypeFromName(%q) = %q, want %q", name, got, want)
		}
	}
}
