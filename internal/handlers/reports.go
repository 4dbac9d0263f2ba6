package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/models"
)

var (
	errBatchInvalidQuantity  = errors.New("reports: invalid target quantity")
	errBatchEmptyComposition = errors.New("reports: formula has no ingredients")
)

type batchReportRequest struct {
	TargetGrams float64 `json:"targetGrams"`
}

type batchReport struct {
	FormulaID   string              `json:"formulaId"`
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	TargetGrams float64             `json:"targetGrams"`
	Lines       []formula.INCIEntry `json:"lines"`
	Totals      formula.Totals      `json:"totals"`
	Costing     formula.Costing     `json:"costing"`
	Warnings    []models.Warning    `json:"warnings"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// batchReportHandler scales a stored formula to a production batch without saving
// the new size.
func batchReportHandler(w http.ResponseWriter, r *http.Request, idx catalog.Index, id string) {
	var payload batchReportRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}
	f, ok := loadFormula(w, r, id)
	if !ok {
		return
	}

	report, err := buildBatchReport(f, idx, payload.TargetGrams)
	if err != nil {
		switch {
		case errors.Is(err, errBatchInvalidQuantity):
			writeJSONError(w, http.StatusBadRequest, "Provide a positive target quantity.")
		case errors.Is(err, errBatchEmptyComposition):
			writeJSONError(w, http.StatusBadRequest, "The selected formula has no ingredients to report.")
		default:
			applog.Error(r.Context(), "failed to build batch report", "error", err, "formula_id", id)
			writeJSONError(w, http.StatusInternalServerError, "We were unable to generate the batch report. Please try again.")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func buildBatchReport(f models.Formula, idx catalog.Index, target float64) (batchReport, error) {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return batchReport{}, errBatchInvalidQuantity
	}
	items := 0
	for _, phase := range f.Phases {
		items += len(phase.Items)
	}
	if items == 0 {
		return batchReport{}, errBatchEmptyComposition
	}

	scaled := formula.FormatForExport(formula.SetBatchSize(f, target), idx)
	summary := formula.Summarize(scaled, idx, calculatorOptions())
	return batchReport{
		FormulaID:   f.ID,
		Name:        scaled.Name,
		Version:     scaled.Version,
		TargetGrams: target,
		Lines:       formula.INCIList(scaled, idx),
		Totals:      summary.Totals,
		Costing:     summary.Costing,
		Warnings:    formula.Validate(scaled, idx),
		GeneratedAt: nowFunc().UTC(),
	}, nil
}
