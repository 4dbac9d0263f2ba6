package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
)

// exportFormula writes a stored formula as json (the export payload), csv or
// a plain-text sheet.
func exportFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index, id string) {
	f, ok := loadFormula(w, r, id)
	if !ok {
		return
	}
	now := nowFunc()
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}

	var (
		buf         bytes.Buffer
		contentType string
		ext         string
	)
	switch format {
	case "json":
		w.Header().Set("Content-Disposition", attachment(formula.FileName(f, "json", now)))
		writeJSON(w, http.StatusOK, formula.ExportPayload(f, idx, calculatorOptions(), now))
		return
	case "csv":
		if err := formula.WriteCSV(&buf, formula.FormatForExport(f, idx), idx); err != nil {
			applog.Error(r.Context(), "failed to write csv export", "error", err, "formula_id", id)
			writeJSONError(w, http.StatusInternalServerError, "unable to export formula")
			return
		}
		contentType, ext = "text/csv; charset=utf-8", "csv"
	case "sheet", "txt":
		formatted := formula.FormatForExport(f, idx)
		summary := formula.Summarize(formatted, idx, calculatorOptions())
		if err := formula.WriteSheet(&buf, formatted, idx, &summary); err != nil {
			applog.Error(r.Context(), "failed to write sheet export", "error", err, "formula_id", id)
			writeJSONError(w, http.StatusInternalServerError, "unable to export formula")
			return
		}
		contentType, ext = "text/plain; charset=utf-8", "txt"
	default:
		writeJSONError(w, http.StatusBadRequest, "format must be json, csv or sheet")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(formula.FileName(f, ext, now)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		applog.Error(r.Context(), "failed to write export", "error", err)
	}
}

func attachment(name string) string {
	return `attachment; filename="` + name + `"`
}
