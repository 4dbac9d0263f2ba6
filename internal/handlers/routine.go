package handlers

import (
	"net/http"

	"aloniva/internal/catalog"
	applog "aloniva/internal/log"
	"aloniva/internal/routine"
)

type routineResponse struct {
	AM    []routine.Block      `json:"am"`
	PM    []routine.Block      `json:"pm"`
	Items []routine.Aggregated `json:"items"`
}

// Products lists the storefront catalog.
func Products(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	products, err := catalog.Products()
	if err != nil {
		applog.Error(r.Context(), "failed to load product catalog", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load products")
		return
	}
	writeJSON(w, http.StatusOK, routine.BuildIndex(products))
}

// Routine turns questionnaire answers into AM and PM picks plus the merged
// list shown to shoppers.
func Routine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var answers routine.Answers
	if err := decodeJSON(r, &answers); err != nil {
		applog.Debug(r.Context(), "failed to decode routine answers", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid answers payload")
		return
	}

	products, err := catalog.Products()
	if err != nil {
		applog.Error(r.Context(), "failed to load product catalog", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load products")
		return
	}

	rec := routine.Recommend(products, answers)
	items := routine.Aggregate(rec)
	applog.Debug(r.Context(), "routine recommended", "am", len(rec.AM), "pm", len(rec.PM), "items", len(items))
	writeJSON(w, http.StatusOK, routineResponse{AM: rec.AM, PM: rec.PM, Items: items})
}
