package handlers

import (
	"context"
	"net/http"
	"strings"

	"aloniva/internal/catalog"
	applog "aloniva/internal/log"
)

// ingredientIndex prefers the stored library and falls back to the embedded
// one when no database is configured or the table is empty.
func ingredientIndex(ctx context.Context) (catalog.Index, error) {
	if formulas != nil {
		library, err := formulas.IngredientLibrary(ctx)
		if err != nil {
			return nil, err
		}
		if len(library) > 0 {
			return catalog.BuildIndex(library), nil
		}
	}
	library, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	return catalog.BuildIndex(library), nil
}

// IngredientResource serves the ingredient library, optionally filtered by
// function, and its function categories.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/app/api/ingredients"), "/")

	idx, err := ingredientIndex(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to load ingredient library", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	switch path {
	case "":
		query := r.URL.Query()
		function := strings.TrimSpace(query.Get("function"))
		library := idx.LibraryForFunction(function, strings.TrimSpace(query.Get("current")))
		applog.Debug(r.Context(), "ingredient library listed", "function", function, "count", len(library))
		writeJSON(w, http.StatusOK, library)
	case "categories":
		writeJSON(w, http.StatusOK, catalog.Categories(idx.Library()))
	default:
		ingredient, ok := idx.Lookup(path)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		writeJSON(w, http.StatusOK, ingredient)
	}
}
