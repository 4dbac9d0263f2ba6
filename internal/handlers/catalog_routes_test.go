package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"aloniva/internal/catalog"
	"aloniva/internal/routine"
	"aloniva/models"
)

func TestIngredientResource(t *testing.T) {
	original := formulas
	formulas = nil
	t.Cleanup(func() { formulas = original })

	w := httptest.NewRecorder()
	IngredientResource(w, httptest.NewRequest(http.MethodGet, "/app/api/ingredients?function=Preservative", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decodeBody[[]models.Ingredient](t, w)
	if len(list) == 0 {
		t.Fatal("expected preservatives in the library")
	}
	for _, ing := range list {
		if !catalog.FitsFunction(ing, "Preservative") {
			t.Fatalf("ingredient %s does not fit preservative", ing.ID)
		}
	}

	w = httptest.NewRecorder()
	IngredientResource(w, httptest.NewRequest(http.MethodGet, "/app/api/ingredients/categories", nil))
	if got := decodeBody[[]catalog.Category](t, w); len(got) == 0 {
		t.Fatal("expected categories")
	}

	w = httptest.NewRecorder()
	IngredientResource(w, httptest.NewRequest(http.MethodGet, "/app/api/ingredients/ing-glycerin", nil))
	if got := decodeBody[models.Ingredient](t, w); got.ID != "ing-glycerin" {
		t.Fatalf("lookup = %+v", got)
	}

	w = httptest.NewRecorder()
	IngredientResource(w, httptest.NewRequest(http.MethodGet, "/app/api/ingredients/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown ingredient status = %d, want 404", w.Code)
	}
}

func TestIngredientResourcePrefersStoredLibrary(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	req := httptest.NewRequest(http.MethodGet, "/app/api/ingredients", nil)
	if err := formulas.UpsertIngredients(req.Context(), []models.Ingredient{{ID: "ing-house", INCIName: "House Blend", FunctionTags: []string{"emollient"}}}); err != nil {
		t.Fatalf("UpsertIngredients() error = %v", err)
	}

	w := httptest.NewRecorder()
	IngredientResource(w, req)
	list := decodeBody[[]models.Ingredient](t, w)
	if len(list) != 1 || list[0].ID != "ing-house" {
		t.Fatalf("library = %+v, want the stored entry only", list)
	}
}

func TestRoutineHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	Routine(w, jsonRequest(t, http.MethodPost, "/api/routine", routine.Answers{}))
	if w.Code != http.StatusOK {
		t.Fatalf("Routine() status = %d (body %s)", w.Code, w.Body.String())
	}
	got := decodeBody[routineResponse](t, w)
	if len(got.AM) != 4 || len(got.PM) != 3 {
		t.Fatalf("blocks = %d AM / %d PM, want 4 / 3", len(got.AM), len(got.PM))
	}
	if len(got.Items) == 0 {
		t.Fatal("expected aggregated items")
	}
	seen := map[string]bool{}
	for _, item := range got.Items {
		if seen[item.ID] {
			t.Fatalf("aggregated list repeats %s", item.ID)
		}
		seen[item.ID] = true
	}

	w = httptest.NewRecorder()
	Routine(w, httptest.NewRequest(http.MethodGet, "/api/routine", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Routine() GET status = %d, want 405", w.Code)
	}
}

func TestProductsHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	Products(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	products := decodeBody[[]models.Product](t, w)
	if len(products) != 12 {
		t.Fatalf("products = %d, want 12", len(products))
	}
	for _, p := range products {
		if p.Step == "" || p.Tier == "" {
			t.Fatalf("product %s missing derived fields", p.ID)
		}
	}
}

func TestPreferences(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	user := models.User{Email: "lab@example.com", PasswordHash: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	req := authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/preferences", nil), user.ID)
	w := httptest.NewRecorder()
	Preferences(w, req)
	if got := decodeBody[preferencesResponse](t, w); got.Theme != models.DefaultTheme || got.LastFormula != "" {
		t.Fatalf("defaults = %+v", got)
	}

	req = authenticateRequest(t, sm, jsonRequest(t, http.MethodPost, "/app/api/preferences", map[string]string{"theme": "Dark", "lastFormulaId": "f-1"}), user.ID)
	w = httptest.NewRecorder()
	Preferences(w, req)
	if got := decodeBody[preferencesResponse](t, w); got.Theme != models.ThemeDark || got.LastFormula != "f-1" {
		t.Fatalf("updated = %+v", got)
	}
	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.Theme != models.ThemeDark {
		t.Fatalf("stored theme = %q, want dark", stored.Theme)
	}

	req = authenticateRequest(t, sm, jsonRequest(t, http.MethodPost, "/app/api/preferences", map[string]string{"theme": "galaxy"}), user.ID)
	w = httptest.NewRecorder()
	Preferences(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid theme status = %d, want 400", w.Code)
	}
}
