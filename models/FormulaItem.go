package models

// FormulaItem is one weighted ingredient row inside a phase.
//
// IngredientID is empty until an ingredient is assigned. IngredientName is a
// display cache and must follow IngredientID. Function is a per-formula role
// override and intentionally diverges from the ingredient's own tags.
// Grams is derived from the batch size and Percent and is never edited directly.
type FormulaItem struct {
	ID             string  `json:"id"`
	IngredientID   string  `json:"ingredientId"`
	IngredientName string  `json:"ingredientName"`
	Function       string  `json:"function"`
	Percent        float64 `json:"percent"`
	Grams          float64 `json:"grams"`
	Notes          string  `json:"notes"`
}
