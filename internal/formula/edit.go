package formula

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"aloniva/internal/catalog"
	"aloniva/models"
)

var (
	// ErrPhaseNotFound is returned when an edit names an unknown phase.
	ErrPhaseNotFound = errors.New("formula: phase not found")
	// ErrItemNotFound is returned when an edit names an unknown item.
	ErrItemNotFound = errors.New("formula: item not found")
	// ErrLastPhase is returned when removing the only remaining phase.
	ErrLastPhase = errors.New("formula: cannot remove the last phase")
)

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewFormula returns a blank working formula with a single heated phase.
func NewFormula() models.Formula {
	return models.Formula{
		ID:          newID("formula"),
		Name:        "Untitled Formula",
		Version:     "v1.0",
		ProductType: "Custom",
		BatchSize:   1000,
		TargetPH:    models.Float(5.5),
		TargetTempC: models.Float(75),
		Regions:     map[string]bool{"UG": true, "EA": true, "EU": false, "US": false},
		Costing:     &models.Costing{},
		Phases: []models.Phase{
			{ID: newID("phase"), Name: "Phase A", Temperature: models.Float(75), Items: []models.FormulaItem{}},
		},
	}
}

// CloneAs copies f into a new unsaved formula named "<name> Copy".
func CloneAs(f models.Formula) models.Formula {
	out := f.Clone()
	name := strings.TrimSpace(out.Name)
	if name == "" {
		name = "Formula"
	}
	out.ID = newID("formula")
	out.Name = name + " Copy"
	out.Version = "v1.0"
	out.CreatedAt = nil
	out.UpdatedAt = nil
	return out
}

// AddPhase appends a phase named after its position ("Phase B", "Phase C", ...)
// and processed at the formula's target temperature.
func AddPhase(f models.Formula) (models.Formula, string) {
	out := f.Clone()
	id := newID("phase")
	var temp *float64
	if out.TargetTempC != nil && *out.TargetTempC != 0 {
		temp = models.Float(*out.TargetTempC)
	}
	out.Phases = append(out.Phases, models.Phase{
		ID:          id,
		Name:        "Phase " + phaseLetter(len(out.Phases)),
		Temperature: temp,
		Items:       []models.FormulaItem{},
	})
	return out, id
}

func phaseLetter(n int) string {
	if n >= 0 && n < 26 {
		return string(rune('A' + n))
	}
	return string(rune('A'+n%26)) + string(rune('0'+n/26%10))
}

// RemovePhase drops a phase unless it is the last one.
func RemovePhase(f models.Formula, phaseID string) (models.Formula, error) {
	pi := phaseIndex(f, phaseID)
	if pi < 0 {
		return f.Clone(), ErrPhaseNotFound
	}
	if len(f.Phases) <= 1 {
		return f.Clone(), ErrLastPhase
	}
	out := f.Clone()
	out.Phases = append(out.Phases[:pi], out.Phases[pi+1:]...)
	return ApplyBatchGrams(out), nil
}

// RenamePhase changes a phase's display name.
func RenamePhase(f models.Formula, phaseID, name string) (models.Formula, error) {
	return editPhase(f, phaseID, func(p *models.Phase) { p.Name = name })
}

// SetPhaseTemperature sets or clears (nil) a phase's process temperature.
func SetPhaseTemperature(f models.Formula, phaseID string, temp *float64) (models.Formula, error) {
	return editPhase(f, phaseID, func(p *models.Phase) {
		if temp == nil {
			p.Temperature = nil
			return
		}
		p.Temperature = models.Float(catalog.Finite(*temp))
	})
}

// AddItem appends a row to a phase. When ingredientID resolves, the row takes
// the ingredient's INCI name and first function tag.
func AddItem(f models.Formula, idx catalog.Index, phaseID, ingredientID string) (models.Formula, string, error) {
	pi := phaseIndex(f, phaseID)
	if pi < 0 {
		return f.Clone(), "", ErrPhaseNotFound
	}
	out := f.Clone()
	item := models.FormulaItem{ID: newID("item")}
	if ing, ok := idx.Lookup(ingredientID); ok {
		item.IngredientID = ing.ID
		item.IngredientName = ing.INCIName
		if len(ing.FunctionTags) > 0 {
			item.Function = ing.FunctionTags[0]
		}
	}
	out.Phases[pi].Items = append(out.Phases[pi].Items, item)
	return ApplyBatchGrams(out), item.ID, nil
}

// RemoveItem deletes a row.
func RemoveItem(f models.Formula, phaseID, itemID string) (models.Formula, error) {
	pi, ii, err := locate(f, phaseID, itemID)
	if err != nil {
		return f.Clone(), err
	}
	out := f.Clone()
	items := out.Phases[pi].Items
	out.Phases[pi].Items = append(items[:ii], items[ii+1:]...)
	return ApplyBatchGrams(out), nil
}

// AssignIngredient points a row at a library ingredient and keeps the name
// cache in sync. The row's function switches to the ingredient's first tag
// unless it already names one of the ingredient's tags. An empty or unknown
// id unassigns the row.
func AssignIngredient(f models.Formula, idx catalog.Index, phaseID, itemID, ingredientID string) (models.Formula, error) {
	return editItem(f, phaseID, itemID, func(item *models.FormulaItem) {
		ing, ok := idx.Lookup(ingredientID)
		if !ok {
			item.IngredientID = ""
			item.IngredientName = ""
			return
		}
		item.IngredientID = ing.ID
		item.IngredientName = ing.INCIName
		current := catalog.NormaliseKey(item.Function)
		for _, tag := range ing.FunctionTags {
			if current != "" && catalog.NormaliseKey(tag) == current {
				return
			}
		}
		if len(ing.FunctionTags) > 0 {
			item.Function = ing.FunctionTags[0]
		}
	})
}

// SetItemFunction changes a row's role. The assigned ingredient is cleared
// when it is no longer offered for the new role.
func SetItemFunction(f models.Formula, idx catalog.Index, phaseID, itemID, function string) (models.Formula, error) {
	return editItem(f, phaseID, itemID, func(item *models.FormulaItem) {
		item.Function = function
		if item.IngredientID == "" {
			return
		}
		for _, ing := range idx.LibraryForFunction(function, item.IngredientID) {
			if ing.ID == item.IngredientID {
				return
			}
		}
		item.IngredientID = ""
		item.IngredientName = ""
	})
}

// SetItemPercent updates a row's share of the batch.
func SetItemPercent(f models.Formula, phaseID, itemID string, percent float64) (models.Formula, error) {
	return editItem(f, phaseID, itemID, func(item *models.FormulaItem) {
		item.Percent = catalog.Finite(percent)
	})
}

// SetItemNotes replaces a row's notes.
func SetItemNotes(f models.Formula, phaseID, itemID, notes string) (models.Formula, error) {
	return editItem(f, phaseID, itemID, func(item *models.FormulaItem) {
		item.Notes = notes
	})
}

// SetBatchSize changes the batch size and re-projects grams.
func SetBatchSize(f models.Formula, size float64) models.Formula {
	out := f.Clone()
	out.BatchSize = catalog.Finite(size)
	return ApplyBatchGrams(out)
}

func editPhase(f models.Formula, phaseID string, fn func(*models.Phase)) (models.Formula, error) {
	pi := phaseIndex(f, phaseID)
	if pi < 0 {
		return f.Clone(), ErrPhaseNotFound
	}
	out := f.Clone()
	fn(&out.Phases[pi])
	return ApplyBatchGrams(out), nil
}

func editItem(f models.Formula, phaseID, itemID string, fn func(*models.FormulaItem)) (models.Formula, error) {
	pi, ii, err := locate(f, phaseID, itemID)
	if err != nil {
		return f.Clone(), err
	}
	out := f.Clone()
	fn(&out.Phases[pi].Items[ii])
	return ApplyBatchGrams(out), nil
}

func phaseIndex(f models.Formula, phaseID string) int {
	for i, p := range f.Phases {
		if p.ID == phaseID {
			return i
		}
	}
	return -1
}

func locate(f models.Formula, phaseID, itemID string) (int, int, error) {
	pi := phaseIndex(f, phaseID)
	if pi < 0 {
		return -1, -1, ErrPhaseNotFound
	}
	for i, item := range f.Phases[pi].Items {
		if item.ID == itemID {
			return pi, i, nil
		}
	}
	return pi, -1, ErrItemNotFound
}
