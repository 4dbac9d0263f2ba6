package formula

import (
	"errors"
	"strings"
	"testing"

	"aloniva/internal/catalog"
	"aloniva/models"
)

func TestNewFormulaDefaults(t *testing.T) {
	t.Parallel()

	f := NewFormula()
	if f.Name != "Untitled Formula" || f.Version != "v1.0" || f.ProductType != "Custom" || f.BatchSize != 1000 {
		t.Fatalf("NewFormula() = %+v", f)
	}
	if *f.TargetPH != 5.5 || *f.TargetTempC != 75 {
		t.Fatalf("targets = %v/%v, want 5.5/75", *f.TargetPH, *f.TargetTempC)
	}
	if !f.Regions["UG"] || !f.Regions["EA"] || f.Regions["EU"] || f.Regions["US"] {
		t.Fatalf("Regions = %v", f.Regions)
	}
	if len(f.Phases) != 1 || f.Phases[0].Name != "Phase A" || *f.Phases[0].Temperature != 75 {
		t.Fatalf("Phases = %+v", f.Phases)
	}
	if !strings.HasPrefix(f.ID, "formula-") || f.ID == NewFormula().ID {
		t.Fatalf("ID = %q, want unique formula- prefix", f.ID)
	}
}

func TestCloneAs(t *testing.T) {
	t.Parallel()

	src := NewFormula()
	src.Name = "Night Cream"
	src.Version = "v3.2"
	src.Phases[0].Items = []models.FormulaItem{item("a1", "water", 100)}

	clone := CloneAs(src)
	if clone.ID == src.ID || clone.Name != "Night Cream Copy" || clone.Version != "v1.0" {
		t.Fatalf("CloneAs() = %s %q %s", clone.ID, clone.Name, clone.Version)
	}
	if clone.CreatedAt != nil || clone.UpdatedAt != nil {
		t.Fatalf("CloneAs() kept timestamps")
	}
	clone.Phases[0].Items[0].Percent = 1
	if src.Phases[0].Items[0].Percent != 100 {
		t.Fatalf("CloneAs() shares items with the source")
	}
}

func TestAddAndRemovePhase(t *testing.T) {
	t.Parallel()

	f := NewFormula()
	f, idB := AddPhase(f)
	f, _ = AddPhase(f)
	if got := f.Phases[1].Name; got != "Phase B" {
		t.Fatalf("second phase = %q, want Phase B", got)
	}
	if got := f.Phases[2].Name; got != "Phase C" {
		t.Fatalf("third phase = %q, want Phase C", got)
	}
	if *f.Phases[1].Temperature != 75 {
		t.Fatalf("new phase temperature = %v, want 75", *f.Phases[1].Temperature)
	}

	f, err := RemovePhase(f, idB)
	if err != nil || len(f.Phases) != 2 {
		t.Fatalf("RemovePhase() = %d phases, %v", len(f.Phases), err)
	}
	if _, err := RemovePhase(f, "missing"); !errors.Is(err, ErrPhaseNotFound) {
		t.Fatalf("RemovePhase(missing) error = %v, want ErrPhaseNotFound", err)
	}

	f, _ = RemovePhase(f, f.Phases[1].ID)
	last, err := RemovePhase(f, f.Phases[0].ID)
	if !errors.Is(err, ErrLastPhase) || len(last.Phases) != 1 {
		t.Fatalf("RemovePhase(last) = %d phases, %v, want ErrLastPhase", len(last.Phases), err)
	}
}

func TestItemEditing(t *testing.T) {
	t.Parallel()

	idx := catalog.BuildIndex(catalog.MustDefault())
	f := NewFormula()
	phaseID := f.Phases[0].ID

	f, itemID, err := AddItem(f, idx, phaseID, "ing-glycerin")
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	it := f.Phases[0].Items[0]
	if it.IngredientName != "Glycerin" || it.Function != "humectant" {
		t.Fatalf("AddItem() item = %+v", it)
	}

	f, err = SetItemPercent(f, phaseID, itemID, 12.5)
	if err != nil || f.Phases[0].Items[0].Grams != 125 {
		t.Fatalf("SetItemPercent() grams = %v, %v, want 125", f.Phases[0].Items[0].Grams, err)
	}

	f = SetBatchSize(f, 500)
	if f.Phases[0].Items[0].Grams != 62.5 {
		t.Fatalf("SetBatchSize() grams = %v, want 62.5", f.Phases[0].Items[0].Grams)
	}

	// Function already matches one of propanediol's tags, so it is kept.
	f, _ = AssignIngredient(f, idx, phaseID, itemID, "ing-propanediol")
	it = f.Phases[0].Items[0]
	if it.IngredientID != "ing-propanediol" || it.IngredientName != "Propanediol" || it.Function != "humectant" {
		t.Fatalf("AssignIngredient() item = %+v", it)
	}

	f, _ = AssignIngredient(f, idx, phaseID, itemID, "ing-squalane")
	if got := f.Phases[0].Items[0].Function; got != "emollient" {
		t.Fatalf("AssignIngredient() function = %q, want emollient", got)
	}

	f, _ = SetItemFunction(f, idx, phaseID, itemID, "Preservative")
	it = f.Phases[0].Items[0]
	if it.IngredientID != "" || it.IngredientName != "" || it.Function != "Preservative" {
		t.Fatalf("SetItemFunction() did not clear mismatched ingredient: %+v", it)
	}

	f, _ = AssignIngredient(f, idx, phaseID, itemID, "ing-phenoxyethanol-ethylhexylglycerin")
	f, _ = SetItemFunction(f, idx, phaseID, itemID, "preservative")
	if f.Phases[0].Items[0].IngredientID == "" {
		t.Fatalf("SetItemFunction() cleared a matching ingredient")
	}

	f, err = SetItemNotes(f, phaseID, itemID, "add below 40°C")
	if err != nil || f.Phases[0].Items[0].Notes != "add below 40°C" {
		t.Fatalf("SetItemNotes() = %q, %v", f.Phases[0].Items[0].Notes, err)
	}

	if _, err := SetItemPercent(f, phaseID, "missing", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("SetItemPercent(missing) error = %v, want ErrItemNotFound", err)
	}
	if _, _, err := AddItem(f, idx, "missing", ""); !errors.Is(err, ErrPhaseNotFound) {
		t.Fatalf("AddItem(missing phase) error = %v, want ErrPhaseNotFound", err)
	}

	f, err = RemoveItem(f, phaseID, itemID)
	if err != nil || len(f.Phases[0].Items) != 0 {
		t.Fatalf("RemoveItem() = %d items, %v", len(f.Phases[0].Items), err)
	}
}

func TestEditsDoNotMutateInput(t *testing.T) {
	t.Parallel()

	f := formulaOf(1000, phase("a", item("a1", "water", 50)))
	_, _ = SetItemPercent(f, "a", "a1", 80)
	_, _ = SetPhaseTemperature(f, "a", models.Float(60))
	_, _ = RenamePhase(f, "a", "Water")
	if f.Phases[0].Items[0].Percent != 50 || f.Phases[0].Temperature != nil || f.Phases[0].Name != "Phase A" {
		t.Fatalf("edit mutated input: %+v", f.Phases[0])
	}
}
