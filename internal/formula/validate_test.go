package formula

import (
	"strings"
	"testing"

	"aloniva/models"
)

func findWarnings(warnings []models.Warning, level models.WarningLevel, substr string) []models.Warning {
	var out []models.Warning
	for _, w := range warnings {
		if w.Level == level && strings.Contains(w.Message, substr) {
			out = append(out, w)
		}
	}
	return out
}

func countLevel(warnings []models.Warning, level models.WarningLevel) int {
	n := 0
	for _, w := range warnings {
		if w.Level == level {
			n++
		}
	}
	return n
}

func TestValidateRegulatoryCap(t *testing.T) {
	t.Parallel()

	f := formulaOf(1000, phase("a", item("a1", "water", 96.7), item("a2", "acid", 2.5), item("a3", "pres", 0.8)))
	f.Regions = map[string]bool{"EU": true, "US": false}

	warnings := Validate(f, testIndex())
	if n := countLevel(warnings, models.LevelBlocking); n != 1 {
		t.Fatalf("blocking warnings = %d (%+v), want 1", n, warnings)
	}
	got := findWarnings(warnings, models.LevelBlocking, "exceeds")[0]
	for _, want := range []string{"Salicylic Acid", "EU", "2.5", "2"} {
		if !strings.Contains(got.Message, want) {
			t.Fatalf("message %q missing %q", got.Message, want)
		}
	}
	if got.Message != "Salicylic Acid exceeds EU limit (2.5% > 2%)." {
		t.Fatalf("message = %q", got.Message)
	}
	if got.Ref == nil || got.Ref.PhaseID != "a" || got.Ref.ItemID != "a2" {
		t.Fatalf("Ref = %+v, want a/a2", got.Ref)
	}

	f.Regions["US"] = true
	if got := findWarnings(Validate(f, testIndex()), models.LevelBlocking, "exceeds"); len(got) != 2 {
		t.Fatalf("regulatory warnings with US on = %+v, want EU and US", got)
	}
}

func TestValidatePreservativeBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	f := formulaOf(1000, phase("a", item("a1", "water", 20), item("a2", "powder", 80)))
	if got := findWarnings(Validate(f, testIndex()), models.LevelBlocking, "no preservative"); len(got) != 1 {
		t.Fatalf("no-preservative warnings = %+v, want 1", got)
	}

	f = formulaOf(1000, phase("a", item("a1", "water", 19.9), item("a2", "powder", 80.1)))
	if got := findWarnings(Validate(f, testIndex()), models.LevelBlocking, "no preservative"); len(got) != 0 {
		t.Fatalf("no-preservative warnings below threshold = %+v, want none", got)
	}
}

func TestValidateWaterOilScenario(t *testing.T) {
	t.Parallel()

	idx := testIndex()
	f := formulaOf(1000, phase("a", item("a1", "water", 70), item("a2", "bare-oil", 30)))

	b := CalcBreakdown(f, idx)
	if b.Water != 70 || b.Oil != 30 || b.Other != 0 {
		t.Fatalf("CalcBreakdown() = %v/%v/%v, want 70/30/0", b.Water, b.Oil, b.Other)
	}

	warnings := Validate(f, idx)
	if got := findWarnings(warnings, models.LevelBlocking, "no preservative"); len(got) != 1 {
		t.Fatalf("missing preservative warning in %+v", warnings)
	}
	if got := findWarnings(warnings, models.LevelInfo, "anhydrous"); len(got) != 0 {
		t.Fatalf("unexpected anhydrous note in %+v", warnings)
	}
}

func TestValidateAnhydrousNote(t *testing.T) {
	t.Parallel()

	idx := testIndex()
	f := formulaOf(1000, phase("a", item("a1", "bare-oil", 96), item("a2", "powder", 4)))
	if got := findWarnings(Validate(f, idx), models.LevelInfo, "anhydrous"); len(got) != 1 {
		t.Fatalf("anhydrous notes = %+v, want 1", got)
	}

	f = formulaOf(1000, phase("a", item("a1", "bare-oil", 90), item("a2", "powder", 10)))
	if got := findWarnings(Validate(f, idx), models.LevelInfo, "anhydrous"); len(got) != 0 {
		t.Fatalf("anhydrous note with 10%% other = %+v, want none", got)
	}

	f = formulaOf(1000, phase("a", item("a1", "bare-oil", 96), item("a2", "emulsifier", 4)))
	for _, w := range Validate(f, idx) {
		if w.Level == models.LevelInfo {
			t.Fatalf("anhydrous note with emulsifier present: %+v", w)
		}
	}
}

func TestValidateDoesNotShortCircuit(t *testing.T) {
	t.Parallel()

	f := formulaOf(1000, phase("a", item("a1", "water", 50), item("a2", "parfum", 1.2)))
	warnings := Validate(f, testIndex())

	want := []struct {
		level  models.WarningLevel
		substr string
	}{
		{models.LevelBlocking, "Total percentages equal 51.20%"},
		{models.LevelBlocking, "no preservative"},
		{models.LevelCaution, "Parfum exceeds recommended leave-on fragrance maximum (0.8%)."},
	}
	for _, w := range want {
		if got := findWarnings(warnings, w.level, w.substr); len(got) != 1 {
			t.Fatalf("warnings %+v missing %s %q", warnings, w.level, w.substr)
		}
	}
}

func TestValidateHLB(t *testing.T) {
	t.Parallel()

	watch := formulaOf(1000, phase("a", item("a1", "water", 74.2), item("a2", "oil", 20), item("a3", "emulsifier", 5), item("a4", "pres", 0.8)))
	watchIdx := testIndex()
	e := watchIdx["emulsifier"]
	e.HLB = models.Float(11.5)
	watchIdx["emulsifier"] = e
	warnings := Validate(watch, watchIdx)
	if got := findWarnings(warnings, models.LevelCaution, "HLB delta is 1.5. Stability may be compromised."); len(got) != 1 {
		t.Fatalf("watch warnings = %+v", warnings)
	}

	critical := formulaOf(1000, phase("a", item("a1", "water", 74.2), item("a2", "oil", 20), item("a3", "emulsifier", 5), item("a4", "pres", 0.8)))
	critIdx := testIndex()
	e.HLB = models.Float(15)
	critIdx["emulsifier"] = e
	warnings = Validate(critical, critIdx)
	got := findWarnings(warnings, models.LevelBlocking, "HLB delta is 5")
	if len(got) != 1 {
		t.Fatalf("critical warnings = %+v", warnings)
	}
	if !strings.Contains(got[0].Message, "required HLB 10") || !strings.Contains(got[0].Message, "currently 15") {
		t.Fatalf("critical message = %q, want both HLB values", got[0].Message)
	}
}

func TestValidateHeatAndPH(t *testing.T) {
	t.Parallel()

	hot := phase("a", item("a1", "water", 97.2), item("a2", "vitc", 2), item("a3", "pres", 0.8))
	hot.Temperature = models.Float(70)
	f := formulaOf(1000, hot)
	f.TargetPH = models.Float(8)

	warnings := Validate(f, testIndex())
	heat := findWarnings(warnings, models.LevelCaution, "overheats")
	if len(heat) != 1 || heat[0].Message != "Ascorbic Acid overheats (limit 40°C, current 70°C)." {
		t.Fatalf("heat warnings = %+v", heat)
	}
	if heat[0].Ref == nil || heat[0].Ref.ItemID != "a2" {
		t.Fatalf("heat ref = %+v, want item a2", heat[0].Ref)
	}
	if got := findWarnings(warnings, models.LevelCaution, "Target pH 8 is above the safe window (5 - 7)."); len(got) != 1 {
		t.Fatalf("pH warnings = %+v", warnings)
	}
	if HasBlocking(warnings) {
		t.Fatalf("HasBlocking() = true for %+v", warnings)
	}
}

func TestValidateNeverFailsOnUnknownIngredients(t *testing.T) {
	t.Parallel()

	f := formulaOf(0, phase("a", item("a1", "ghost", 100), item("a2", "", 0)))
	f.Regions = map[string]bool{"EU": true}
	warnings := Validate(f, nil)
	if warnings == nil {
		t.Fatalf("Validate() = nil, want empty slice")
	}
	if HasBlocking(warnings) {
		t.Fatalf("Validate() with unknown ingredients = %+v, want no blocking", warnings)
	}
}
