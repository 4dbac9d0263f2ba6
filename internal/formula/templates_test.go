package formula

import (
	"strings"
	"testing"

	"aloniva/internal/catalog"
)

func TestTemplatesAreBalancedAndResolvable(t *testing.T) {
	t.Parallel()

	idx := catalog.BuildIndex(catalog.MustDefault())
	list := Templates()
	if len(list) != 4 {
		t.Fatalf("Templates() = %d, want 4", len(list))
	}
	for _, tmpl := range list {
		tmpl := tmpl
		t.Run(tmpl.ID, func(t *testing.T) {
			t.Parallel()
			f := tmpl.Formula(idx)
			if totals := CalcTotals(f); !totals.IsBalanced {
				t.Fatalf("%s total = %v, want 100", tmpl.Name, totals.Total)
			}
			for _, p := range f.Phases {
				for _, it := range p.Items {
					if _, ok := idx.Lookup(it.IngredientID); !ok {
						t.Fatalf("%s references unknown ingredient %s", tmpl.Name, it.IngredientID)
					}
					if it.IngredientName == "" {
						t.Fatalf("%s item %s has no resolved name", tmpl.Name, it.ID)
					}
				}
			}
			for _, w := range Validate(f, idx) {
				if strings.Contains(w.Message, "limit") || strings.Contains(w.Message, "preservative is present") {
					t.Fatalf("%s unexpected warning %+v", tmpl.Name, w)
				}
			}
		})
	}
}

func TestTemplateFormulaHasFreshIDs(t *testing.T) {
	t.Parallel()

	idx := catalog.BuildIndex(catalog.MustDefault())
	tmpl, ok := TemplateByID("template-gel-serum")
	if !ok {
		t.Fatalf("TemplateByID(template-gel-serum) missing")
	}
	a, b := tmpl.Formula(idx), tmpl.Formula(idx)
	if a.ID == b.ID || a.Phases[0].ID == b.Phases[0].ID {
		t.Fatalf("Formula() reused ids")
	}
	if a.Phases[0].Items[0].Grams != 416 {
		t.Fatalf("water grams = %v, want 416", a.Phases[0].Items[0].Grams)
	}
	a.Regions["EU"] = false
	if !tmpl.Regions["EU"] {
		t.Fatalf("Formula() shares regions with the template")
	}
	if _, ok := TemplateByID("missing"); ok {
		t.Fatalf("TemplateByID(missing) = ok")
	}
}

func TestSampleFormulas(t *testing.T) {
	t.Parallel()

	idx := catalog.BuildIndex(catalog.MustDefault())
	samples := SampleFormulas(idx)
	if len(samples) != 2 {
		t.Fatalf("SampleFormulas() = %d, want 2", len(samples))
	}
	if samples[0].ID != "sample-template-hydrating-lotion" || samples[1].ID != "sample-template-gel-serum" {
		t.Fatalf("sample ids = %s, %s", samples[0].ID, samples[1].ID)
	}
	first := samples[0].Phases[0].Items[0]
	if first.IngredientName != "Aqua" || first.Grams != 0 {
		t.Fatalf("first sample item = %+v", first)
	}
}
