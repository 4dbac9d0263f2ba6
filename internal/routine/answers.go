package routine

import (
	"strings"

	"aloniva/internal/catalog"
)

// Answers is a completed questionnaire.
type Answers struct {
	Skin        string   `json:"skin"`
	Category    []string `json:"category"`
	Concern     []string `json:"concern"`
	Sensitivity string   `json:"sensitivity"`
	Fragrance   string   `json:"fragrance"`
	Pregnancy   bool     `json:"pregnancy"`
	SPF         *bool    `json:"spf"`
	Budget      string   `json:"budget"`
	Complexity  string   `json:"complexity"`

	// RequiredStep is set while scoring candidates for a routine step.
	RequiredStep string `json:"-"`
}

// Answer defaults and option values.
const (
	SensitivityHigh   = "high"
	SensitivityMedium = "medium"

	FragranceEither = "either"
	FragranceNone   = "no-fragrance"

	ComplexityQuick    = "quick"
	ComplexityStandard = "standard"
	ComplexityAdvanced = "advanced"

	SkinDry  = "dry"
	SkinOily = "oily"
)

var skinAliases = map[string]string{
	"dry skin":       "dry",
	"oily skin":      "oily",
	"sensitive skin": "sensitive",
	"balanced":       "balanced",
}

// NormalizeAnswers folds case and accents, maps the questionnaire's skin
// labels onto skin types and fills defaults for unanswered options.
func NormalizeAnswers(a Answers) Answers {
	out := a
	out.Skin = fold(a.Skin)
	if alias, ok := skinAliases[out.Skin]; ok {
		out.Skin = alias
	}
	out.Category = foldAll(a.Category)
	out.Concern = foldAll(a.Concern)
	out.Sensitivity = orDefault(fold(a.Sensitivity), SensitivityMedium)
	out.Fragrance = orDefault(fold(a.Fragrance), FragranceEither)
	out.Budget = fold(a.Budget)
	out.Complexity = orDefault(fold(a.Complexity), ComplexityStandard)
	spf := true
	if a.SPF != nil {
		spf = *a.SPF
	}
	out.SPF = &spf
	return out
}

// WantsSPF reports whether sunscreen belongs in the AM routine. Unanswered
// counts as yes.
func (a Answers) WantsSPF() bool {
	return a.SPF == nil || *a.SPF
}

func fold(s string) string {
	return catalog.Fold(strings.TrimSpace(s))
}

func foldAll(values []string) []string {
	out := []string{}
	for _, v := range values {
		if f := fold(v); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
