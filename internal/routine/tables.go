// Package routine turns a short skincare questionnaire into ranked AM/PM
// product picks from the storefront catalog.
//
// The keyword tables below drive step inference and concern matching. They
// are plain data so they can be tested and tuned without touching the
// scoring code. All comparisons are case and accent insensitive.
package routine

import (
	"regexp"
	"strings"

	"aloniva/internal/catalog"
)

// Routine steps.
const (
	StepCleanser    = "cleanser"
	StepSunscreen   = "sunscreen"
	StepMoisturizer = "moisturizer"
	StepSerum       = "serum"
	StepSpot        = "spot"
	StepToner       = "toner"
	// StepTreatment is a pipeline-only step that draws from serums and
	// treatments.
	StepTreatment = "treatment"
)

// Price tiers.
const (
	TierLow     = "low"
	TierMedium  = "medium"
	TierPremium = "premium"
)

// Tier boundaries in whole UGX.
const (
	mediumTierFloor  = 35000
	premiumTierFloor = 65000
)

// KeywordRule maps a label to the substrings that select it.
type KeywordRule struct {
	Label    string
	Patterns []string
}

// StepKeywords is checked in order against a product name; the first rule
// with a matching pattern wins.
var StepKeywords = []KeywordRule{
	{Label: StepCleanser, Patterns: []string{"cleanser", "wash", "foam", "gel wash"}},
	{Label: StepSunscreen, Patterns: []string{"sunscreen", "spf", "sun screen", "uv"}},
	{Label: StepMoisturizer, Patterns: []string{"moistur", "cream", "lotion", "butter", "emulsion"}},
	{Label: StepSerum, Patterns: []string{"serum", "essence", "booster", "ampoule"}},
	{Label: StepSpot, Patterns: []string{"spot", "treatment", "gel", "blemish"}},
	{Label: StepToner, Patterns: []string{"toner", "tonic", "mist"}},
}

// DefaultStep is used when no step keyword matches.
const DefaultStep = StepSerum

// ConcernKeywords lists the tag and text fragments that satisfy a concern.
// Concerns missing from the table match on their own name.
var ConcernKeywords = map[string][]string{
	"acne":         {"acne", "breakout", "blemish", "clarifying", "clarify", "spot", "pimple"},
	"oil":          {"oil", "sebum", "oil-control", "shine", "matte"},
	"hydration":    {"hydration", "hydrate", "moisture", "moisturizing", "dehydration", "plump", "water"},
	"barrier":      {"barrier", "repair", "ceramide", "recovery", "strengthen"},
	"pigmentation": {"pigmentation", "hyperpigmentation", "dark", "spot", "uneven", "tone"},
	"brightening":  {"brighten", "brightening", "glow", "radiance", "vitamin-c"},
	"soothing":     {"soothing", "calming", "sensitive", "redness", "comfort"},
	"aging":        {"aging", "anti-aging", "firm", "lifting", "retinol", "lines", "wrinkle"},
}

// ConcernLabels are the shopper-facing names used in reasons.
var ConcernLabels = map[string]string{
	"acne":         "breakouts",
	"oil":          "oil control",
	"hydration":    "hydration",
	"barrier":      "barrier repair",
	"pigmentation": "dark spots",
	"brightening":  "radiance",
	"soothing":     "sensitivity",
	"aging":        "fine lines",
}

// acneFamily concerns add a PM spot step.
var acneFamily = []string{"acne", "breakouts", "blemish"}

var (
	strongActiveTags = []string{"strong-acid", "retinoid", "retinol"}
	pregnancyTags    = []string{"retinoid", "retinol", "high-salicylic"}
	fragranceFree    = []string{"fragrance-free", "fragrancefree"}

	richTexture  = regexp.MustCompile(`(?i)(butter|balm|cream|ointment)`)
	oilyExcluded = regexp.MustCompile(`(?i)(butter|ointment|jelly|moisturizer|moisturiser|cream)`)
	tagSplitter  = regexp.MustCompile(`[^a-z0-9\-+%]+`)
)

// MatchKeyword returns the label of the first rule with a pattern contained
// in text, or "" when none matches.
func MatchKeyword(rules []KeywordRule, text string) string {
	folded := catalog.Fold(text)
	for _, rule := range rules {
		for _, pattern := range rule.Patterns {
			if strings.Contains(folded, pattern) {
				return rule.Label
			}
		}
	}
	return ""
}

// InferStep classifies a product by name.
func InferStep(name string) string {
	if step := MatchKeyword(StepKeywords, name); step != "" {
		return step
	}
	return DefaultStep
}

// TierFor buckets a price.
func TierFor(price float64) string {
	switch {
	case price < mediumTierFloor:
		return TierLow
	case price < premiumTierFloor:
		return TierMedium
	default:
		return TierPremium
	}
}

// Tokenize splits free text into lowercase tag fragments.
func Tokenize(parts ...string) []string {
	var out []string
	for _, part := range parts {
		for _, tok := range tagSplitter.Split(catalog.Fold(part), -1) {
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// ConcernLabel returns the shopper-facing label of a concern.
func ConcernLabel(concern string) string {
	if label, ok := ConcernLabels[concern]; ok {
		return label
	}
	return concern
}

func containsAny(set []string, values ...string) bool {
	for _, v := range values {
		for _, s := range set {
			if s == v {
				return true
			}
		}
	}
	return false
}
