package routine

import (
	"aloniva/internal/catalog"
	"aloniva/models"
)

// Score weights.
const (
	stepMatchPoints     = 30
	categoryMatchPoints = 12
	concernPoints       = 10
	skinTagPoints       = 6
	fragranceFreePoints = 4
	fragrancePenalty    = -6
	strongActivePenalty = -18
	pregnancyPenalty    = -50
	pregnancySafePoints = 2
	dryComfortPoints    = 6
	budgetMatchPoints   = 3
)

// Evaluation is the outcome of scoring one product.
type Evaluation struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// ScoreProduct rates an indexed product against the answers. Reasons are
// listed in the order the rules fire. Answers are expected to be normalised.
func ScoreProduct(p models.Product, a Answers) Evaluation {
	ev := Evaluation{Reasons: []string{}}
	hit := func(points int, reason string) {
		ev.Score += points
		if reason != "" {
			ev.Reasons = append(ev.Reasons, reason)
		}
	}

	if a.RequiredStep != "" && p.Step == a.RequiredStep {
		hit(stepMatchPoints, "Ideal for "+p.Step+" step")
	}

	if len(a.Category) > 0 && containsAny(a.Category, catalog.Fold(p.Category)) {
		hit(categoryMatchPoints, "Matches "+p.Category+" range")
	}

	for _, concern := range a.Concern {
		if MatchesConcern(p, concern) {
			hit(concernPoints, "Targets "+ConcernLabel(concern))
		}
	}

	if a.Skin != "" && containsAny(p.Tags, a.Skin) {
		hit(skinTagPoints, "Supports "+a.Skin+" skin")
	}

	if a.Fragrance == FragranceNone {
		if containsAny(p.Tags, fragranceFree...) {
			hit(fragranceFreePoints, "Fragrance-free")
		} else {
			hit(fragrancePenalty, "")
		}
	}

	if a.Sensitivity == SensitivityHigh && containsAny(p.Tags, strongActiveTags...) {
		hit(strongActivePenalty, "Potent actives, patch test first")
	}

	// Pregnancy is a strong nudge rather than an exclusion.
	if a.Pregnancy {
		if containsAny(p.Tags, pregnancyTags...) {
			hit(pregnancyPenalty, "Not pregnancy recommended")
		} else {
			hit(pregnancySafePoints, "")
		}
	}

	if a.Skin == SkinDry && (p.Step == StepMoisturizer || richTexture.MatchString(p.Name)) {
		hit(dryComfortPoints, "Comforts dry skin")
	}

	if a.Budget != "" && p.Tier == a.Budget {
		hit(budgetMatchPoints, "Fits "+a.Budget+" budget")
	}

	return ev
}
