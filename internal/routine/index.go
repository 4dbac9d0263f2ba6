package routine

import (
	"strings"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// BuildIndex derives the step, tags and price tier of every product. Steps
// already set on a product are kept. The input slice is not modified.
func BuildIndex(products []models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		p.PriceUGX = catalog.Finite(p.PriceUGX)
		if strings.TrimSpace(p.Step) == "" {
			p.Step = InferStep(p.Name)
		}
		p.Tags = deriveTags(p)
		p.Tier = TierFor(p.PriceUGX)
		out = append(out, p)
	}
	return out
}

func deriveTags(p models.Product) []string {
	fields := make([]string, 0, len(p.Tags)+len(p.Badges)+3)
	fields = append(fields, p.Tags...)
	fields = append(fields, p.Name)
	fields = append(fields, p.Badges...)
	fields = append(fields, p.Category, p.Description)

	seen := make(map[string]bool)
	tags := []string{}
	for _, tok := range Tokenize(fields...) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		tags = append(tags, tok)
	}
	return tags
}

// MatchesConcern reports whether a product addresses a concern through its
// tags or its name and description.
func MatchesConcern(p models.Product, concern string) bool {
	concern = catalog.Fold(strings.TrimSpace(concern))
	if concern == "" {
		return false
	}
	keywords, ok := ConcernKeywords[concern]
	if !ok {
		keywords = []string{concern}
	}
	haystack := catalog.Fold(p.Name + " " + p.Description)
	for _, kw := range keywords {
		if containsAny(p.Tags, kw) || strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
