package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"aloniva/models"
)

// Fold lowercases s and strips diacritics, so "Crème" becomes "creme".
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// NormaliseKey folds s and drops everything that is not a letter or digit.
func NormaliseKey(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TagMatches reports whether an ingredient tag satisfies a function key. Both
// sides are normalised and match on equality or containment either way.
func TagMatches(tag, function string) bool {
	a, b := NormaliseKey(tag), NormaliseKey(function)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// FitsFunction reports whether any of the ingredient's tags match function.
func FitsFunction(ing models.Ingredient, function string) bool {
	for _, tag := range ing.FunctionTags {
		if TagMatches(tag, function) {
			return true
		}
	}
	return false
}

// LibraryForFunction lists the ingredients a formula item with the given
// function may choose from, sorted by INCI name. A blank function returns the
// whole library. When nothing matches, the item's current ingredient is kept
// as the only choice if it resolves.
func (idx Index) LibraryForFunction(function, currentID string) []models.Ingredient {
	if NormaliseKey(function) == "" {
		return idx.Library()
	}
	var out []models.Ingredient
	for _, ing := range idx {
		if FitsFunction(ing, function) {
			out = append(out, ing)
		}
	}
	if len(out) == 0 {
		if ing, ok := idx.Lookup(currentID); ok {
			return []models.Ingredient{ing}
		}
		return []models.Ingredient{}
	}
	sortByINCI(out)
	return out
}

// Category is a function tag offered as an ingredient filter.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Categories collects the distinct function tags across the library, sorted
// by label.
func Categories(library []models.Ingredient) []Category {
	seen := make(map[string]bool)
	var out []Category
	for _, ing := range library {
		for _, tag := range ing.FunctionTags {
			key := NormaliseKey(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Category{Key: key, Label: titleCase(tag)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
