// Package catalog provides the ingredient library and storefront product
// catalog consumed by the formula and routine engines.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"aloniva/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Index maps ingredient ids to their reference records. It is built once and
// only read afterwards, so it is safe to share between goroutines.
type Index map[string]models.Ingredient

// BuildIndex keys the library by ingredient id. Entries without an id are
// skipped and later duplicates replace earlier ones.
func BuildIndex(library []models.Ingredient) Index {
	idx := make(Index, len(library))
	for _, ing := range library {
		id := strings.TrimSpace(ing.ID)
		if id == "" {
			continue
		}
		idx[id] = ing
	}
	return idx
}

// Lookup resolves an ingredient id. Empty ids never match.
func (idx Index) Lookup(id string) (models.Ingredient, bool) {
	if id == "" || idx == nil {
		return models.Ingredient{}, false
	}
	ing, ok := idx[id]
	return ing, ok
}

// Name returns the INCI name for id, or an empty string when unknown.
func (idx Index) Name(id string) string {
	ing, ok := idx.Lookup(id)
	if !ok {
		return ""
	}
	return ing.INCIName
}

// Library returns the indexed ingredients sorted by INCI name.
func (idx Index) Library() []models.Ingredient {
	out := make([]models.Ingredient, 0, len(idx))
	for _, ing := range idx {
		out = append(out, ing)
	}
	sortByINCI(out)
	return out
}

// FindByName resolves an ingredient by id, INCI name or trade name, ignoring
// case and accents.
func (idx Index) FindByName(name string) (models.Ingredient, bool) {
	if ing, ok := idx.Lookup(strings.TrimSpace(name)); ok {
		return ing, true
	}
	key := NormaliseKey(name)
	if key == "" {
		return models.Ingredient{}, false
	}
	for _, ing := range idx.Library() {
		if NormaliseKey(ing.INCIName) == key || (ing.TradeName != "" && NormaliseKey(ing.TradeName) == key) {
			return ing, true
		}
	}
	return models.Ingredient{}, false
}

func sortByINCI(list []models.Ingredient) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].INCIName), strings.ToLower(list[j].INCIName)
		if a == b {
			return list[i].ID < list[j].ID
		}
		return a < b
	})
}

var (
	defaultOnce    sync.Once
	defaultLibrary []models.Ingredient
	defaultErr     error
)

// Default returns a copy of the embedded ingredient library.
func Default() ([]models.Ingredient, error) {
	defaultOnce.Do(func() {
		defaultLibrary, defaultErr = LoadIngredients("data/ingredients.yaml")
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	out := make([]models.Ingredient, len(defaultLibrary))
	copy(out, defaultLibrary)
	return out, nil
}

// MustDefault is like Default but panics if the embedded library is invalid.
func MustDefault() []models.Ingredient {
	library, err := Default()
	if err != nil {
		panic(err)
	}
	return library
}

// LoadIngredients decodes an embedded YAML ingredient file.
func LoadIngredients(name string) ([]models.Ingredient, error) {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read ingredient library: %w", err)
	}
	var library []models.Ingredient
	if err := yaml.Unmarshal(raw, &library); err != nil {
		return nil, fmt.Errorf("decode ingredient library: %w", err)
	}
	for i := range library {
		if err := Validate(library[i]); err != nil {
			return nil, err
		}
	}
	return library, nil
}

// Validate checks the reference-data invariants of a single ingredient.
func Validate(ing models.Ingredient) error {
	if strings.TrimSpace(ing.ID) == "" {
		return fmt.Errorf("ingredient %q has no id", ing.INCIName)
	}
	for _, v := range []*float64{ing.UsageMinPct, ing.UsageMaxPct} {
		if v != nil && *v < 0 {
			return fmt.Errorf("ingredient %s has a negative usage bound", ing.ID)
		}
	}
	if ing.UsageMinPct != nil && ing.UsageMaxPct != nil && *ing.UsageMinPct > *ing.UsageMaxPct {
		return fmt.Errorf("ingredient %s usage min %v exceeds max %v", ing.ID, *ing.UsageMinPct, *ing.UsageMaxPct)
	}
	for region, limit := range ing.Regulatory {
		if limit < 0 {
			return fmt.Errorf("ingredient %s has a negative %s cap", ing.ID, region)
		}
	}
	return nil
}
