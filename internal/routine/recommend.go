package routine

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// Per-block result limits.
const (
	StepLimit     = 2
	CategoryLimit = 4
)

// Periods.
const (
	PeriodAM = "AM"
	PeriodPM = "PM"
)

// Pick is a scored product.
type Pick struct {
	models.Product
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Block groups the picks for one step or requested category.
type Block struct {
	Step   string `json:"step"`
	Period string `json:"period,omitempty"`
	Items  []Pick `json:"items"`
}

// Recommendation holds the AM and PM routines.
type Recommendation struct {
	AM []Block `json:"am"`
	PM []Block `json:"pm"`
}

// Pipeline lists the steps of each routine.
type Pipeline struct {
	AM []string `json:"am"`
	PM []string `json:"pm"`
}

// BuildPipeline derives the AM and PM step sequences from the requested
// complexity, SPF preference and concerns.
func BuildPipeline(a Answers) Pipeline {
	quick := a.Complexity == ComplexityQuick
	advanced := a.Complexity == ComplexityAdvanced

	am := []string{StepCleanser}
	if !quick {
		am = append(am, StepSerum)
	}
	am = append(am, StepMoisturizer)
	if a.WantsSPF() {
		am = append(am, StepSunscreen)
	}

	pm := []string{StepCleanser}
	if !quick || advanced {
		pm = append(pm, StepSerum)
	}
	if advanced && len(a.Concern) > 0 {
		pm = append(pm, StepTreatment)
	}
	pm = append(pm, StepMoisturizer)
	if containsAny(acneFamily, a.Concern...) {
		pm = append(pm, StepSpot)
	}
	return Pipeline{AM: am, PM: pm}
}

// SelectProducts picks up to StepLimit products for a routine step.
//
// Concerns narrow the pool only when something matches them. Requested
// categories and oily skin are hard filters: when they leave nothing, the
// step is returned empty.
func SelectProducts(products []models.Product, a Answers, step string) []Pick {
	var pool []models.Product
	for _, p := range products {
		if step == StepTreatment {
			if p.Step == StepSerum || p.Step == StepTreatment {
				pool = append(pool, p)
			}
			continue
		}
		if p.Step == step {
			pool = append(pool, p)
		}
	}

	if len(a.Concern) > 0 {
		var matched []models.Product
		for _, p := range pool {
			for _, c := range a.Concern {
				if MatchesConcern(p, c) {
					matched = append(matched, p)
					break
				}
			}
		}
		if len(matched) > 0 {
			pool = matched
		}
	}

	if len(a.Category) > 0 {
		var filtered []models.Product
		for _, p := range pool {
			if containsAny(a.Category, catalog.Fold(p.Category)) {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return []Pick{}
		}
		pool = filtered
	}

	if a.Skin == SkinOily {
		var filtered []models.Product
		for _, p := range pool {
			if p.Step != StepMoisturizer && !oilyExcluded.MatchString(p.Name) {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return []Pick{}
		}
		pool = filtered
	}

	scoring := a
	scoring.RequiredStep = step
	if step == StepTreatment {
		scoring.RequiredStep = StepSerum
	}
	return rank(pool, scoring, StepLimit)
}

// SelectCategory picks up to CategoryLimit products from one category.
func SelectCategory(products []models.Product, a Answers, category string) []Pick {
	want := catalog.Fold(category)
	var pool []models.Product
	for _, p := range products {
		if catalog.Fold(p.Category) == want {
			pool = append(pool, p)
		}
	}
	scoring := a
	scoring.Category = []string{want}
	return rank(pool, scoring, CategoryLimit)
}

func rank(pool []models.Product, a Answers, limit int) []Pick {
	picks := make([]Pick, 0, len(pool))
	for _, p := range pool {
		ev := ScoreProduct(p, a)
		picks = append(picks, Pick{Product: p, Score: ev.Score, Reasons: ev.Reasons})
	}
	sortPicks(picks, func(i int) (int, float64, string) {
		return picks[i].Score, picks[i].PriceUGX, picks[i].Name
	})
	if len(picks) > limit {
		picks = picks[:limit]
	}
	return picks
}

// sortPicks orders by score descending, then price ascending, then name.
func sortPicks[T any](items []T, key func(int) (int, float64, string)) {
	col := collate.New(language.English)
	sort.SliceStable(items, func(i, j int) bool {
		si, pi, ni := key(i)
		sj, pj, nj := key(j)
		if si != sj {
			return si > sj
		}
		if pi != pj {
			return pi < pj
		}
		return col.CompareString(ni, nj) < 0
	})
}

// Recommend builds the routines for a set of answers. When categories are
// requested the result is one AM block per non-empty category; otherwise the
// AM and PM pipelines are filled step by step.
func Recommend(products []models.Product, answers Answers) Recommendation {
	a := NormalizeAnswers(answers)
	indexed := BuildIndex(products)

	if len(a.Category) > 0 {
		rec := Recommendation{AM: []Block{}, PM: []Block{}}
		for _, category := range answers.Category {
			if fold(category) == "" {
				continue
			}
			items := SelectCategory(indexed, a, category)
			if len(items) == 0 {
				continue
			}
			rec.AM = append(rec.AM, Block{Step: category, Items: items})
		}
		return rec
	}

	flow := BuildPipeline(a)
	rec := Recommendation{AM: make([]Block, 0, len(flow.AM)), PM: make([]Block, 0, len(flow.PM))}
	for _, step := range flow.AM {
		rec.AM = append(rec.AM, Block{Step: step, Period: PeriodAM, Items: SelectProducts(indexed, a, step)})
	}
	for _, step := range flow.PM {
		rec.PM = append(rec.PM, Block{Step: step, Period: PeriodPM, Items: SelectProducts(indexed, a, step)})
	}
	return rec
}

// MaxReasons caps the reasons kept on an aggregated entry.
const MaxReasons = 5

// Aggregated is one product as displayed after merging every block it
// appears in.
type Aggregated struct {
	Pick
	Steps   []string `json:"steps"`
	Periods []string `json:"periods"`
}

// Aggregate merges the picks of every block by product id so that no product
// is listed twice. The highest score wins; reasons, steps and periods are
// unioned in first-seen order.
func Aggregate(rec Recommendation) []Aggregated {
	var order []string
	byID := map[string]*Aggregated{}

	push := func(blocks []Block) {
		for _, block := range blocks {
			for _, item := range block.Items {
				if item.ID == "" {
					continue
				}
				existing, ok := byID[item.ID]
				if !ok {
					entry := &Aggregated{
						Pick:    item,
						Steps:   []string{block.Step},
						Periods: []string{},
					}
					entry.Reasons = union(nil, item.Reasons, MaxReasons)
					if block.Period != "" {
						entry.Periods = append(entry.Periods, block.Period)
					}
					byID[item.ID] = entry
					order = append(order, item.ID)
					continue
				}
				if item.Score > existing.Score {
					existing.Score = item.Score
				}
				existing.Reasons = union(existing.Reasons, item.Reasons, MaxReasons)
				existing.Steps = union(existing.Steps, []string{block.Step}, 0)
				if block.Period != "" {
					existing.Periods = union(existing.Periods, []string{block.Period}, 0)
				}
			}
		}
	}
	push(rec.AM)
	push(rec.PM)

	out := make([]Aggregated, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sortPicks(out, func(i int) (int, float64, string) {
		return out[i].Score, out[i].PriceUGX, out[i].Name
	})
	return out
}

func union(base, extra []string, limit int) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := map[string]bool{}
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
