// Package formula implements the formulation engine: derived metrics for a
// formula (totals, solubility balance, HLB, preservative adequacy, pH window,
// heat alerts, costing), the validator that turns them into warnings, and the
// editing, template, import and export helpers built around them.
//
// Every function here is pure. Inputs are never mutated and results never
// alias the caller's formula, so calls are safe from concurrent requests.
package formula

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// BalanceTolerance is the allowed deviation from 100% before a formula is
// reported as imbalanced.
const BalanceTolerance = 0.01

// PreservativeWaterThreshold is the water percentage at and above which a
// preservative system is required.
const PreservativeWaterThreshold = 20.0

// HLB status values.
const (
	HLBOK       = "ok"
	HLBWatch    = "watch"
	HLBCritical = "critical"
)

// Totals reports the sum of every item percent.
type Totals struct {
	Total      float64 `json:"total"`
	Deviation  float64 `json:"deviation"`
	IsBalanced bool    `json:"isBalanced"`
}

// CalcTotals sums every item percent across all phases.
func CalcTotals(f models.Formula) Totals {
	var total float64
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			total += catalog.Finite(item.Percent)
		}
	}
	deviation := math.Abs(total - 100)
	return Totals{
		Total:      total,
		Deviation:  deviation,
		IsBalanced: deviation <= BalanceTolerance,
	}
}

// ApplyBatchGrams returns a copy of f with every item's grams projected from
// the batch size. A zero, negative or non-finite batch size leaves the grams
// exactly as they were.
func ApplyBatchGrams(f models.Formula) models.Formula {
	out := f.Clone()
	batch := catalog.Finite(f.BatchSize)
	if batch <= 0 {
		return out
	}
	for i := range out.Phases {
		for j := range out.Phases[i].Items {
			item := &out.Phases[i].Items[j]
			item.Grams = round2(batch * catalog.Finite(item.Percent) / 100)
		}
	}
	return out
}

// DataPoint is one chart-ready slice of the solubility breakdown.
type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Breakdown buckets percentages by solubility class.
type Breakdown struct {
	Water   float64     `json:"water"`
	Oil     float64     `json:"oil"`
	Other   float64     `json:"other"`
	Dataset []DataPoint `json:"dataset"`
}

// CalcBreakdown buckets each item's percent into water, oil or other by its
// ingredient's solubility. Unassigned and unknown ingredients count as other.
func CalcBreakdown(f models.Formula, idx catalog.Index) Breakdown {
	var b Breakdown
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			pct := catalog.Finite(item.Percent)
			ing, ok := idx.Lookup(item.IngredientID)
			switch {
			case !ok:
				b.Other += pct
			case ing.SolubleIn(models.SolubilityWater):
				b.Water += pct
			case ing.SolubleIn(models.SolubilityOil):
				b.Oil += pct
			default:
				b.Other += pct
			}
		}
	}
	b.Dataset = []DataPoint{
		{Label: "Water Phase", Value: round2(b.Water), Color: "#1DD4E7"},
		{Label: "Oil Phase", Value: round2(b.Oil), Color: "#0A1D37"},
		{Label: "Other", Value: round2(b.Other), Color: "#6C757D"},
	}
	return b
}

// PhaseTotal is the summed percent of a single phase.
type PhaseTotal struct {
	PhaseID string  `json:"phaseId"`
	Name    string  `json:"name"`
	Total   float64 `json:"total"`
}

// CalcPhaseTotals sums percentages per phase, in phase order.
func CalcPhaseTotals(f models.Formula) []PhaseTotal {
	out := make([]PhaseTotal, 0, len(f.Phases))
	for _, phase := range f.Phases {
		var total float64
		for _, item := range phase.Items {
			total += catalog.Finite(item.Percent)
		}
		out = append(out, PhaseTotal{PhaseID: phase.ID, Name: phase.Name, Total: round2(total)})
	}
	return out
}

// HLB compares the oil phase's required HLB with the emulsifier system's.
type HLB struct {
	OilTotal        float64 `json:"oilTotal"`
	EmulsifierTotal float64 `json:"emulsifierTotal"`
	RequiredHLB     float64 `json:"requiredHLB"`
	EmulsifierHLB   float64 `json:"emulsifierHLB"`
	Delta           float64 `json:"delta"`
	Status          string  `json:"status"`
}

// CalcHLB computes percent-weighted averages of the required HLB of oils and
// emollients and of the HLB of emulsifiers. Oil items without a required HLB
// still count towards the oil total.
func CalcHLB(f models.Formula, idx catalog.Index) HLB {
	var required, supplied, oilTotal, emulsifierTotal float64
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			pct := catalog.Finite(item.Percent)
			if !ok || pct == 0 {
				continue
			}
			if ing.SolubleIn(models.SolubilityOil) || ing.HasTag("emollient") {
				if ing.RequiredHLB != nil {
					required += pct * catalog.Finite(*ing.RequiredHLB)
				}
				oilTotal += pct
			}
			if IsEmulsifier(ing) {
				supplied += pct * emulsifierValue(ing)
				emulsifierTotal += pct
			}
		}
	}

	var requiredAvg, suppliedAvg float64
	if oilTotal != 0 {
		requiredAvg = required / oilTotal
	}
	if emulsifierTotal != 0 {
		suppliedAvg = supplied / emulsifierTotal
	}
	delta := math.Abs(requiredAvg - suppliedAvg)

	return HLB{
		OilTotal:        oilTotal,
		EmulsifierTotal: emulsifierTotal,
		RequiredHLB:     round2(requiredAvg),
		EmulsifierHLB:   round2(suppliedAvg),
		Delta:           round2(delta),
		Status:          hlbStatus(delta),
	}
}

func hlbStatus(delta float64) string {
	switch {
	case delta > 2:
		return HLBCritical
	case delta > 1:
		return HLBWatch
	default:
		return HLBOK
	}
}

// IsEmulsifier reports whether the ingredient takes part in the emulsifier
// system.
func IsEmulsifier(ing models.Ingredient) bool {
	return ing.HasTag("primary emulsifier") || ing.HasTag("emulsifier") || ing.HasTag("co-emulsifier")
}

func emulsifierValue(ing models.Ingredient) float64 {
	if ing.HLB != nil && catalog.Finite(*ing.HLB) != 0 {
		return *ing.HLB
	}
	if ing.RequiredHLB != nil {
		return catalog.Finite(*ing.RequiredHLB)
	}
	return 0
}

// RangeWarning is a corrective message for a preservative dosed outside its
// usage bounds.
type RangeWarning struct {
	PhaseID string `json:"phaseId"`
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// Preservative reports whether the formula needs and has a preservative.
type Preservative struct {
	WaterPct             float64        `json:"waterPct"`
	RequiresPreservative bool           `json:"requiresPreservative"`
	HasPreservative      bool           `json:"hasPreservative"`
	RangeWarnings        []RangeWarning `json:"rangeWarnings"`
}

// CalcPreservative checks preservative presence against the water content and
// each preservative's dosage against its usage bounds.
func CalcPreservative(f models.Formula, idx catalog.Index) Preservative {
	water := CalcBreakdown(f, idx).Water
	out := Preservative{
		WaterPct:             water,
		RequiresPreservative: water >= PreservativeWaterThreshold,
		RangeWarnings:        []RangeWarning{},
	}
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			if !ok || !ing.HasTag("preservative") {
				continue
			}
			out.HasPreservative = true
			pct := catalog.Finite(item.Percent)
			msg := ""
			switch {
			case positive(ing.UsageMinPct) && pct < *ing.UsageMinPct:
				msg = "Increase " + ing.INCIName + " to at least " + num(*ing.UsageMinPct) + "%"
			case positive(ing.UsageMaxPct) && pct > *ing.UsageMaxPct:
				msg = "Reduce " + ing.INCIName + " to " + num(*ing.UsageMaxPct) + "%"
			}
			if msg != "" {
				out.RangeWarnings = append(out.RangeWarnings, RangeWarning{PhaseID: phase.ID, ItemID: item.ID, Message: msg})
			}
		}
	}
	return out
}

// PH is the compatible pH window derived from every ingredient in use.
type PH struct {
	RecommendedMin *float64 `json:"recommendedMin"`
	RecommendedMax *float64 `json:"recommendedMax"`
	Warnings       []string `json:"warnings"`
}

// CalcPH intersects the pH ranges of all assigned ingredients and checks the
// target pH against the result. An inverted window can trigger both warnings.
func CalcPH(f models.Formula, idx catalog.Index, target *float64) PH {
	var lo, hi *float64
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			if !ok {
				continue
			}
			if ing.PHRangeMin != nil && (lo == nil || *ing.PHRangeMin > *lo) {
				lo = models.Float(*ing.PHRangeMin)
			}
			if ing.PHRangeMax != nil && (hi == nil || *ing.PHRangeMax < *hi) {
				hi = models.Float(*ing.PHRangeMax)
			}
		}
	}

	out := PH{RecommendedMin: lo, RecommendedMax: hi, Warnings: []string{}}
	if target == nil {
		return out
	}
	t := *target
	if lo != nil && t < *lo {
		out.Warnings = append(out.Warnings, "Target pH "+num(t)+" is below the safe window ("+bound(lo)+" - "+bound(hi)+").")
	}
	if hi != nil && t > *hi {
		out.Warnings = append(out.Warnings, "Target pH "+num(t)+" is above the safe window ("+bound(lo)+" - "+bound(hi)+").")
	}
	return out
}

// HeatAlert flags an ingredient processed above its temperature ceiling.
type HeatAlert struct {
	PhaseID        string  `json:"phaseId"`
	ItemID         string  `json:"itemId"`
	IngredientID   string  `json:"ingredientId"`
	IngredientName string  `json:"ingredientName"`
	Limit          float64 `json:"limit"`
	Actual         float64 `json:"actual"`
}

// CalcHeat resolves each phase's effective temperature (its own, else the
// fallback) and reports items whose ingredient ceiling lies below it.
func CalcHeat(f models.Formula, idx catalog.Index, fallback *float64) []HeatAlert {
	alerts := []HeatAlert{}
	for _, phase := range f.Phases {
		temp := effectiveTemperature(phase.Temperature, fallback)
		if temp == 0 {
			continue
		}
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			if !ok || ing.TempMaxC == nil {
				continue
			}
			if temp > *ing.TempMaxC {
				alerts = append(alerts, HeatAlert{
					PhaseID:        phase.ID,
					ItemID:         item.ID,
					IngredientID:   ing.ID,
					IngredientName: ing.INCIName,
					Limit:          *ing.TempMaxC,
					Actual:         temp,
				})
			}
		}
	}
	return alerts
}

func effectiveTemperature(own, fallback *float64) float64 {
	if own != nil && catalog.Finite(*own) != 0 {
		return *own
	}
	if fallback != nil {
		return catalog.Finite(*fallback)
	}
	return 0
}

// Costing is the per-unit cost and margin of a batch. Money values are
// rounded to cents.
type Costing struct {
	RawCost          float64 `json:"rawCost"`
	Packaging        float64 `json:"packaging"`
	Labor            float64 `json:"labor"`
	Overhead         float64 `json:"overhead"`
	TotalCostPerUnit float64 `json:"totalCostPerUnit"`
	TargetPrice      float64 `json:"targetPrice"`
	Margin           float64 `json:"margin"`
}

// DefaultCosting holds the fallback cost assumptions.
var DefaultCosting = models.Costing{
	PackagingUSD:   models.Float(0.40),
	LaborUSD:       models.Float(0.35),
	OverheadUSD:    models.Float(0.50),
	TargetPriceUSD: models.Float(12),
}

// Options tunes a summary. Costing fields resolve from Costing, then the
// formula's own costing, then Defaults, then DefaultCosting.
type Options struct {
	Costing  *models.Costing
	Defaults *models.Costing
}

// CalcCosting converts each item to kilograms at the current batch size and
// prices it, then adds the fixed per-unit costs.
func CalcCosting(f models.Formula, idx catalog.Index, c models.Costing) Costing {
	batch := decimal.NewFromFloat(catalog.Finite(f.BatchSize))
	hundred := decimal.NewFromInt(100)
	thousand := decimal.NewFromInt(1000)

	raw := decimal.Zero
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			if !ok {
				continue
			}
			pct := decimal.NewFromFloat(catalog.Finite(item.Percent))
			kg := batch.Mul(pct).Div(hundred).Div(thousand)
			raw = raw.Add(kg.Mul(decimal.NewFromFloat(catalog.Finite(ing.CostPerKgUSD))))
		}
	}

	packaging := money(c.PackagingUSD)
	labor := money(c.LaborUSD)
	overhead := money(c.OverheadUSD)
	target := money(c.TargetPriceUSD)
	total := raw.Add(packaging).Add(labor).Add(overhead)

	margin := decimal.Zero
	if !target.IsZero() {
		margin = target.Sub(total).Div(target).Mul(hundred)
	}

	return Costing{
		RawCost:          cents(raw),
		Packaging:        cents(packaging),
		Labor:            cents(labor),
		Overhead:         cents(overhead),
		TotalCostPerUnit: cents(total),
		TargetPrice:      cents(target),
		Margin:           cents(margin),
	}
}

// ResolveCosting merges costing assumptions field by field in the order
// documented on Options.
func ResolveCosting(f models.Formula, opts Options) models.Costing {
	layers := []*models.Costing{opts.Costing, f.Costing, opts.Defaults, &DefaultCosting}
	pick := func(get func(*models.Costing) *float64) *float64 {
		for _, layer := range layers {
			if layer == nil {
				continue
			}
			if v := get(layer); v != nil {
				return models.Float(*v)
			}
		}
		return nil
	}
	return models.Costing{
		PackagingUSD:   pick(func(c *models.Costing) *float64 { return c.PackagingUSD }),
		LaborUSD:       pick(func(c *models.Costing) *float64 { return c.LaborUSD }),
		OverheadUSD:    pick(func(c *models.Costing) *float64 { return c.OverheadUSD }),
		TargetPriceUSD: pick(func(c *models.Costing) *float64 { return c.TargetPriceUSD }),
	}
}

// Summary aggregates every calculator result for one formula.
type Summary struct {
	Totals       Totals       `json:"totals"`
	PhaseTotals  []PhaseTotal `json:"phaseTotals"`
	Breakdown    Breakdown    `json:"breakdown"`
	HLB          HLB          `json:"hlb"`
	Preservative Preservative `json:"preservative"`
	PH           PH           `json:"ph"`
	Heat         []HeatAlert  `json:"heat"`
	Costing      Costing      `json:"costing"`
}

// Summarize runs every calculator against f.
func Summarize(f models.Formula, idx catalog.Index, opts Options) Summary {
	return Summary{
		Totals:       CalcTotals(f),
		PhaseTotals:  CalcPhaseTotals(f),
		Breakdown:    CalcBreakdown(f, idx),
		HLB:          CalcHLB(f, idx),
		Preservative: CalcPreservative(f, idx),
		PH:           CalcPH(f, idx, f.TargetPH),
		Heat:         CalcHeat(f, idx, f.TargetTempC),
		Costing:      CalcCosting(f, idx, ResolveCosting(f, opts)),
	}
}

func round2(v float64) float64 {
	return math.Round(catalog.Finite(v)*100) / 100
}

func money(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(catalog.Finite(*v))
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func bound(v *float64) string {
	if v == nil {
		return "—"
	}
	return num(*v)
}
