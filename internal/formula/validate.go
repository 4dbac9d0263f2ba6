package formula

import (
	"fmt"
	"sort"
	"strings"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// FragranceLeaveOnMax is the recommended fragrance ceiling for leave-on
// products, in percent.
const FragranceLeaveOnMax = 0.8

// anhydrousOtherCeiling bounds the "other" bucket for the anhydrous note.
const anhydrousOtherCeiling = 5.0

// Validate runs every check against f and returns the findings grouped by
// check. It never fails: malformed input degrades to zero values.
func Validate(f models.Formula, idx catalog.Index) []models.Warning {
	warnings := []models.Warning{}
	add := func(level models.WarningLevel, msg string, ref *models.WarningRef) {
		warnings = append(warnings, models.Warning{Level: level, Message: msg, Ref: ref})
	}

	totals := CalcTotals(f)
	if !totals.IsBalanced {
		add(models.LevelBlocking, fmt.Sprintf("Total percentages equal %.2f%%. Adjust until you reach 100%%.", totals.Total), nil)
	}

	breakdown := CalcBreakdown(f, idx)
	preservative := CalcPreservative(f, idx)
	if preservative.RequiresPreservative && !preservative.HasPreservative {
		add(models.LevelBlocking, "Water content is ≥ 20%, but no preservative is present. Add a broad-spectrum system.", nil)
	}
	for _, rw := range preservative.RangeWarnings {
		add(models.LevelCaution, rw.Message, ref(rw.PhaseID, rw.ItemID))
	}

	hlb := CalcHLB(f, idx)
	switch hlb.Status {
	case HLBCritical:
		add(models.LevelBlocking, fmt.Sprintf("HLB delta is %s. Select emulsifiers closer to the required HLB %s (currently %s).",
			num(hlb.Delta), num(hlb.RequiredHLB), num(hlb.EmulsifierHLB)), nil)
	case HLBWatch:
		add(models.LevelCaution, fmt.Sprintf("HLB delta is %s. Stability may be compromised.", num(hlb.Delta)), nil)
	}

	for _, msg := range CalcPH(f, idx, f.TargetPH).Warnings {
		add(models.LevelCaution, msg, nil)
	}

	for _, alert := range CalcHeat(f, idx, f.TargetTempC) {
		add(models.LevelCaution, fmt.Sprintf("%s overheats (limit %s°C, current %s°C).",
			alert.IngredientName, num(alert.Limit), num(alert.Actual)), ref(alert.PhaseID, alert.ItemID))
	}

	regions := f.SelectedRegions()
	sort.Strings(regions)
	if len(regions) > 0 {
		for _, phase := range f.Phases {
			for _, item := range phase.Items {
				ing, ok := idx.Lookup(item.IngredientID)
				if !ok {
					continue
				}
				pct := catalog.Finite(item.Percent)
				for _, region := range regions {
					limit, capped := ing.Regulatory[region]
					if !capped || limit <= 0 || pct <= limit {
						continue
					}
					add(models.LevelBlocking, fmt.Sprintf("%s exceeds %s limit (%s%% > %s%%).",
						ing.INCIName, region, num(pct), num(limit)), ref(phase.ID, item.ID))
				}
			}
		}
	}

	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			ing, ok := idx.Lookup(item.IngredientID)
			if !ok || !isFragrance(ing) {
				continue
			}
			if catalog.Finite(item.Percent) > FragranceLeaveOnMax {
				add(models.LevelCaution, fmt.Sprintf("%s exceeds recommended leave-on fragrance maximum (%s%%).",
					ing.INCIName, num(FragranceLeaveOnMax)), ref(phase.ID, item.ID))
			}
		}
	}

	if breakdown.Water == 0 && breakdown.Oil > 0 && hlb.EmulsifierTotal == 0 && breakdown.Other < anhydrousOtherCeiling {
		add(models.LevelInfo, "Formula appears anhydrous. Ensure packaging prevents moisture ingress.", nil)
	}

	return warnings
}

// HasBlocking reports whether any warning should block a save.
func HasBlocking(warnings []models.Warning) bool {
	for _, w := range warnings {
		if w.Level == models.LevelBlocking {
			return true
		}
	}
	return false
}

func isFragrance(ing models.Ingredient) bool {
	return ing.HasTag("fragrance") || strings.Contains(strings.ToLower(ing.INCIName), "fragrance")
}

func ref(phaseID, itemID string) *models.WarningRef {
	return &models.WarningRef{PhaseID: phaseID, ItemID: itemID}
}
