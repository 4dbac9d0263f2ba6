package models

import (
	"time"

	"gorm.io/datatypes"
)

// Formula is a cosmetic recipe expressed as ordered phases of weighted ingredients.
type Formula struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	ProductType string          `json:"productType"`
	BatchSize   float64         `json:"batchSize"`
	TargetPH    *float64        `json:"targetPH"`
	TargetTempC *float64        `json:"targetTempC"`
	Notes       string          `json:"notes"`
	Regions     map[string]bool `json:"regions"`
	Costing     *Costing        `json:"costing,omitempty"`
	Phases      []Phase         `json:"phases"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Phase groups items combined at a common process temperature.
type Phase struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Temperature *float64      `json:"temperature"`
	Items       []FormulaItem `json:"items"`
}

// Costing overrides the default per-unit cost assumptions. Nil fields fall back
// to the configured defaults; an explicit zero is honoured.
type Costing struct {
	PackagingUSD   *float64 `json:"packagingUSD,omitempty"`
	LaborUSD       *float64 `json:"laborUSD,omitempty"`
	OverheadUSD    *float64 `json:"overheadUSD,omitempty"`
	TargetPriceUSD *float64 `json:"targetPriceUSD,omitempty"`
}

// SelectedRegions lists the regulatory regions switched on for the formula.
func (f Formula) SelectedRegions() []string {
	regions := make([]string, 0, len(f.Regions))
	for region, on := range f.Regions {
		if on {
			regions = append(regions, region)
		}
	}
	return regions
}

// Clone returns a deep copy that shares no slices, maps or pointers with f.
func (f Formula) Clone() Formula {
	out := f
	out.TargetPH = cloneFloat(f.TargetPH)
	out.TargetTempC = cloneFloat(f.TargetTempC)
	out.CreatedAt = cloneTime(f.CreatedAt)
	out.UpdatedAt = cloneTime(f.UpdatedAt)
	if f.Regions != nil {
		out.Regions = make(map[string]bool, len(f.Regions))
		for k, v := range f.Regions {
			out.Regions[k] = v
		}
	}
	if f.Costing != nil {
		c := Costing{
			PackagingUSD:   cloneFloat(f.Costing.PackagingUSD),
			LaborUSD:       cloneFloat(f.Costing.LaborUSD),
			OverheadUSD:    cloneFloat(f.Costing.OverheadUSD),
			TargetPriceUSD: cloneFloat(f.Costing.TargetPriceUSD),
		}
		out.Costing = &c
	}
	if f.Phases != nil {
		out.Phases = make([]Phase, len(f.Phases))
		for i, phase := range f.Phases {
			p := phase
			p.Temperature = cloneFloat(phase.Temperature)
			if phase.Items != nil {
				p.Items = make([]FormulaItem, len(phase.Items))
				copy(p.Items, phase.Items)
			}
			out.Phases[i] = p
		}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 {
	return &v
}

// FormulaRecord is the stored form of a working formula.
type FormulaRecord struct {
	ID          string                      `gorm:"primaryKey;size:128" json:"id"`
	Name        string                      `gorm:"not null;index" json:"name"`
	Version     string                      `json:"version"`
	ProductType string                      `json:"productType"`
	Document    datatypes.JSONType[Formula] `gorm:"not null" json:"document"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `gorm:"index" json:"updatedAt"`
}
