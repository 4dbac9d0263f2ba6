package models

import (
	"time"

	"gorm.io/datatypes"
)

// Solubility classes recognised by the phase balance calculator.
const (
	SolubilityWater = "water"
	SolubilityOil   = "oil"
	SolubilityOther = "other"
)

// Ingredient is an immutable reference record for a cosmetic raw material.
// Optional numeric properties are pointers so that "absent" differs from zero.
type Ingredient struct {
	ID           string             `json:"id" yaml:"id"`
	INCIName     string             `json:"inciName" yaml:"inciName"`
	TradeName    string             `json:"tradeName,omitempty" yaml:"tradeName,omitempty"`
	FunctionTags []string           `json:"functionTags" yaml:"functionTags"`
	Solubility   []string           `json:"solubility" yaml:"solubility"`
	UsageMinPct  *float64           `json:"usageMinPct,omitempty" yaml:"usageMinPct,omitempty"`
	UsageMaxPct  *float64           `json:"usageMaxPct,omitempty" yaml:"usageMaxPct,omitempty"`
	HLB          *float64           `json:"hlb,omitempty" yaml:"hlb,omitempty"`
	RequiredHLB  *float64           `json:"requiredHLB,omitempty" yaml:"requiredHLB,omitempty"`
	PHRangeMin   *float64           `json:"pHRangeMin,omitempty" yaml:"pHRangeMin,omitempty"`
	PHRangeMax   *float64           `json:"pHRangeMax,omitempty" yaml:"pHRangeMax,omitempty"`
	TempMaxC     *float64           `json:"tempMaxC,omitempty" yaml:"tempMaxC,omitempty"`
	CostPerKgUSD float64            `json:"costPerKgUSD,omitempty" yaml:"costPerKgUSD,omitempty"`
	Regulatory   map[string]float64 `json:"regulatory,omitempty" yaml:"regulatory,omitempty"`
}

// HasTag reports whether the ingredient carries the given function tag.
func (i Ingredient) HasTag(tag string) bool {
	for _, t := range i.FunctionTags {
		if t == tag {
			return true
		}
	}
	return false
}

// SolubleIn reports whether the ingredient lists the given solubility class.
func (i Ingredient) SolubleIn(class string) bool {
	for _, s := range i.Solubility {
		if s == class {
			return true
		}
	}
	return false
}

// IngredientRecord persists a library entry. The full record lives in Data so
// that optional fields and maps survive untouched.
type IngredientRecord struct {
	ID        string                         `gorm:"primaryKey;size:128" json:"id"`
	INCIName  string                         `gorm:"not null;index" json:"inciName"`
	Data      datatypes.JSONType[Ingredient] `gorm:"not null" json:"data"`
	CreatedAt time.Time                      `json:"createdAt"`
	UpdatedAt time.Time                      `json:"updatedAt"`
}

// NewIngredientRecord wraps an ingredient for storage.
func NewIngredientRecord(ingredient Ingredient) IngredientRecord {
	return IngredientRecord{
		ID:       ingredient.ID,
		INCIName: ingredient.INCIName,
		Data:     datatypes.NewJSONType(ingredient),
	}
}
