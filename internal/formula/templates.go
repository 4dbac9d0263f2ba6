package formula

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"aloniva/internal/catalog"
	"aloniva/models"
)

//go:embed data/templates.yaml
var templateFS embed.FS

// Template is a built-in starting point for a new formula.
type Template struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	BatchSize   float64         `json:"batchSize" yaml:"batchSize"`
	ProductType string          `json:"productType" yaml:"productType"`
	TargetPH    *float64        `json:"targetPH" yaml:"targetPH"`
	TargetTempC *float64        `json:"targetTempC" yaml:"targetTempC"`
	Notes       string          `json:"notes" yaml:"notes"`
	Regions     map[string]bool `json:"regions" yaml:"regions"`
	Phases      []TemplatePhase `json:"phases" yaml:"phases"`
}

// TemplatePhase is a phase inside a Template.
type TemplatePhase struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Temperature *float64       `json:"temperature" yaml:"temperature"`
	Items       []TemplateItem `json:"items" yaml:"items"`
}

// TemplateItem references a library ingredient by id.
type TemplateItem struct {
	ID           string  `json:"id" yaml:"id"`
	IngredientID string  `json:"ingredientId" yaml:"ingredientId"`
	Function     string  `json:"function" yaml:"function"`
	Percent      float64 `json:"percent" yaml:"percent"`
	Notes        string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

var (
	templatesOnce sync.Once
	templates     []Template
	templatesErr  error
)

func loadTemplates() ([]Template, error) {
	templatesOnce.Do(func() {
		raw, err := templateFS.ReadFile("data/templates.yaml")
		if err != nil {
			templatesErr = fmt.Errorf("read templates: %w", err)
			return
		}
		if err := yaml.Unmarshal(raw, &templates); err != nil {
			templatesErr = fmt.Errorf("decode templates: %w", err)
		}
	})
	return templates, templatesErr
}

// Templates lists the built-in templates.
func Templates() []Template {
	list, err := loadTemplates()
	if err != nil {
		panic(err)
	}
	out := make([]Template, len(list))
	copy(out, list)
	return out
}

// TemplateByID finds a built-in template.
func TemplateByID(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Formula materialises the template with its own ids, so that the result can
// be saved without clashing with the template or other copies.
func (t Template) Formula(idx catalog.Index) models.Formula {
	f := t.document(idx)
	f.ID = newID("formula")
	for i := range f.Phases {
		f.Phases[i].ID = newID("phase")
		for j := range f.Phases[i].Items {
			f.Phases[i].Items[j].ID = newID("item")
		}
	}
	return ApplyBatchGrams(f)
}

func (t Template) document(idx catalog.Index) models.Formula {
	regions := t.Regions
	if len(regions) == 0 {
		regions = map[string]bool{"UG": true, "EA": true, "EU": true, "US": true}
	}
	f := models.Formula{
		Name:        t.Name,
		Version:     "v1.0",
		ProductType: t.ProductType,
		BatchSize:   t.BatchSize,
		TargetPH:    t.TargetPH,
		TargetTempC: t.TargetTempC,
		Notes:       t.Notes,
		Regions:     regions,
		Phases:      make([]models.Phase, 0, len(t.Phases)),
	}
	for _, tp := range t.Phases {
		phase := models.Phase{ID: tp.ID, Name: tp.Name, Temperature: tp.Temperature, Items: make([]models.FormulaItem, 0, len(tp.Items))}
		for _, ti := range tp.Items {
			phase.Items = append(phase.Items, models.FormulaItem{
				ID:             ti.ID,
				IngredientID:   ti.IngredientID,
				IngredientName: idx.Name(ti.IngredientID),
				Function:       ti.Function,
				Percent:        ti.Percent,
				Notes:          ti.Notes,
			})
		}
		f.Phases = append(f.Phases, phase)
	}
	// Clone detaches the template's shared maps and pointers.
	return f.Clone()
}

// SampleFormulas builds the demo formulas offered on first run from the first
// two templates. Their ids are stable ("sample-<template id>") and grams are
// left at zero until the formula is saved.
func SampleFormulas(idx catalog.Index) []models.Formula {
	list := Templates()
	if len(list) > 2 {
		list = list[:2]
	}
	out := make([]models.Formula, 0, len(list))
	for _, t := range list {
		f := t.document(idx)
		f.ID = "sample-" + t.ID
		out = append(out, f)
	}
	return out
}
