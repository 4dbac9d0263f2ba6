package models

// Product is a storefront catalog entry as seen by the routine engine.
// Step, Tags and Tier are derived when the catalog is indexed.
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Brand       string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	PriceUGX    float64  `json:"priceUGX" yaml:"priceUGX"`
	WasUGX      float64  `json:"wasUGX,omitempty" yaml:"wasUGX,omitempty"`
	Size        string   `json:"size,omitempty" yaml:"size,omitempty"`
	Image       string   `json:"image,omitempty" yaml:"image,omitempty"`
	Description string   `json:"description" yaml:"description"`
	Badges      []string `json:"badges,omitempty" yaml:"badges,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Step        string   `json:"step,omitempty" yaml:"step,omitempty"`
	Tier        string   `json:"_tier,omitempty" yaml:"-"`
}
