package catalog

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"aloniva/models"
)

// rawProduct mirrors the storefront data file, where prices may be written as
// numbers or as formatted strings such as "UGX 26,900".
type rawProduct struct {
	ID          string   `yaml:"id"`
	Brand       string   `yaml:"brand"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	PriceUGX    any      `yaml:"priceUGX"`
	WasUGX      any      `yaml:"wasUGX"`
	Size        string   `yaml:"size"`
	Image       string   `yaml:"image"`
	Description string   `yaml:"description"`
	Badges      []string `yaml:"badges"`
}

var (
	productsOnce sync.Once
	products     []models.Product
	productsErr  error
)

// Products returns a copy of the embedded storefront catalog.
func Products() ([]models.Product, error) {
	productsOnce.Do(func() {
		products, productsErr = DecodeProducts(mustRead("data/products.yaml"))
	})
	if productsErr != nil {
		return nil, productsErr
	}
	out := make([]models.Product, len(products))
	for i, p := range products {
		p.Badges = append([]string(nil), p.Badges...)
		out[i] = p
	}
	return out, nil
}

// DecodeProducts parses a YAML (or JSON) product list, coercing prices to
// whole currency units. Products without an id or name are dropped.
func DecodeProducts(raw []byte) ([]models.Product, error) {
	var rows []rawProduct
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.ID) == "" || strings.TrimSpace(row.Name) == "" {
			continue
		}
		out = append(out, models.Product{
			ID:          row.ID,
			Brand:       row.Brand,
			Name:        row.Name,
			Category:    row.Category,
			PriceUGX:    ToPrice(row.PriceUGX),
			WasUGX:      ToPrice(row.WasUGX),
			Size:        row.Size,
			Image:       row.Image,
			Description: row.Description,
			Badges:      row.Badges,
		})
	}
	return out, nil
}

func mustRead(name string) []byte {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("catalog: missing embedded file %s: %v", name, err))
	}
	return raw
}
