package formula

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// FormatForExport projects grams and resolves every assigned item's
// ingredient name from the index. Names of unknown ids are left untouched.
func FormatForExport(f models.Formula, idx catalog.Index) models.Formula {
	out := ApplyBatchGrams(f)
	for i := range out.Phases {
		for j := range out.Phases[i].Items {
			item := &out.Phases[i].Items[j]
			if ing, ok := idx.Lookup(item.IngredientID); ok {
				item.IngredientName = ing.INCIName
			}
		}
	}
	return out
}

// INCIEntry is one row of the label ingredient list.
type INCIEntry struct {
	INCI    string  `json:"inci"`
	Trade   string  `json:"trade"`
	Percent float64 `json:"percent"`
	Grams   float64 `json:"grams"`
	Phase   string  `json:"phase"`
}

// INCIList flattens the formula into label order: descending percent, ties
// kept in formula order. Unknown ingredients are listed by their raw id.
func INCIList(f models.Formula, idx catalog.Index) []INCIEntry {
	out := []INCIEntry{}
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			entry := INCIEntry{
				INCI:    item.IngredientID,
				Percent: catalog.Finite(item.Percent),
				Grams:   catalog.Finite(item.Grams),
				Phase:   phase.Name,
			}
			if ing, ok := idx.Lookup(item.IngredientID); ok {
				entry.INCI = ing.INCIName
				entry.Trade = ing.TradeName
			}
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}

// Payload is the resolved document handed to export renderers.
type Payload struct {
	Formula  models.Formula   `json:"formula"`
	Summary  Summary          `json:"summary"`
	Warnings []models.Warning `json:"warnings"`
	INCI     []INCIEntry      `json:"inci"`
	FileBase string           `json:"fileBase"`
}

// ExportPayload prepares everything a renderer needs for f.
func ExportPayload(f models.Formula, idx catalog.Index, opts Options, now time.Time) Payload {
	formatted := FormatForExport(f, idx)
	return Payload{
		Formula:  formatted,
		Summary:  Summarize(formatted, idx, opts),
		Warnings: Validate(formatted, idx),
		INCI:     INCIList(formatted, idx),
		FileBase: fileBase(formatted, now),
	}
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
var fileSpaces = regexp.MustCompile(`\s+`)

// FileName builds "<Name>_<version>_<YYYY-MM-DD>.<ext>" using the UTC date.
func FileName(f models.Formula, ext string, now time.Time) string {
	return fileBase(f, now) + "." + strings.TrimPrefix(ext, ".")
}

func fileBase(f models.Formula, now time.Time) string {
	name := f.Name
	if strings.TrimSpace(name) == "" {
		name = "Formula"
	}
	safe := fileSpaces.ReplaceAllString(unsafeFileChars.ReplaceAllString(name, ""), "-")
	version := f.Version
	if version == "" {
		version = "v1.0"
	}
	return safe + "_" + version + "_" + now.UTC().Format("2006-01-02")
}

// CSVHeader is the column layout of the CSV export.
var CSVHeader = []string{"Phase", "Ingredient", "Trade Name", "Percent", "Grams", "Notes"}

// WriteCSV writes one row per item, in phase order.
func WriteCSV(w io.Writer, f models.Formula, idx catalog.Index) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, phase := range f.Phases {
		for _, item := range phase.Items {
			inci, trade := item.IngredientID, ""
			if ing, ok := idx.Lookup(item.IngredientID); ok {
				inci, trade = ing.INCIName, ing.TradeName
			}
			row := []string{
				phase.Name,
				inci,
				trade,
				strconv.FormatFloat(catalog.Finite(item.Percent), 'f', 3, 64),
				strconv.FormatFloat(catalog.Finite(item.Grams), 'f', 2, 64),
				item.Notes,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSheet renders the plain-text formula sheet used for printable
// exports. Each ingredient line reads "<INCI> — <pct>% (<g> g) [<phase>]".
func WriteSheet(w io.Writer, f models.Formula, idx catalog.Index, summary *Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Formula: %s\n", orDefault(f.Name, "Untitled"))
	fmt.Fprintf(&b, "Version: %s\n", orDefault(f.Version, "v1.0"))
	fmt.Fprintf(&b, "Batch Size: %s g\n", num(catalog.Finite(f.BatchSize)))
	fmt.Fprintf(&b, "Product Type: %s\n", orDefault(f.ProductType, "—"))
	fmt.Fprintf(&b, "Target pH: %s  |  Target Temp: %s°C\n", bound(f.TargetPH), bound(f.TargetTempC))
	b.WriteString("\nINCI (Descending %)\n")
	for _, e := range INCIList(f, idx) {
		fmt.Fprintf(&b, "%s — %.2f%% (%.2f g) [%s]\n", e.INCI, e.Percent, e.Grams, e.Phase)
	}
	b.WriteString("\nManufacturing Notes\n")
	b.WriteString(orDefault(f.Notes, "—"))
	b.WriteString("\n")
	regions := f.SelectedRegions()
	sort.Strings(regions)
	fmt.Fprintf(&b, "\nRegulatory Regions: %s\n", orDefault(strings.Join(regions, ", "), "None"))
	if summary != nil {
		b.WriteString("\nQuick Metrics\n")
		fmt.Fprintf(&b, "Total %%: %.2f%%\n", summary.Totals.Total)
		fmt.Fprintf(&b, "Water/Oil/Other: %.1f / %.1f / %.1f\n", summary.Breakdown.Water, summary.Breakdown.Oil, summary.Breakdown.Other)
		fmt.Fprintf(&b, "Cost/Unit: $%.2f | Margin at $%.2f: %.1f%%\n", summary.Costing.TotalCostPerUnit, summary.Costing.TargetPrice, summary.Costing.Margin)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
