package formula

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"aloniva/internal/catalog"
	"aloniva/models"
)

// ErrInvalidImport is returned when an uploaded document cannot be turned
// into a formula.
var ErrInvalidImport = errors.New("formula: invalid import")

// ParseJSON reads an exported formula document. The document must carry a
// phases array; numeric fields are coerced leniently so that "12.5" and 12.5
// are equivalent and garbage becomes zero. A missing id is generated and a
// missing name falls back to fallbackName.
func ParseJSON(data []byte, fallbackName string) (models.Formula, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return models.Formula{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	rawPhases, ok := doc["phases"].([]any)
	if !ok {
		return models.Formula{}, fmt.Errorf("%w: missing phases", ErrInvalidImport)
	}

	f := models.Formula{
		ID:          str(doc, "id"),
		Name:        str(doc, "name"),
		Version:     str(doc, "version"),
		ProductType: str(doc, "productType"),
		BatchSize:   catalog.ToFloat(doc["batchSize"]),
		TargetPH:    optFloat(doc, "targetPH"),
		TargetTempC: optFloat(doc, "targetTempC"),
		Notes:       str(doc, "notes"),
		Regions:     map[string]bool{},
		Phases:      make([]models.Phase, 0, len(rawPhases)),
	}
	if f.ID == "" {
		f.ID = newID("formula")
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(strings.TrimSuffix(fallbackName, ".json"), ".JSON")
	}
	if f.Version == "" {
		f.Version = "v1.0"
	}
	if regions, ok := doc["regions"].(map[string]any); ok {
		for region, on := range regions {
			b, _ := on.(bool)
			f.Regions[region] = b
		}
	}
	if costing, ok := doc["costing"].(map[string]any); ok {
		f.Costing = &models.Costing{
			PackagingUSD:   optFloat(costing, "packagingUSD"),
			LaborUSD:       optFloat(costing, "laborUSD"),
			OverheadUSD:    optFloat(costing, "overheadUSD"),
			TargetPriceUSD: optFloat(costing, "targetPriceUSD"),
		}
	}

	for _, rp := range rawPhases {
		pm, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		phase := models.Phase{
			ID:          str(pm, "id"),
			Name:        str(pm, "name"),
			Temperature: optFloat(pm, "temperature"),
			Items:       []models.FormulaItem{},
		}
		if phase.ID == "" {
			phase.ID = newID("phase")
		}
		items, _ := pm["items"].([]any)
		for _, ri := range items {
			im, ok := ri.(map[string]any)
			if !ok {
				continue
			}
			item := models.FormulaItem{
				ID:             str(im, "id"),
				IngredientID:   str(im, "ingredientId"),
				IngredientName: str(im, "ingredientName"),
				Function:       str(im, "function"),
				Percent:        catalog.ToFloat(im["percent"]),
				Grams:          catalog.ToFloat(im["grams"]),
				Notes:          str(im, "notes"),
			}
			if item.ID == "" {
				item.ID = newID("item")
			}
			phase.Items = append(phase.Items, item)
		}
		f.Phases = append(f.Phases, phase)
	}
	return f, nil
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func optFloat(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil
	}
	return models.Float(catalog.ToFloat(v))
}

// row is one ingredient line recovered from a CSV or sheet import.
type row struct {
	phase   string
	name    string
	percent float64
	grams   float64
	notes   string
}

// ParseCSV reads the CSV export format back into a formula. Rows are grouped
// into phases by phase name in order of first appearance and ingredients are
// resolved by id, INCI name or trade name.
func ParseCSV(r io.Reader, name string, idx catalog.Index) (models.Formula, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return models.Formula{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(records) == 0 {
		return models.Formula{}, fmt.Errorf("%w: empty csv", ErrInvalidImport)
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		cols[catalog.NormaliseKey(h)] = i
	}
	phaseCol, okPhase := cols["phase"]
	nameCol, okName := cols["ingredient"]
	pctCol, okPct := cols["percent"]
	if !okPhase || !okName || !okPct {
		return models.Formula{}, fmt.Errorf("%w: csv header must include Phase, Ingredient and Percent", ErrInvalidImport)
	}
	gramsCol, okGrams := cols["grams"]
	notesCol, okNotes := cols["notes"]
	tradeCol, okTrade := cols["tradename"]

	cell := func(rec []string, i int, ok bool) string {
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []row
	for _, rec := range records[1:] {
		r := row{
			phase:   cell(rec, phaseCol, true),
			name:    cell(rec, nameCol, true),
			percent: catalog.ToFloat(cell(rec, pctCol, true)),
			grams:   catalog.ToFloat(cell(rec, gramsCol, okGrams)),
			notes:   cell(rec, notesCol, okNotes),
		}
		if r.name == "" {
			r.name = cell(rec, tradeCol, okTrade)
		}
		if r.name == "" && r.percent == 0 {
			continue
		}
		rows = append(rows, r)
	}
	return fromRows(rows, name, idx), nil
}

var sheetLine = regexp.MustCompile(`([^\n\]]+?)\s+—\s+(-?[0-9.]+)%\s+\((-?[0-9.]+) g\)\s+\[([^\]\n]*)\]`)
var sheetField = regexp.MustCompile(`(?m)^(Formula|Version|Batch Size|Product Type):\s*(.+?)\s*$`)

// ParseSheet reads the plain-text formula sheet written by WriteSheet.
func ParseSheet(text, name string, idx catalog.Index) (models.Formula, error) {
	matches := sheetLine.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return models.Formula{}, fmt.Errorf("%w: no ingredient lines found", ErrInvalidImport)
	}
	rows := make([]row, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, row{
			phase:   strings.TrimSpace(m[4]),
			name:    strings.TrimSpace(m[1]),
			percent: catalog.ToFloat(m[2]),
			grams:   catalog.ToFloat(m[3]),
		})
	}
	f := fromRows(rows, name, idx)
	for _, m := range sheetField.FindAllStringSubmatch(text, -1) {
		switch m[1] {
		case "Formula":
			if name == "" {
				f.Name = m[2]
			}
		case "Version":
			f.Version = m[2]
		case "Batch Size":
			if size := catalog.ToFloat(strings.TrimSuffix(m[2], " g")); size > 0 {
				f.BatchSize = size
			}
		case "Product Type":
			if m[2] != "—" {
				f.ProductType = m[2]
			}
		}
	}
	return ApplyBatchGrams(f), nil
}

// ParsePDF extracts the text of a printed formula sheet and parses it with
// ParseSheet.
func ParsePDF(data []byte, name string, idx catalog.Index) (models.Formula, error) {
	text, err := ExtractPDFText(data)
	if err != nil {
		return models.Formula{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return ParseSheet(text, name, idx)
}

// ExtractPDFText concatenates the plain text of every page.
func ExtractPDFText(data []byte) (text string, err error) {
	defer func() {
		// The PDF reader panics on some malformed documents.
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func fromRows(rows []row, name string, idx catalog.Index) models.Formula {
	f := NewFormula()
	f.Phases = f.Phases[:0]
	if strings.TrimSpace(name) != "" {
		f.Name = strings.TrimSpace(name)
	}
	f.Notes = ""

	phaseByName := map[string]int{}
	var gramsTotal float64
	for _, r := range rows {
		phaseName := r.phase
		if phaseName == "" {
			phaseName = "Phase A"
		}
		pi, ok := phaseByName[phaseName]
		if !ok {
			pi = len(f.Phases)
			phaseByName[phaseName] = pi
			f.Phases = append(f.Phases, models.Phase{
				ID:          newID("phase"),
				Name:        phaseName,
				Temperature: models.Float(*f.TargetTempC),
				Items:       []models.FormulaItem{},
			})
		}
		item := models.FormulaItem{
			ID:      newID("item"),
			Percent: r.percent,
			Grams:   r.grams,
			Notes:   r.notes,
		}
		if ing, found := idx.FindByName(r.name); found {
			item.IngredientID = ing.ID
			item.IngredientName = ing.INCIName
			if len(ing.FunctionTags) > 0 {
				item.Function = ing.FunctionTags[0]
			}
		} else {
			item.IngredientName = r.name
		}
		gramsTotal += r.grams
		f.Phases[pi].Items = append(f.Phases[pi].Items, item)
	}
	if len(f.Phases) == 0 {
		f.Phases = append(f.Phases, models.Phase{ID: newID("phase"), Name: "Phase A", Temperature: models.Float(75), Items: []models.FormulaItem{}})
	}
	if total := CalcTotals(f).Total; gramsTotal > 0 && total > 0 {
		f.BatchSize = round2(gramsTotal * 100 / total)
	}
	return ApplyBatchGrams(f)
}
