package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"aloniva/internal/catalog"
	"aloniva/internal/config"
	"aloniva/internal/db"
	applog "aloniva/internal/log"
	"aloniva/internal/store"
	"aloniva/models"
)

var (
	bracketPattern  = regexp.MustCompile(`\[[^\]]*\]`)
	numberPattern   = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	cleanWhitespace = regexp.MustCompile(`\s+`)
	slugPattern     = regexp.MustCompile(`[^a-z0-9]+`)
	regionColumn    = regexp.MustCompile(`(?i)^([a-z]{2}) max %$`)
)

func main() {
	csvPath := "ingredient library.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(context.Background(), csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("locate csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.UseMock {
		return errors.New("DATABASE_URL must point at a real database")
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	records, err := readCSV(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	imported, err := importIngredients(ctx, database, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d ingredients from %s\n", imported, filepath.Base(csvPath))
	return nil
}

// importIngredients validates every row before writing any of them.
func importIngredients(ctx context.Context, database *gorm.DB, records []map[string]string) (int, error) {
	library := make([]models.Ingredient, 0, len(records))
	seen := make(map[string]int, len(records))
	for idx, record := range records {
		ingredient := buildIngredient(record)
		if ingredient.INCIName == "" {
			applog.Debug(ctx, "skipping row without INCI name", "row", idx+1)
			continue
		}
		if err := catalog.Validate(ingredient); err != nil {
			return 0, fmt.Errorf("record %d (%s): %w", idx+1, ingredient.INCIName, err)
		}
		if prev, ok := seen[ingredient.ID]; ok {
			return 0, fmt.Errorf("record %d (%s): duplicates id %s from record %d", idx+1, ingredient.INCIName, ingredient.ID, prev)
		}
		seen[ingredient.ID] = idx + 1
		library = append(library, ingredient)
	}

	if err := store.New(database).UpsertIngredients(ctx, library); err != nil {
		return 0, err
	}
	return len(library), nil
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func buildIngredient(row map[string]string) models.Ingredient {
	name := normalizeText(row["INCI Name"])
	id := normalizeValue(row["ID"])
	if id == "" && name != "" {
		id = "ing-" + slugify(name)
	}

	ingredient := models.Ingredient{
		ID:           id,
		INCIName:     name,
		TradeName:    normalizeText(row["Trade Name"]),
		FunctionTags: splitList(row["Functions"], true),
		Solubility:   splitList(row["Solubility"], true),
		UsageMinPct:  parseFirstNumber(row["Usage Min %"]),
		UsageMaxPct:  parseFirstNumber(row["Usage Max %"]),
		HLB:          parseFirstNumber(row["HLB"]),
		RequiredHLB:  parseFirstNumber(row["Required HLB"]),
		PHRangeMin:   parseFirstNumber(row["pH Min"]),
		PHRangeMax:   parseFirstNumber(row["pH Max"]),
		TempMaxC:     parseFirstNumber(row["Max Temp C"]),
	}
	if cost := parseFirstNumber(row["Cost per kg USD"]); cost != nil {
		ingredient.CostPerKgUSD = *cost
	}

	for key, value := range row {
		m := regionColumn.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		limit := parseFirstNumber(value)
		if limit == nil {
			continue
		}
		if ingredient.Regulatory == nil {
			ingredient.Regulatory = make(map[string]float64)
		}
		ingredient.Regulatory[strings.ToUpper(m[1])] = *limit
	}

	return ingredient
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	value = normalizeValue(value)
	if value == "" {
		return value
	}
	value = cleanWhitespace.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// parseFirstNumber returns nil for blank or non-numeric cells.
func parseFirstNumber(value string) *float64 {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func splitList(value string, lower bool) []string {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}
	value = strings.ReplaceAll(value, ";", ",")
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		clean := stripFootnotes(part)
		if lower {
			clean = strings.ToLower(clean)
		}
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}

func stripFootnotes(value string) string {
	return strings.TrimSpace(bracketPattern.ReplaceAllString(value, ""))
}

func slugify(value string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(value), "-"), "-")
}
