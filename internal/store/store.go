// Package store persists formula documents, their version history and the
// ingredient library through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/models"
)

var (
	// ErrFormulaNotFound is returned when no formula has the requested id.
	ErrFormulaNotFound = errors.New("formula not found")
	// ErrVersionNotFound is returned when no version has the requested id.
	ErrVersionNotFound = errors.New("version not found")
)

// Store reads and writes formulas on a gorm handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New wraps a migrated database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Models lists the records the store needs migrated.
func Models() []any {
	return []any{&models.FormulaRecord{}, &models.FormulaVersion{}, &models.IngredientRecord{}}
}

// Save upserts a formula document. A missing id is generated. CreatedAt is
// kept from the stored row and UpdatedAt is stamped on every call.
func (s *Store) Save(ctx context.Context, f models.Formula) (models.Formula, error) {
	doc := f.Clone()
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FormulaRecord
		err := tx.Where("id = ?", doc.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := now
			if doc.CreatedAt != nil {
				created = doc.CreatedAt.UTC()
			}
			doc.CreatedAt = &created
			doc.UpdatedAt = &now
			record := newRecord(doc)
			return tx.Create(&record).Error
		case err != nil:
			return err
		}

		created := existing.CreatedAt
		doc.CreatedAt = &created
		doc.UpdatedAt = &now
		record := newRecord(doc)
		return tx.Model(&models.FormulaRecord{}).Where("id = ?", doc.ID).Updates(map[string]any{
			"name":         record.Name,
			"version":      record.Version,
			"product_type": record.ProductType,
			"document":     record.Document,
			"updated_at":   record.UpdatedAt,
		}).Error
	})
	if err != nil {
		return models.Formula{}, fmt.Errorf("save formula %s: %w", doc.ID, err)
	}

	applog.Debug(ctx, "formula saved", "formula_id", doc.ID)
	return doc.Clone(), nil
}

func newRecord(doc models.Formula) models.FormulaRecord {
	return models.FormulaRecord{
		ID:          doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		ProductType: doc.ProductType,
		Document:    datatypes.NewJSONType(doc),
		CreatedAt:   *doc.CreatedAt,
		UpdatedAt:   *doc.UpdatedAt,
	}
}

// Load returns the formula with the given id.
func (s *Store) Load(ctx context.Context, id string) (models.Formula, error) {
	var record models.FormulaRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Formula{}, ErrFormulaNotFound
		}
		return models.Formula{}, fmt.Errorf("load formula %s: %w", id, err)
	}
	return record.Document.Data().Clone(), nil
}

// List returns every formula, most recently updated first.
func (s *Store) List(ctx context.Context) ([]models.Formula, error) {
	var records []models.FormulaRecord
	if err := s.db.WithContext(ctx).Order("updated_at desc, id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list formulas: %w", err)
	}
	out := make([]models.Formula, 0, len(records))
	for _, record := range records {
		out = append(out, record.Document.Data().Clone())
	}
	return out, nil
}

// Delete removes a formula. Its version history is kept.
func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FormulaRecord{})
	if result.Error != nil {
		return fmt.Errorf("delete formula %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFormulaNotFound
	}
	applog.Debug(ctx, "formula deleted", "formula_id", id)
	return nil
}

// VersionID builds the history key of a snapshot.
func VersionID(formulaID string, at time.Time) string {
	return formulaID + ":" + at.UTC().Format(time.RFC3339Nano)
}

// SaveVersion appends an immutable snapshot of f to its history.
func (s *Store) SaveVersion(ctx context.Context, f models.Formula, note string) (models.Version, error) {
	if strings.TrimSpace(f.ID) == "" {
		return models.Version{}, fmt.Errorf("save version: formula id must not be empty")
	}
	at := s.now()
	row := models.FormulaVersion{
		VersionID: VersionID(f.ID, at),
		FormulaID: f.ID,
		Name:      f.Name,
		Note:      note,
		Snapshot:  datatypes.NewJSONType(f.Clone()),
		CreatedAt: at,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Version{}, fmt.Errorf("save version of %s: %w", f.ID, err)
	}
	applog.Debug(ctx, "formula version saved", "formula_id", f.ID, "version_id", row.VersionID)
	return row.ToVersion(), nil
}

// ListVersions returns the history of a formula, newest first.
func (s *Store) ListVersions(ctx context.Context, formulaID string) ([]models.Version, error) {
	var rows []models.FormulaVersion
	if err := s.db.WithContext(ctx).
		Where("formula_id = ?", formulaID).
		Order("created_at desc, version_id desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", formulaID, err)
	}
	out := make([]models.Version, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToVersion())
	}
	return out, nil
}

// RestoreVersion returns an unsaved working copy of a snapshot. History is
// not modified.
func (s *Store) RestoreVersion(ctx context.Context, versionID string) (models.Formula, error) {
	var row models.FormulaVersion
	if err := s.db.WithContext(ctx).Where("version_id = ?", versionID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Formula{}, ErrVersionNotFound
		}
		return models.Formula{}, fmt.Errorf("restore version %s: %w", versionID, err)
	}
	return row.ToVersion().Snapshot, nil
}

// SeedIngredients stores the library when the ingredient table is empty.
func (s *Store) SeedIngredients(ctx context.Context, library []models.Ingredient) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.IngredientRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count ingredients: %w", err)
	}
	if count > 0 || len(library) == 0 {
		return 0, nil
	}
	records := make([]models.IngredientRecord, 0, len(library))
	for _, ingredient := range library {
		records = append(records, models.NewIngredientRecord(ingredient))
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, 100).Error; err != nil {
		return 0, fmt.Errorf("seed ingredients: %w", err)
	}
	applog.Info(ctx, "ingredient library seeded", "count", len(records))
	return len(records), nil
}

// UpsertIngredients writes ingredients, replacing rows with the same id.
func (s *Store) UpsertIngredients(ctx context.Context, library []models.Ingredient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ingredient := range library {
			record := models.NewIngredientRecord(ingredient)
			if err := tx.Save(&record).Error; err != nil {
				return fmt.Errorf("upsert ingredient %s: %w", ingredient.ID, err)
			}
		}
		return nil
	})
}

// IngredientLibrary returns the stored library ordered by INCI name.
func (s *Store) IngredientLibrary(ctx context.Context) ([]models.Ingredient, error) {
	var records []models.IngredientRecord
	if err := s.db.WithContext(ctx).Order("inci_name asc, id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load ingredient library: %w", err)
	}
	out := make([]models.Ingredient, 0, len(records))
	for _, record := range records {
		out = append(out, record.Data.Data())
	}
	return out, nil
}

// SeedSampleFormulas stores the sample formulas when no formula exists yet.
func (s *Store) SeedSampleFormulas(ctx context.Context, samples []models.Formula) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.FormulaRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count formulas: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for _, sample := range samples {
		if _, err := s.Save(ctx, formula.ApplyBatchGrams(sample)); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}
