package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aloniva/internal/catalog"
	"aloniva/internal/db"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/internal/store"
	"aloniva/models"
)

// Staff credentials seeded into the mock database.
const (
	StaffEmail    = "lab@aloniva.ug"
	StaffPassword = "formulate"
)

// New returns an in-memory sqlite database seeded with the ingredient
// library, the sample formulas and one staff account.
func New(ctx context.Context) (*gorm.DB, error) {
	return Open(ctx, "file:aloniva-mock?mode=memory&cache=shared")
}

// Open is New with an explicit sqlite DSN, letting tests isolate databases.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	var users int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users == 0 {
		password, err := bcrypt.GenerateFromPassword([]byte(StaffPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &models.User{
			Name:         "Aloniva Lab",
			Email:        StaffEmail,
			PasswordHash: string(password),
		}
		if err := database.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
	}

	library, err := catalog.Default()
	if err != nil {
		return err
	}
	s := store.New(database)
	if _, err := s.SeedIngredients(ctx, library); err != nil {
		return err
	}
	if _, err := s.SeedSampleFormulas(ctx, formula.SampleFormulas(catalog.BuildIndex(library))); err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
