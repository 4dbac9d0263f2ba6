package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"aloniva/internal/catalog"
	"aloniva/internal/config"
	"aloniva/internal/db"
	"aloniva/internal/db/mock"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/internal/server"
	"aloniva/internal/store"
	"aloniva/models"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	seedDatabaseFunc    = seedCatalog
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}

	database, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		applog.Error(ctx, "failed to configure database", "error", err)
		return 1
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Costing:  costingDefaults(cfg.Formula),
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		applog.Info(gctx, "starting http server", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			applog.Info(gctx, "shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
			if ctx.Err() == nil {
				return nil
			}
			applog.Info(gctx, "context cancelled")
		}
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		applog.Error(ctx, "server stopped with error", "error", err)
		return 1
	}
	applog.Info(ctx, "server stopped")
	return 0
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UseMock {
		applog.Info(ctx, "using in-memory mock database")
		return newMockDatabaseFunc(ctx)
	}
	database, err := configureDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := seedDatabaseFunc(ctx, database); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return database, nil
}

// seedCatalog fills an empty ingredient table and formula list with the
// embedded library and template samples.
func seedCatalog(ctx context.Context, database *gorm.DB) error {
	library, err := catalog.Default()
	if err != nil {
		return err
	}
	s := store.New(database)
	ingredients, err := s.SeedIngredients(ctx, library)
	if err != nil {
		return err
	}
	samples, err := s.SeedSampleFormulas(ctx, formula.SampleFormulas(catalog.BuildIndex(library)))
	if err != nil {
		return err
	}
	applog.Info(ctx, "catalog seeded", "ingredients", ingredients, "formulas", samples)
	return nil
}

func costingDefaults(cfg config.FormulaConfig) models.Costing {
	return models.Costing{
		PackagingUSD:   models.Float(cfg.PackagingUSD),
		LaborUSD:       models.Float(cfg.LaborUSD),
		OverheadUSD:    models.Float(cfg.OverheadUSD),
		TargetPriceUSD: models.Float(cfg.TargetPriceUSD),
	}
}
