package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/handler"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/cache"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/database"
	"github.com/noah-isme/student-portal-api/pkg/database/migrations"
	"github.com/noah-isme/student-portal-api/pkg/export"
)

// app holds the wired services and the resources they own.
type app struct {
	auth          *service.AuthService
	catalog       *service.CatalogService
	registrations *service.RegistrationService
	selections    *service.SelectionService
	students      *service.StudentService
	exports       *service.ExportService
	metrics       *service.MetricsService
	checks        map[string]handler.ReadinessCheck
	closers       []func() error
}

// openBackend returns the stores for the configured data source.
func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Backend, []func() error, map[string]handler.ReadinessCheck, error) {
	checks := map[string]handler.ReadinessCheck{}
	if cfg.DataSource == config.DataSourceFixture {
		store, err := repository.NewFixtureStore()
		if err != nil {
			return repository.Backend{}, nil, nil, fmt.Errorf("load fixture catalog: %w", err)
		}
		logr.Info("using fixture data source")
		return store.Backend(), nil, checks, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return repository.Backend{}, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
			_ = db.Close()
			return repository.Backend{}, nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	return repository.NewPostgresBackend(db), []func() error{db.Close}, checks, nil
}

// openSelectionStore returns the Redis store when configured, else the in-process one.
func openSelectionStore(ctx context.Context, cfg *config.Config) (repository.SelectionStore, *redis.Client, error) {
	if cfg.Selection.Store != config.SelectionStoreRedis {
		return repository.NewMemorySelectionRepository(cfg.Selection.TTL), nil, nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRedisSelectionRepository(client, cfg.Selection.TTL), client, nil
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	backend, closers, checks, err := openBackend(ctx, cfg, logr)
	if err != nil {
		return nil, err
	}
	selectionStore, redisClient, err := openSelectionStore(ctx, cfg)
	if err != nil {
		closeAll(closers, logr)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		closers = append(closers, redisClient.Close)
	}
	return wire(cfg, logr, backend, selectionStore, checks, closers), nil
}

func wire(cfg *config.Config, logr *zap.Logger, backend repository.Backend, selectionStore repository.SelectionStore, checks map[string]handler.ReadinessCheck, closers []func() error) *app {
	validate := validator.New()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	auth := service.NewAuthService(backend.Students, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	catalog := service.NewCatalogService(backend.Courses, logr)
	registrations := service.NewRegistrationService(backend.Registrations, validate, metrics, logr, service.RegistrationConfig{
		CreditCeiling: cfg.Registration.CreditCeiling,
		CurrentTerm:   cfg.Registration.CurrentTerm,
		AcademicYear:  cfg.Registration.AcademicYear,
		LedgerTimeout: cfg.Registration.LedgerTimeout,
	})
	workflow := service.NewRegistrationWorkflow(registrations, registrations.CreditCeiling(), metrics, logr)
	selections := service.NewSelectionService(selectionStore, catalog, registrations, workflow, validate, logr, registrations.ResolveTerm(""), registrations.CreditCeiling())
	students := service.NewStudentService(backend.Students, registrations, logr)
	exports := service.NewExportService(students, logr, export.NewCSVExporter(), export.NewPDFExporter())

	return &app{
		auth:          auth,
		catalog:       catalog,
		registrations: registrations,
		selections:    selections,
		students:      students,
		exports:       exports,
		metrics:       metrics,
		checks:        checks,
		closers:       closers,
	}
}

func (a *app) Close(logr *zap.Logger) {
	closeAll(a.closers, logr)
}

func closeAll(closers []func() error, logr *zap.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logr.Warn("close resource", zap.Error(err))
		}
	}
}
