package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/example/cohort-scheduler/internal/application"
	"github.com/example/cohort-scheduler/internal/config"
	"github.com/example/cohort-scheduler/internal/persistence/sqlite"
	"github.com/example/cohort-scheduler/internal/recurrence"
	"github.com/example/cohort-scheduler/internal/secrets"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// app bundles the wired services a command needs. Every subcommand builds one
// from the environment, uses it, and closes it before exiting.
type app struct {
	logger *slog.Logger
	cfg    config.Config
	pool   *sqlite.ConnectionPool

	resources  *sqlite.ResourceRepository
	sessions   *sqlite.SessionRepository
	cohorts    *sqlite.CohortRepository
	curricula  *sqlite.CurriculumRepository
	sealer     *secrets.Sealer
	activation *application.ActivationService
	lifecycle  *application.LifecycleService
	catalog    *application.ResourceService
}

// cliPrincipal is the identity attached to operations run from the command
// line. The CLI is an operator tool, so it acts with admin rights.
var cliPrincipal = application.Principal{UserID: "cli", IsAdmin: true}

func newApp(ctx context.Context) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	sealer, err := secrets.NewSealer(cfg.CredentialKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	resourceRepo := sqlite.NewResourceRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	cohortRepo := sqlite.NewCohortRepository(pool)
	curriculumRepo := sqlite.NewCurriculumRepository(pool)

	idGenerator := uuid.NewString
	now := time.Now
	factory := sessions.NewFactory(recurrence.NewGenerator(cfg.Location()), idGenerator, now)

	activation := application.NewActivationService(
		cohortRepo, curriculumRepo, resourceRepo, sessionRepo, factory,
		application.ActivationConfig{
			PreflightCacheTTL:       cfg.PreflightCacheTTL,
			PreflightCacheSize:      cfg.PreflightCacheSize,
			SessionsPerResourceHint: cfg.SessionsPerResourceHint,
		},
		now, logger,
	)
	lifecycle := application.NewLifecycleService(cohortRepo, resourceRepo, sessionRepo, activation, now, logger)
	catalog := application.NewResourceService(resourceRepo, sealer, idGenerator, now, logger)

	return &app{
		logger:     logger,
		cfg:        cfg,
		pool:       pool,
		resources:  resourceRepo,
		sessions:   sessionRepo,
		cohorts:    cohortRepo,
		curricula:  curriculumRepo,
		sealer:     sealer,
		activation: activation,
		lifecycle:  lifecycle,
		catalog:    catalog,
	}, nil
}

func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
