package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clinic-assessment-server/internal/api"
	"github.com/clinic-assessment-server/internal/auth"
	"github.com/clinic-assessment-server/internal/cache"
	"github.com/clinic-assessment-server/internal/database"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/metrics"
	"github.com/clinic-assessment-server/internal/repository"
	"github.com/clinic-assessment-server/internal/scoring"
	"github.com/clinic-assessment-server/internal/service"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending Postgres migrations before serving")
	return cmd
}

func runServer(migrateFirst bool) error {
	manager, logger, err := setup(false)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := manager.GetConfig()

	ctx, cancel := signalContext()
	defer cancel()

	if migrateFirst && isPostgres(cfg) {
		if err := migrateUp(ctx, manager, logger); err != nil {
			return err
		}
	}

	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	dashboard, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}
	defer dashboard.Close()

	svc, m, err := newService(manager, store, dashboard, logger)
	if err != nil {
		return err
	}

	authenticator, err := auth.New(cfg.Admin)
	if err != nil {
		return fmt.Errorf("failed to configure admin auth: %w", err)
	}

	server := api.NewServer(api.Dependencies{
		Config:  cfg,
		Service: svc,
		Auth:    authenticator,
		Store:   store,
		Metrics: m,
		Logger:  logger,
	})

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.Database.Driver,
		"clinic":      cfg.Clinic.Name,
		"timezone":    cfg.Clinic.Timezone,
	}).Info("Starting clinic assessment server")

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// newService wires the scoring engine and service. It also returns the
// metrics the service records into.
func newService(manager domain.ConfigManager, store domain.AssessmentStore, dashboard cache.Cache, logger *logrus.Logger) (*service.AssessmentService, *metrics.Metrics, error) {
	cfg := manager.GetConfig()

	loc, err := time.LoadLocation(cfg.Clinic.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid clinic timezone %q: %w", cfg.Clinic.Timezone, err)
	}

	m := metrics.New()
	svc, err := service.NewAssessmentService(
		scoring.NewEngine(scoring.DefaultCatalog()),
		store,
		dashboard,
		m,
		service.Options{Location: loc, ResultCacheSize: cfg.Cache.ResultCacheSize},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, m, nil
}

func newMigrationRunner(manager domain.ConfigManager, logger *logrus.Logger) (*database.MigrationRunner, error) {
	cfg := manager.GetConfig()
	if !isPostgres(cfg) {
		return nil, fmt.Errorf("migrations apply to the postgres driver only; the sqlite schema is created on open")
	}
	return database.NewMigrationRunner(manager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
}
