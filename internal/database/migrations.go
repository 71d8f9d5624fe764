package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// MigrationStatus describes the schema version of the database.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	// Empty is true when no migration has ever been applied.
	Empty bool `json:"empty"`
}

// MigrationRunner applies the SQL files under the migrations directory to
// the assessment database.
type MigrationRunner struct {
	migrate *migrate.Migrate
	path    string
	log     *logrus.Logger
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return &MigrationRunner{
		migrate: m,
		path:    migrationsPath,
		log:     logger,
	}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up(ctx context.Context) error {
	mr.log.WithField("migrations_path", mr.path).Info("Running database migrations up")

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}

	mr.logStatus("Migrations completed successfully")
	return nil
}

// Down rolls back one migration
func (mr *MigrationRunner) Down(ctx context.Context) error {
	mr.log.WithField("migrations_path", mr.path).Info("Rolling back one migration")

	if err := mr.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rolling back migration: %w", err)
	}

	mr.logStatus("Migration rolled back successfully")
	return nil
}

// Force sets the recorded version without running any migration. It is
// used to clear the dirty flag after fixing a failed migration by hand.
func (mr *MigrationRunner) Force(version int) error {
	if err := mr.migrate.Force(version); err != nil {
		return fmt.Errorf("forcing migration version %d: %w", version, err)
	}
	mr.log.WithField("version", version).Warn("Migration version forced")
	return nil
}

// Status returns the current schema version.
func (mr *MigrationRunner) Status() (MigrationStatus, error) {
	version, dirty, err := mr.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{Empty: true}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("reading migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

func (mr *MigrationRunner) logStatus(msg string) {
	status, err := mr.Status()
	if err != nil {
		mr.log.WithError(err).Warn("Could not read migration version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": status.Version,
		"dirty":   status.Dirty,
	}).Info(msg)
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
