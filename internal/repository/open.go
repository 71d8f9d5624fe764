package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/database"
	"github.com/clinic-assessment-server/internal/domain"
)

// Open returns the store selected by cfg.Driver. The caller owns the store
// and must Close it.
func Open(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (domain.AssessmentStore, error) {
	switch cfg.Driver {
	case domain.DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case domain.DriverPostgres:
		db, err := database.NewConnection(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &pooledPostgresStore{PostgresStore: NewPostgresStore(db.Pool, logger), db: db}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

// pooledPostgresStore closes the pool it was opened with.
type pooledPostgresStore struct {
	*PostgresStore
	db *database.DB
}

func (s *pooledPostgresStore) Close() error {
	s.db.Close()
	return nil
}
