package domain

import (
	"context"
	"time"
)

// AssessmentStore persists assessment results. Implementations must return
// ErrNotFound (wrapped) for unknown ids.
type AssessmentStore interface {
	// Create inserts result and assigns its ID and CreatedAt.
	Create(ctx context.Context, result *AssessmentResult) error

	// Get retrieves a single result by id.
	Get(ctx context.Context, id int64) (*AssessmentResult, error)

	// List returns results newest first, narrowed by filter.
	List(ctx context.Context, filter ListFilter) ([]*AssessmentResult, error)

	// SetAgreement records the patient's answer to the in-depth treatment offer.
	SetAgreement(ctx context.Context, id int64, agreed bool) error

	// ScoreRecords returns the score columns of every result created in
	// [from, to), oldest first. It is not subject to MaxListLimit.
	ScoreRecords(ctx context.Context, from, to time.Time) ([]ScoreRecord, error)

	// Totals aggregates every stored result.
	Totals(ctx context.Context) (Totals, error)

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
