package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"

	"github.com/clinic-assessment-server/internal/domain"
)

// sqliteTimeLayout is fixed width and always UTC, so the text column sorts
// and compares chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteResultColumns = `id, patient_name, birth_date, gender, phone,
	total_score, normalized_score, tier_level, tier_label,
	section_scores, selected_items, skipped_sections,
	agreed_to_treatment, created_at`

// SQLite's lower() only folds ASCII; name search needs the same folding as
// strings.ToLower applies to the search term.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// SQLiteStore persists assessment results in a single SQLite file. It is
// meant for single-host installs and development.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// ensures the schema exists.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; avoids SQLITE_BUSY under concurrent submissions
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("SQLite assessment store opened")

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		log:    logger,
		now:    time.Now,
	}, nil
}

// NewSQLiteStoreFromDB wraps an already opened database whose schema exists.
func NewSQLiteStoreFromDB(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: logger, now: time.Now}
}

// createSchema creates the results table and its indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessment_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_name TEXT NOT NULL,
		birth_date TEXT NOT NULL,
		gender TEXT NOT NULL,
		phone TEXT NOT NULL,
		total_score INTEGER NOT NULL,
		normalized_score INTEGER NOT NULL,
		tier_level INTEGER NOT NULL,
		tier_label TEXT NOT NULL,
		section_scores TEXT NOT NULL DEFAULT '{}',
		selected_items TEXT NOT NULL DEFAULT '[]',
		skipped_sections TEXT NOT NULL DEFAULT '[]',
		agreed_to_treatment INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessment_results_created_at ON assessment_results(created_at);
	CREATE INDEX IF NOT EXISTS idx_assessment_results_patient_name ON assessment_results(patient_name);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteResult(s scanner) (*domain.AssessmentResult, error) {
	var (
		result    domain.AssessmentResult
		gender    string
		createdAt string
		cols      jsonColumns
		sections  string
		selected  string
		skipped   string
	)
	err := s.Scan(
		&result.ID, &result.Patient.Name, &result.Patient.BirthDate, &gender, &result.Patient.Phone,
		&result.TotalScore, &result.NormalizedScore, &result.TierLevel, &result.TierLabel,
		&sections, &selected, &skipped,
		&result.AgreedToTreatment, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	result.Patient.Gender = domain.Gender(gender)
	if result.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	cols.sections, cols.selected, cols.skipped = []byte(sections), []byte(selected), []byte(skipped)
	if err := cols.decodeInto(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// Create inserts a new result and fills in its ID and CreatedAt.
func (s *SQLiteStore) Create(ctx context.Context, result *domain.AssessmentResult) error {
	cols, err := encodeColumns(result)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assessment_results (
			patient_name, birth_date, gender, phone,
			total_score, normalized_score, tier_level, tier_label,
			section_scores, selected_items, skipped_sections,
			agreed_to_treatment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Patient.Name,
		result.Patient.BirthDate,
		string(result.Patient.Gender),
		result.Patient.Phone,
		result.TotalScore,
		result.NormalizedScore,
		result.TierLevel,
		result.TierLabel,
		string(cols.sections),
		string(cols.selected),
		string(cols.skipped),
		result.AgreedToTreatment,
		formatSQLiteTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	result.ID = id
	result.CreatedAt = now

	s.log.WithFields(logrus.Fields{
		"result_id":        id,
		"normalized_score": result.NormalizedScore,
		"tier_level":       result.TierLevel,
	}).Info("Assessment result created")

	return nil
}

// Get retrieves a result by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.AssessmentResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM assessment_results WHERE id = ?`, id)

	result, err := scanSQLiteResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment result %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return result, nil
}

// List returns results newest first, narrowed by filter.
func (s *SQLiteStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AssessmentResult, error) {
	var (
		where []string
		args  []any
	)
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatSQLiteTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, formatSQLiteTime(filter.To))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		where = append(where, `unicode_lower(patient_name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(term))
	}

	query := `SELECT ` + sqliteResultColumns + ` FROM assessment_results`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, filter.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.AssessmentResult, 0)
	for rows.Next() {
		result, err := scanSQLiteResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// SetAgreement records the patient's answer to the in-depth treatment offer.
func (s *SQLiteStore) SetAgreement(ctx context.Context, id int64, agreed bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessment_results SET agreed_to_treatment = ? WHERE id = ?`, agreed, id)
	if err != nil {
		return fmt.Errorf("failed to update agreement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assessment result %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ScoreRecords returns the score columns of results created in [from, to).
func (s *SQLiteStore) ScoreRecords(ctx context.Context, from, to time.Time) ([]domain.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, normalized_score, agreed_to_treatment
		FROM assessment_results
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at
	`, formatSQLiteTime(from), formatSQLiteTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query score records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var (
			rec       domain.ScoreRecord
			createdAt string
		)
		if err := rows.Scan(&createdAt, &rec.NormalizedScore, &rec.Agreed); err != nil {
			return nil, fmt.Errorf("failed to scan score record: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Totals returns the count and mean normalized score of every result.
func (s *SQLiteStore) Totals(ctx context.Context) (domain.Totals, error) {
	var totals domain.Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(normalized_score), 0.0) FROM assessment_results`,
	).Scan(&totals.Count, &totals.AverageScore)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("failed to compute totals: %w", err)
	}
	return totals, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
