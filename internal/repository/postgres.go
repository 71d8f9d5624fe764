package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/domain"
)

const pgResultColumns = `id, patient_name, birth_date, gender, phone,
	total_score, normalized_score, tier_level, tier_label,
	section_scores, selected_items, skipped_sections,
	agreed_to_treatment, created_at`

// PostgresStore persists assessment results with pgx. The schema is created
// by the SQL migrations.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a new Postgres assessment store
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// Create inserts a new result and fills in its ID and CreatedAt
func (s *PostgresStore) Create(ctx context.Context, result *domain.AssessmentResult) error {
	cols, err := encodeColumns(result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessment_results (
			patient_name, birth_date, gender, phone,
			total_score, normalized_score, tier_level, tier_label,
			section_scores, selected_items, skipped_sections, agreed_to_treatment
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at`

	err = s.db.QueryRow(ctx, query,
		result.Patient.Name,
		result.Patient.BirthDate,
		string(result.Patient.Gender),
		result.Patient.Phone,
		result.TotalScore,
		result.NormalizedScore,
		result.TierLevel,
		result.TierLabel,
		cols.sections,
		cols.selected,
		cols.skipped,
		result.AgreedToTreatment,
	).Scan(&result.ID, &result.CreatedAt)

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"tier_level": result.TierLevel,
			"error":      err,
		}).Error("Failed to create assessment result")
		return fmt.Errorf("creating assessment result: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"result_id":        result.ID,
		"normalized_score": result.NormalizedScore,
		"tier_level":       result.TierLevel,
	}).Info("Assessment result created")

	return nil
}

// Get retrieves a result by its ID
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.AssessmentResult, error) {
	query := `SELECT ` + pgResultColumns + ` FROM assessment_results WHERE id = $1`

	result, err := scanPgResult(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment result %d: %w", id, domain.ErrNotFound)
		}
		s.log.WithFields(logrus.Fields{
			"result_id": id,
			"error":     err,
		}).Error("Failed to get assessment result")
		return nil, fmt.Errorf("getting assessment result: %w", err)
	}

	return result, nil
}

// List returns results newest first, narrowed by filter
func (s *PostgresStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AssessmentResult, error) {
	var (
		where []string
		args  []any
	)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, likePattern(term))
		where = append(where, fmt.Sprintf(`lower(patient_name) LIKE $%d ESCAPE '\'`, len(args)))
	}

	query := `SELECT ` + pgResultColumns + ` FROM assessment_results`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.log.WithError(err).Error("Failed to list assessment results")
		return nil, fmt.Errorf("listing assessment results: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.AssessmentResult, 0)
	for rows.Next() {
		result, err := scanPgResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}

	return results, nil
}

// SetAgreement records the patient's answer to the in-depth treatment offer
func (s *PostgresStore) SetAgreement(ctx context.Context, id int64, agreed bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE assessment_results SET agreed_to_treatment = $2 WHERE id = $1`, id, agreed)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"result_id": id,
			"error":     err,
		}).Error("Failed to update treatment agreement")
		return fmt.Errorf("updating treatment agreement: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assessment result %d: %w", id, domain.ErrNotFound)
	}

	s.log.WithFields(logrus.Fields{
		"result_id": id,
		"agreed":    agreed,
	}).Info("Treatment agreement updated")

	return nil
}

// ScoreRecords returns the score columns of results created in [from, to)
func (s *PostgresStore) ScoreRecords(ctx context.Context, from, to time.Time) ([]domain.ScoreRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT created_at, normalized_score, agreed_to_treatment
		FROM assessment_results
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying score records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.CreatedAt, &rec.NormalizedScore, &rec.Agreed); err != nil {
			return nil, fmt.Errorf("scanning score record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating score records: %w", err)
	}
	return records, nil
}

// Totals returns the count and mean normalized score of every result
func (s *PostgresStore) Totals(ctx context.Context) (domain.Totals, error) {
	var totals domain.Totals
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(normalized_score), 0)::float8
		FROM assessment_results`).Scan(&totals.Count, &totals.AverageScore)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("computing totals: %w", err)
	}
	return totals, nil
}

// Ping checks the pool
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op; the pool belongs to database.DB.
func (s *PostgresStore) Close() error {
	return nil
}

func scanPgResult(row pgx.Row) (*domain.AssessmentResult, error) {
	var (
		result domain.AssessmentResult
		gender string
		cols   jsonColumns
	)
	err := row.Scan(
		&result.ID,
		&result.Patient.Name,
		&result.Patient.BirthDate,
		&gender,
		&result.Patient.Phone,
		&result.TotalScore,
		&result.NormalizedScore,
		&result.TierLevel,
		&result.TierLabel,
		&cols.sections,
		&cols.selected,
		&cols.skipped,
		&result.AgreedToTreatment,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	result.Patient.Gender = domain.Gender(gender)
	if err := cols.decodeInto(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
