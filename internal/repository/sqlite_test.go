package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-assessment-server/internal/domain"
)

func createTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "assessments.db")

	store, err := NewSQLiteStore(dbPath, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore(t *testing.T) {
	store := createTestSQLiteStore(t)
	exerciseStore(t, store, func(now time.Time) {
		store.now = func() time.Time { return now }
	})
}

func TestSQLiteStore_EmptyTotals(t *testing.T) {
	store := createTestSQLiteStore(t)

	totals, err := store.Totals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals.Count)
	assert.Zero(t, totals.AverageScore)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath, quietLogger())
	require.NoError(t, err)
	r := sampleResult("Choi", 20)
	require.NoError(t, store.Create(ctx, r))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Choi", got.Patient.Name)
}

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStoreFromDB(db, quietLogger()), mock
}

func TestSQLiteStore_CreateError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessment_results")).
		WillReturnError(errors.New("disk I/O error"))

	err := store.Create(context.Background(), sampleResult("X", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_SetAgreementNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assessment_results SET agreed_to_treatment")).
		WithArgs(true, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetAgreement(context.Background(), 42, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_GetCorruptTimestamp(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "patient_name", "birth_date", "gender", "phone",
		"total_score", "normalized_score", "tier_level", "tier_label",
		"section_scores", "selected_items", "skipped_sections",
		"agreed_to_treatment", "created_at",
	}).AddRow(7, "X", "900101", "male", "1234", 1, 1, 1, "Tier 1", "{}", "[]", "[]", false, "yesterday")
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_results WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	_, err := store.Get(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing created_at")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_GetNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_results WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%kim%", likePattern("kim"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
	assert.Equal(t, "%élodie ü%", likePattern("ÉLODIE Ü"))
}

func TestOpen(t *testing.T) {
	cfg := domain.DatabaseConfig{Driver: domain.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "open.db")}
	store, err := Open(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())

	_, err = Open(context.Background(), domain.DatabaseConfig{Driver: "oracle"}, quietLogger())
	assert.Error(t, err)
}
