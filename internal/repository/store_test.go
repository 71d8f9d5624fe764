package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-assessment-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func sampleResult(name string, normalized int) *domain.AssessmentResult {
	return &domain.AssessmentResult{
		Patient: domain.PatientInfo{
			Name:      name,
			BirthDate: "850315",
			Gender:    domain.GenderFemale,
			Phone:     "010-1234-5678",
		},
		TotalScore:      5,
		NormalizedScore: normalized,
		TierLevel:       1,
		TierLabel:       "Tier 1: Initial management",
		SectionScores: map[string]domain.ScoreBreakdown{
			"digestion": {Score: 5, MaxScore: 15},
			"sleep":     {MaxScore: 15, Skipped: true},
		},
		SelectedItems: []domain.QuestionRef{
			{Category: "digestion", Question: "d1"},
			{Category: "digestion", Question: "d3"},
		},
		SkippedSections: []string{"sleep"},
	}
}

// exerciseStore runs the behaviour shared by every AssessmentStore.
// setNow controls the creation timestamp of the next insert.
func exerciseStore(t *testing.T, store domain.AssessmentStore, setNow func(time.Time)) {
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Create and Get", func(t *testing.T) {
		setNow(day.Add(9 * time.Hour))
		r := sampleResult("Kim Minji", 3)
		require.NoError(t, store.Create(ctx, r))
		assert.NotZero(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())

		got, err := store.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Patient, got.Patient)
		assert.Equal(t, 3, got.NormalizedScore)
		assert.Equal(t, r.SectionScores, got.SectionScores)
		assert.Equal(t, r.SelectedItems, got.SelectedItems)
		assert.Equal(t, []string{"sleep"}, got.SkippedSections)
		assert.False(t, got.AgreedToTreatment)
		assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("Get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Nil documents are stored empty", func(t *testing.T) {
		setNow(day.Add(9*time.Hour + time.Minute))
		r := sampleResult("Empty Docs", 0)
		r.SectionScores, r.SelectedItems, r.SkippedSections = nil, nil, nil
		require.NoError(t, store.Create(ctx, r))

		got, err := store.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Empty(t, got.SectionScores)
		assert.Empty(t, got.SelectedItems)
		assert.Empty(t, got.SkippedSections)
	})

	t.Run("SetAgreement", func(t *testing.T) {
		setNow(day.Add(10 * time.Hour))
		r := sampleResult("Lee Jun", 45)
		require.NoError(t, store.Create(ctx, r))

		require.NoError(t, store.SetAgreement(ctx, r.ID, true))
		got, err := store.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.AgreedToTreatment)

		assert.ErrorIs(t, store.SetAgreement(ctx, 999999, true), domain.ErrNotFound)
	})

	t.Run("List filters", func(t *testing.T) {
		setNow(day.Add(24*time.Hour + 8*time.Hour))
		require.NoError(t, store.Create(ctx, sampleResult("Park 100%_Sure", 90)))

		all, err := store.List(ctx, domain.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "Park 100%_Sure", all[0].Patient.Name, "newest first")

		firstDay, err := store.List(ctx, domain.ListFilter{From: day, To: day.Add(24 * time.Hour)})
		require.NoError(t, err)
		assert.Len(t, firstDay, 3)

		byName, err := store.List(ctx, domain.ListFilter{Search: "minji"})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "Kim Minji", byName[0].Patient.Name)

		literal, err := store.List(ctx, domain.ListFilter{Search: "%_"})
		require.NoError(t, err)
		require.Len(t, literal, 1, "wildcards in the term match literally")

		limited, err := store.List(ctx, domain.ListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("ScoreRecords and Totals", func(t *testing.T) {
		records, err := store.ScoreRecords(ctx, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, 3, records[0].NormalizedScore, "oldest first")
		assert.True(t, records[2].Agreed)

		totals, err := store.Totals(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), totals.Count)
		assert.InDelta(t, (3.0+0+45+90)/4, totals.AverageScore, 0.001)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Search ignores case beyond ASCII", func(t *testing.T) {
		setNow(day.Add(48 * time.Hour))
		require.NoError(t, store.Create(ctx, sampleResult("ÉLODIE Ünal", 20)))

		for _, term := range []string{"élodie", "ÉLODIE", "ünal", "Élodie Ü"} {
			found, err := store.List(ctx, domain.ListFilter{Search: term})
			require.NoError(t, err)
			require.Len(t, found, 1, "term %q", term)
			assert.Equal(t, "ÉLODIE Ünal", found[0].Patient.Name)
		}

		upper, err := store.List(ctx, domain.ListFilter{Search: "MINJI"})
		require.NoError(t, err)
		assert.Len(t, upper, 1)
	})
}
