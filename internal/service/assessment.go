// Package service ties the scoring engine to persistence: it validates
// submissions, stores results and serves the dashboard reads.
package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/cache"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/metrics"
	"github.com/clinic-assessment-server/internal/scoring"
)

const defaultResultCacheSize = 512

// Options tunes an AssessmentService.
type Options struct {
	// Location is the clinic's local time zone; calendar days in List and
	// Stats are interpreted in it. Defaults to UTC.
	Location        *time.Location
	ResultCacheSize int
}

// AssessmentService implements the submission and dashboard workflows.
type AssessmentService struct {
	engine  *scoring.Engine
	store   domain.AssessmentStore
	cache   cache.Cache
	metrics *metrics.Metrics
	results *lru.Cache[int64, *domain.AssessmentResult]
	loc     *time.Location

	// resultsMu orders result cache fills against invalidations; generation
	// moves on every invalidation so a fill that raced one is dropped.
	resultsMu  sync.Mutex
	generation uint64

	now     func() time.Time
	logger  *logrus.Logger
}

// NewAssessmentService creates a new assessment service. dashboard and m may
// be nil.
func NewAssessmentService(
	engine *scoring.Engine,
	store domain.AssessmentStore,
	dashboard cache.Cache,
	m *metrics.Metrics,
	opts Options,
	logger *logrus.Logger,
) (*AssessmentService, error) {
	size := opts.ResultCacheSize
	if size <= 0 {
		size = defaultResultCacheSize
	}
	results, err := lru.New[int64, *domain.AssessmentResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if dashboard == nil {
		dashboard = cache.NoopCache{}
	}

	return &AssessmentService{
		engine:  engine,
		store:   store,
		cache:   dashboard,
		metrics: m,
		results: results,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Engine returns the scoring engine behind the service.
func (s *AssessmentService) Engine() *scoring.Engine {
	return s.engine
}

// Location returns the clinic time zone.
func (s *AssessmentService) Location() *time.Location {
	return s.loc
}

// Submit validates, scores and stores one questionnaire.
func (s *AssessmentService) Submit(ctx context.Context, req SubmitRequest) (*domain.AssessmentResult, error) {
	patient, err := req.patient()
	if err != nil {
		return nil, err
	}

	eval, err := s.engine.Evaluate(patient.Gender, domain.NewSelection(req.Selections...), req.Skipped)
	if err != nil {
		return nil, fmt.Errorf("failed to score assessment: %w", err)
	}

	result := &domain.AssessmentResult{
		Patient:         patient,
		TotalScore:      eval.RawScore,
		NormalizedScore: eval.NormalizedScore,
		TierLevel:       eval.Tier.Level,
		TierLabel:       eval.Tier.Label,
		SectionScores:   eval.Breakdown,
		SelectedItems:   eval.Selected,
		SkippedSections: eval.Skipped,
	}
	if err := s.store.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	s.metrics.ObserveSubmission(result.TierLevel, result.NormalizedScore)
	s.invalidateStats(ctx)

	s.logger.WithFields(logrus.Fields{
		"assessment_id":    result.ID,
		"gender":           patient.Gender,
		"raw_score":        eval.RawScore,
		"normalized_score": eval.NormalizedScore,
		"tier":             eval.Tier.Level,
		"skipped":          len(eval.Skipped),
	}).Info("Assessment submitted")

	return result, nil
}

// Get returns a stored result. Recently read results are served from memory.
func (s *AssessmentService) Get(ctx context.Context, id int64) (*domain.AssessmentResult, error) {
	if r, ok := s.results.Get(id); ok {
		s.metrics.ObserveCache("result", true)
		return cloneResult(r), nil
	}
	s.metrics.ObserveCache("result", false)

	s.resultsMu.Lock()
	gen := s.generation
	s.resultsMu.Unlock()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.resultsMu.Lock()
	if s.generation == gen {
		s.results.Add(id, cloneResult(r))
	}
	s.resultsMu.Unlock()
	return r, nil
}

// forgetResult drops id from the result cache and voids fills still in
// flight. Call it after the store write.
func (s *AssessmentService) forgetResult(id int64) {
	s.resultsMu.Lock()
	s.generation++
	s.results.Remove(id)
	s.resultsMu.Unlock()
}

// SetAgreement records whether the patient agreed to the proposed treatment.
func (s *AssessmentService) SetAgreement(ctx context.Context, id int64, agreed bool) error {
	if err := s.store.SetAgreement(ctx, id, agreed); err != nil {
		return err
	}
	s.forgetResult(id)
	s.invalidateStats(ctx)

	s.logger.WithFields(logrus.Fields{
		"assessment_id": id,
		"agreed":        agreed,
	}).Info("Treatment agreement updated")
	return nil
}

// ListQuery is the dashboard filter. Date is a clinic-local calendar day in
// YYYY-MM-DD form; empty means any day.
type ListQuery struct {
	Date   string
	Search string
	Limit  int
}

// List returns stored results matching q, newest first.
func (s *AssessmentService) List(ctx context.Context, q ListQuery) ([]*domain.AssessmentResult, error) {
	filter, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	results, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return results, nil
}

func (s *AssessmentService) filter(q ListQuery) (domain.ListFilter, error) {
	filter := domain.ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
	}
	if date := strings.TrimSpace(q.Date); date != "" {
		day, err := time.ParseInLocation(time.DateOnly, date, s.loc)
		if err != nil {
			return domain.ListFilter{}, domain.NewValidationError("date", "date must be YYYY-MM-DD", q.Date)
		}
		filter.From, filter.To = day, day.AddDate(0, 0, 1)
	}
	return filter, nil
}

// Report re-derives the tier narrative and treatments for a stored result
// from its normalized score.
func (s *AssessmentService) Report(r *domain.AssessmentResult) scoring.Tier {
	return s.engine.Classify(r.NormalizedScore)
}

func cloneResult(r *domain.AssessmentResult) *domain.AssessmentResult {
	cp := *r
	cp.SectionScores = maps.Clone(r.SectionScores)
	cp.SelectedItems = slices.Clone(r.SelectedItems)
	cp.SkippedSections = slices.Clone(r.SkippedSections)
	return &cp
}
