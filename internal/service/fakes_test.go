package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clinic-assessment-server/internal/cache"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/scoring"
)

var kst = time.FixedZone("KST", 9*60*60)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore is an in-memory AssessmentStore whose clock the test controls.
type memStore struct {
	mu          sync.Mutex
	results     []*domain.AssessmentResult
	now         time.Time
	getCalls    int
	recordCalls int

	// afterGet runs once the row has been read, outside the lock.
	afterGet func()
}

func (m *memStore) Create(_ context.Context, r *domain.AssessmentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.results) + 1)
	r.CreatedAt = m.now
	m.results = append(m.results, cloneResult(r))
	return nil
}

func (m *memStore) Get(_ context.Context, id int64) (*domain.AssessmentResult, error) {
	m.mu.Lock()
	m.getCalls++
	var found *domain.AssessmentResult
	for _, r := range m.results {
		if r.ID == id {
			found = cloneResult(r)
			break
		}
	}
	hook := m.afterGet
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *memStore) List(_ context.Context, f domain.ListFilter) ([]*domain.AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AssessmentResult
	for _, r := range m.results {
		if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(r.Patient.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, cloneResult(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > f.EffectiveLimit() {
		out = out[:f.EffectiveLimit()]
	}
	return out, nil
}

func (m *memStore) SetAgreement(_ context.Context, id int64, agreed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.ID == id {
			r.AgreedToTreatment = agreed
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) ScoreRecords(_ context.Context, from, to time.Time) ([]domain.ScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCalls++
	var out []domain.ScoreRecord
	for _, r := range m.results {
		if r.CreatedAt.Before(from) || !r.CreatedAt.Before(to) {
			continue
		}
		out = append(out, domain.ScoreRecord{
			CreatedAt:       r.CreatedAt,
			NormalizedScore: r.NormalizedScore,
			Agreed:          r.AgreedToTreatment,
		})
	}
	return out, nil
}

func (m *memStore) Totals(context.Context) (domain.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t domain.Totals
	sum := 0
	for _, r := range m.results {
		t.Count++
		sum += r.NormalizedScore
	}
	if t.Count > 0 {
		t.AverageScore = float64(sum) / float64(t.Count)
	}
	return t, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

// seed stores a result with the given score at the given instant.
func (m *memStore) seed(t *testing.T, name string, at time.Time, normalized int, agreed bool) {
	t.Helper()
	m.now = at
	r := &domain.AssessmentResult{
		Patient:           domain.PatientInfo{Name: name, BirthDate: "900101", Gender: domain.GenderFemale, Phone: "010-0000-0000"},
		NormalizedScore:   normalized,
		AgreedToTreatment: agreed,
	}
	require.NoError(t, m.Create(context.Background(), r))
}

// mapCache is an in-process cache.Cache.
type mapCache struct {
	mu     sync.Mutex
	values map[string][]byte
	err    error
}

var _ cache.Cache = (*mapCache)(nil)

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *mapCache) Close() error { return nil }

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

var errCacheDown = errors.New("cache down")

func newTestService(t *testing.T, store domain.AssessmentStore, c cache.Cache) *AssessmentService {
	t.Helper()
	svc, err := NewAssessmentService(scoring.NewEngine(scoring.DefaultCatalog()), store, c, nil,
		Options{Location: kst, ResultCacheSize: 8}, quietLogger())
	require.NoError(t, err)
	return svc
}
