package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/domain"
)

const statsWindowDays = 7

// TodayStats summarises the current clinic day.
type TodayStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"avg_score"`
	AgreedCount  int     `json:"treatment_agreed_count"`
}

// DayStats is one day of the weekly trend.
type DayStats struct {
	Date         string  `json:"date"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"avg_score"`
}

// TierCount is the number of today's results that fall into one tier.
type TierCount struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	Date         string        `json:"date"`
	Today        TodayStats    `json:"today"`
	Weekly       []DayStats    `json:"weekly"`
	Distribution []TierCount   `json:"distribution"`
	Total        domain.Totals `json:"total"`
}

// Stats builds the dashboard summary for the clinic day containing now.
// Results are cached per day for the cache TTL.
func (s *AssessmentService) Stats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	local := now.In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	key := statsKey(today)

	var cached DashboardStats
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Stats cache lookup failed, reading store")
	}
	s.metrics.ObserveCache("stats", hit)
	if hit {
		return &cached, nil
	}

	stats, err := s.computeStats(ctx, today)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to cache stats")
	}
	return stats, nil
}

func (s *AssessmentService) computeStats(ctx context.Context, today time.Time) (*DashboardStats, error) {
	start := today.AddDate(0, 0, -(statsWindowDays - 1))
	end := today.AddDate(0, 0, 1)

	records, err := s.store.ScoreRecords(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load score records: %w", err)
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}

	tiers := s.engine.Catalog().Tiers()
	distribution := make([]TierCount, len(tiers))
	for i, t := range tiers {
		distribution[i] = TierCount{Level: t.Level, Label: t.Label}
	}

	days := make([]DayStats, statsWindowDays)
	sums := make([]int, statsWindowDays)
	for i := range days {
		days[i].Date = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	index := make(map[string]int, statsWindowDays)
	for i, d := range days {
		index[d.Date] = i
	}

	var todayStats TodayStats
	todaySum := 0
	for _, rec := range records {
		i, ok := index[rec.CreatedAt.In(s.loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		days[i].Count++
		sums[i] += rec.NormalizedScore

		if i == statsWindowDays-1 {
			todayStats.Count++
			todaySum += rec.NormalizedScore
			if rec.Agreed {
				todayStats.AgreedCount++
			}
			tier := s.engine.Classify(rec.NormalizedScore)
			distribution[tier.Level-1].Count++
		}
	}
	for i := range days {
		days[i].AverageScore = average(sums[i], days[i].Count)
	}
	todayStats.AverageScore = average(todaySum, todayStats.Count)
	totals.AverageScore = roundTenth(totals.AverageScore)

	s.logger.WithFields(logrus.Fields{
		"date":    today.Format(time.DateOnly),
		"today":   todayStats.Count,
		"records": len(records),
	}).Debug("Dashboard stats computed")

	return &DashboardStats{
		Date:         today.Format(time.DateOnly),
		Today:        todayStats,
		Weekly:       days,
		Distribution: distribution,
		Total:        totals,
	}, nil
}

// invalidateStats drops today's cached summary after a write.
func (s *AssessmentService) invalidateStats(ctx context.Context) {
	local := s.now().In(s.loc)
	key := statsKey(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to invalidate stats cache")
	}
}

func statsKey(day time.Time) string {
	return "stats:" + day.Format(time.DateOnly)
}

func average(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return roundTenth(float64(sum) / float64(count))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
