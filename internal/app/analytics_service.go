package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ajiri/internal/repository"
)

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 3650
)

type AnalyticsService struct {
	analyticsRepo *repository.AnalyticsRepository
	now           func() time.Time
}

type Overview struct {
	TotalDocuments     int64    `json:"totalDocuments"`
	ActiveDays         int64    `json:"activeDays"`
	AvgProcessingTime  *float64 `json:"avgProcessingTime"`
	TotalDataProcessed int64    `json:"totalDataProcessed"`
	ChatSessions       int64    `json:"chatSessions"`
	TotalQuestions     int64    `json:"totalQuestions"`
}

type Dashboard struct {
	Overview      Overview                      `json:"overview"`
	DocumentTypes []repository.DocumentTypeStat `json:"documentTypes"`
}

func NewAnalyticsService(analyticsRepo *repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{analyticsRepo: analyticsRepo, now: time.Now}
}

// Dashboard runs the document, chat and type aggregates independently so
// chat counts are never multiplied by document rows.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	var (
		docs  *repository.DocumentOverview
		chat  *repository.ChatOverview
		types []repository.DocumentTypeStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.analyticsRepo.DocumentOverview(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		chat, err = s.analyticsRepo.ChatOverview(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		types, err = s.analyticsRepo.DocumentTypes(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		Overview: Overview{
			TotalDocuments:     docs.TotalDocuments,
			ActiveDays:         docs.ActiveDays,
			AvgProcessingTime:  docs.AvgProcessingTime,
			TotalDataProcessed: docs.TotalDataProcessed,
			ChatSessions:       chat.ChatSessions,
			TotalQuestions:     chat.TotalQuestions,
		},
		DocumentTypes: types,
	}, nil
}

// Trends returns per-day activity for the last days days.
func (s *AnalyticsService) Trends(ctx context.Context, userID uint, days int) ([]repository.DailyTrend, error) {
	days = NormalizeTrendDays(days)
	since := s.now().UTC().AddDate(0, 0, -days)
	return s.analyticsRepo.Trends(ctx, userID, since)
}

func NormalizeTrendDays(days int) int {
	if days <= 0 {
		return DefaultTrendDays
	}
	if days > MaxTrendDays {
		return MaxTrendDays
	}
	return days
}
