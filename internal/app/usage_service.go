package app

import (
	"context"
	"log/slog"

	"ajiri/internal/model"
	"ajiri/internal/repository"
)

type UsagePublisher interface {
	Publish(ctx context.Context, usage model.APIUsage) error
}

// UsageService stores one usage row per API request, through the broker when one is configured.
type UsageService struct {
	usageRepo *repository.UsageRepository
	publisher UsagePublisher
}

func NewUsageService(usageRepo *repository.UsageRepository, publisher UsagePublisher) *UsageService {
	return &UsageService{usageRepo: usageRepo, publisher: publisher}
}

func (s *UsageService) Record(ctx context.Context, usage model.APIUsage) error {
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, usage)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "publish api usage failed, writing directly", "error", err)
	}
	return s.usageRepo.Create(ctx, &usage)
}

func (s *UsageService) CountForUser(ctx context.Context, userID uint) (int64, error) {
	return s.usageRepo.CountByUserID(ctx, userID)
}
