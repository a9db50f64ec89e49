package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ajiri/internal/model"
)

type ProcessingSessionRepository struct {
	db *gorm.DB
}

func NewProcessingSessionRepository(db *gorm.DB) *ProcessingSessionRepository {
	return &ProcessingSessionRepository{db: db}
}

func (r *ProcessingSessionRepository) Create(ctx context.Context, session *model.ProcessingSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create processing session failed: %w", err)
	}
	return nil
}

// ListByUserID returns a page of the user's sessions, newest first.
func (r *ProcessingSessionRepository) ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]model.ProcessingSession, error) {
	sessions := make([]model.ProcessingSession, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("processed_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list processing sessions failed: %w", err)
	}
	return sessions, nil
}
