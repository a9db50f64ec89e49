package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ajiri/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

// ChatSessionSummary is one (session_id, document_name) group of a user's chat history.
type ChatSessionSummary struct {
	SessionID    string    `gorm:"column:session_id" json:"session_id"`
	DocumentName string    `gorm:"column:document_name" json:"document_name"`
	MessageCount int64     `gorm:"column:message_count" json:"message_count"`
	FirstMessage time.Time `gorm:"column:first_message" json:"first_message"`
	LastMessage  time.Time `gorm:"column:last_message" json:"last_message"`
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, message *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create chat message failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListBySession(ctx context.Context, userID uint, sessionID string) ([]model.ChatMessage, error) {
	messages := make([]model.ChatMessage, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list chat history failed: %w", err)
	}
	return messages, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID uint) ([]ChatSessionSummary, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Select("session_id, document_name, COUNT(*) AS message_count, MIN(created_at) AS first_message, MAX(created_at) AS last_message").
		Where("user_id = ?", userID).
		Group("session_id, document_name").
		Order("last_message DESC").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	defer rows.Close()

	sessions := make([]ChatSessionSummary, 0)
	for rows.Next() {
		var (
			summary     ChatSessionSummary
			first, last any
		)
		if err := rows.Scan(&summary.SessionID, &summary.DocumentName, &summary.MessageCount, &first, &last); err != nil {
			return nil, fmt.Errorf("scan chat session failed: %w", err)
		}
		if summary.FirstMessage, err = parseDBTime(first); err != nil {
			return nil, err
		}
		if summary.LastMessage, err = parseDBTime(last); err != nil {
			return nil, err
		}
		sessions = append(sessions, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions failed: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes every row of the session and returns how many went away.
func (r *ChatRepository) DeleteSession(ctx context.Context, userID uint, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Delete(&model.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete chat session failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
