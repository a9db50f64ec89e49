package model

import "time"

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProcessingSession records one document upload attempt. Rows are never updated.
type ProcessingSession struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	DocumentName   string    `gorm:"size:255" json:"document_name"`
	DocumentType   string    `gorm:"size:128;index" json:"document_type"`
	FileSize       int64     `json:"file_size"`
	ProcessingTime int64     `json:"processing_time"`
	Status         string    `gorm:"size:16;not null;default:completed" json:"status"`
	ProcessedAt    time.Time `gorm:"autoCreateTime;index" json:"processed_at"`
}

func (ProcessingSession) TableName() string {
	return "user_sessions"
}
