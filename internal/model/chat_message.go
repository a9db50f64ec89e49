package model

import "time"

type ChatMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_chat_user_session" json:"user_id"`
	SessionID    string    `gorm:"size:128;not null;index:idx_chat_user_session" json:"session_id"`
	DocumentName string    `gorm:"size:255" json:"document_name"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	Answer       string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_history"
}
