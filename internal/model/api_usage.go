package model

import "time"

type APIUsage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id"`
	Endpoint     string    `gorm:"size:255" json:"endpoint"`
	Method       string    `gorm:"size:16" json:"method"`
	StatusCode   int       `json:"status_code"`
	ResponseTime int64     `json:"response_time"`
	RequestID    string    `gorm:"size:64" json:"request_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (APIUsage) TableName() string {
	return "api_usage"
}
