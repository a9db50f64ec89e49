package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocumentStats aggregates every processing session of one user.
type DocumentStats struct {
	TotalDocuments       int64    `gorm:"column:total_documents" json:"totalDocuments"`
	SuccessfulProcessing int64    `gorm:"column:successful_processing" json:"successfulProcessing"`
	FailedProcessing     int64    `gorm:"column:failed_processing" json:"failedProcessing"`
	AvgProcessingTime    *float64 `gorm:"column:avg_processing_time" json:"avgProcessingTime"`
	TotalDataProcessed   int64    `gorm:"column:total_data_processed" json:"totalDataProcessed"`
	ActiveDays           int64    `gorm:"column:active_days" json:"activeDays"`
}

type DocumentOverview struct {
	TotalDocuments     int64    `gorm:"column:total_documents"`
	ActiveDays         int64    `gorm:"column:active_days"`
	AvgProcessingTime  *float64 `gorm:"column:avg_processing_time"`
	TotalDataProcessed int64    `gorm:"column:total_data_processed"`
}

type ChatOverview struct {
	ChatSessions   int64 `gorm:"column:chat_sessions"`
	TotalQuestions int64 `gorm:"column:total_questions"`
}

type DocumentTypeStat struct {
	DocumentType string   `gorm:"column:document_type" json:"document_type"`
	Count        int64    `gorm:"column:count" json:"count"`
	AvgTime      *float64 `gorm:"column:avg_time" json:"avgTime"`
}

type DailyTrend struct {
	Date      string   `gorm:"column:date" json:"date"`
	Documents int64    `gorm:"column:documents" json:"documents"`
	AvgTime   *float64 `gorm:"column:avg_time" json:"avgTime"`
	TotalSize int64    `gorm:"column:total_size" json:"totalSize"`
}

const (
	documentStatsQuery = `
SELECT
	COUNT(*) AS total_documents,
	COUNT(CASE WHEN status = 'completed' THEN 1 END) AS successful_processing,
	COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed_processing,
	AVG(processing_time) AS avg_processing_time,
	COALESCE(SUM(file_size), 0) AS total_data_processed,
	COUNT(DISTINCT DATE(processed_at)) AS active_days
FROM user_sessions
WHERE user_id = ?`

	documentOverviewQuery = `
SELECT
	COUNT(*) AS total_documents,
	COUNT(DISTINCT DATE(processed_at)) AS active_days,
	AVG(processing_time) AS avg_processing_time,
	COALESCE(SUM(file_size), 0) AS total_data_processed
FROM user_sessions
WHERE user_id = ?`

	chatOverviewQuery = `
SELECT
	COUNT(DISTINCT session_id) AS chat_sessions,
	COUNT(*) AS total_questions
FROM chat_history
WHERE user_id = ?`

	documentTypesQuery = `
SELECT
	document_type,
	COUNT(*) AS count,
	AVG(processing_time) AS avg_time
FROM user_sessions
WHERE user_id = ?
GROUP BY document_type
ORDER BY count DESC, document_type ASC`

	trendsQuery = `
SELECT
	DATE(processed_at) AS date,
	COUNT(*) AS documents,
	AVG(processing_time) AS avg_time,
	COALESCE(SUM(file_size), 0) AS total_size
FROM user_sessions
WHERE user_id = ? AND processed_at >= ?
GROUP BY DATE(processed_at)
ORDER BY date DESC`
)

// AnalyticsRepository runs read-only aggregates over sessions and chat history.
type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) DocumentStats(ctx context.Context, userID uint) (*DocumentStats, error) {
	var stats DocumentStats
	if err := r.db.WithContext(ctx).Raw(documentStatsQuery, userID).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("query document stats failed: %w", err)
	}
	return &stats, nil
}

func (r *AnalyticsRepository) DocumentOverview(ctx context.Context, userID uint) (*DocumentOverview, error) {
	var overview DocumentOverview
	if err := r.db.WithContext(ctx).Raw(documentOverviewQuery, userID).Scan(&overview).Error; err != nil {
		return nil, fmt.Errorf("query document overview failed: %w", err)
	}
	return &overview, nil
}

func (r *AnalyticsRepository) ChatOverview(ctx context.Context, userID uint) (*ChatOverview, error) {
	var overview ChatOverview
	if err := r.db.WithContext(ctx).Raw(chatOverviewQuery, userID).Scan(&overview).Error; err != nil {
		return nil, fmt.Errorf("query chat overview failed: %w", err)
	}
	return &overview, nil
}

func (r *AnalyticsRepository) DocumentTypes(ctx context.Context, userID uint) ([]DocumentTypeStat, error) {
	stats := make([]DocumentTypeStat, 0)
	if err := r.db.WithContext(ctx).Raw(documentTypesQuery, userID).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("query document types failed: %w", err)
	}
	return stats, nil
}

// Trends groups sessions processed at or after since by UTC day, newest day first.
func (r *AnalyticsRepository) Trends(ctx context.Context, userID uint, since time.Time) ([]DailyTrend, error) {
	trends := make([]DailyTrend, 0)
	if err := r.db.WithContext(ctx).Raw(trendsQuery, userID, since.UTC()).Scan(&trends).Error; err != nil {
		return nil, fmt.Errorf("query trends failed: %w", err)
	}
	return trends, nil
}
