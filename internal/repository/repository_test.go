package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"ajiri/internal/model"
	"ajiri/internal/platform/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.NewMemory(context.Background())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	if err := repo.Create(ctx, &model.User{Username: "amina", Email: "amina@example.com", PasswordHash: "x", IsActive: true}); err != nil {
		t.Fatalf("create first user: %v", err)
	}
	err := repo.Create(ctx, &model.User{Username: "other", Email: "amina@example.com", PasswordHash: "x", IsActive: true})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Create() error = %v, want ErrDuplicatedKey", err)
	}

	found, err := repo.FindByUsernameOrEmail(ctx, "nobody", "amina@example.com")
	if err != nil || found == nil {
		t.Fatalf("FindByUsernameOrEmail() = %v, %v", found, err)
	}
	missing, err := repo.GetByID(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("GetByID(999) = %v, %v; want nil, nil", missing, err)
	}
}

func TestUserRepositoryInactiveUserHidden(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user := &model.User{Username: "juma", Email: "juma@example.com", PasswordHash: "x", IsActive: true}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := repo.GetActiveByEmail(ctx, "juma@example.com")
	if err != nil || got != nil {
		t.Fatalf("GetActiveByEmail() = %v, %v; want nil, nil", got, err)
	}
}

func TestChatRepositorySessionsAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(newTestDB(t))

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := []model.ChatMessage{
		{UserID: 1, SessionID: "s-1", DocumentName: "invoice.pdf", Question: "q1", Answer: "a1", CreatedAt: base},
		{UserID: 1, SessionID: "s-1", DocumentName: "invoice.pdf", Question: "q2", Answer: "a2", CreatedAt: base.Add(time.Minute)},
		{UserID: 1, SessionID: "s-2", DocumentName: "notes.txt", Question: "q3", Answer: "a3", CreatedAt: base.Add(time.Hour)},
		{UserID: 2, SessionID: "s-1", DocumentName: "invoice.pdf", Question: "q4", Answer: "a4", CreatedAt: base},
	}
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("create row %d: %v", i, err)
		}
	}

	sessions, err := repo.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].SessionID != "s-2" {
		t.Fatalf("sessions[0].SessionID = %q, want s-2 (newest first)", sessions[0].SessionID)
	}
	if sessions[1].MessageCount != 2 || !sessions[1].FirstMessage.Equal(base) || !sessions[1].LastMessage.Equal(base.Add(time.Minute)) {
		t.Fatalf("sessions[1] = %+v", sessions[1])
	}

	history, err := repo.ListBySession(ctx, 1, "s-1")
	if err != nil || len(history) != 2 || history[0].Question != "q1" {
		t.Fatalf("ListBySession() = %+v, %v", history, err)
	}

	deleted, err := repo.DeleteSession(ctx, 1, "s-1")
	if err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	other, err := repo.ListBySession(ctx, 2, "s-1")
	if err != nil || len(other) != 1 {
		t.Fatalf("other user's rows must survive, got %d, %v", len(other), err)
	}
}

func TestAnalyticsRepositoryAggregates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := NewProcessingSessionRepository(db)
	chats := NewChatRepository(db)
	analytics := NewAnalyticsRepository(db)

	now := time.Now().UTC()
	seed := []model.ProcessingSession{
		{UserID: 1, DocumentName: "a.pdf", DocumentType: "application/pdf", FileSize: 100, ProcessingTime: 10, Status: model.StatusCompleted, ProcessedAt: now},
		{UserID: 1, DocumentName: "b.pdf", DocumentType: "application/pdf", FileSize: 300, ProcessingTime: 30, Status: model.StatusFailed, ProcessedAt: now.Add(-48 * time.Hour)},
		{UserID: 1, DocumentName: "c.png", DocumentType: "image/png", FileSize: 50, ProcessingTime: 20, Status: model.StatusCompleted, ProcessedAt: now.Add(-90 * 24 * time.Hour)},
		{UserID: 2, DocumentName: "d.txt", DocumentType: "text/plain", FileSize: 5, ProcessingTime: 1, Status: model.StatusCompleted, ProcessedAt: now},
	}
	for i := range seed {
		if err := sessions.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seed session %d: %v", i, err)
		}
	}
	for _, sid := range []string{"s-1", "s-1", "s-2"} {
		if err := chats.Create(ctx, &model.ChatMessage{UserID: 1, SessionID: sid, Question: "q", Answer: "a"}); err != nil {
			t.Fatalf("seed chat: %v", err)
		}
	}

	stats, err := analytics.DocumentStats(ctx, 1)
	if err != nil {
		t.Fatalf("DocumentStats() error = %v", err)
	}
	if stats.TotalDocuments != 3 || stats.SuccessfulProcessing != 2 || stats.FailedProcessing != 1 {
		t.Fatalf("stats counts = %+v", stats)
	}
	if stats.TotalDataProcessed != 450 || stats.ActiveDays != 3 {
		t.Fatalf("stats totals = %+v", stats)
	}
	if stats.AvgProcessingTime == nil || *stats.AvgProcessingTime != 20 {
		t.Fatalf("AvgProcessingTime = %v, want 20", stats.AvgProcessingTime)
	}

	chat, err := analytics.ChatOverview(ctx, 1)
	if err != nil {
		t.Fatalf("ChatOverview() error = %v", err)
	}
	if chat.ChatSessions != 2 || chat.TotalQuestions != 3 {
		t.Fatalf("chat overview = %+v, want 2 sessions / 3 questions", chat)
	}

	types, err := analytics.DocumentTypes(ctx, 1)
	if err != nil {
		t.Fatalf("DocumentTypes() error = %v", err)
	}
	if len(types) != 2 || types[0].DocumentType != "application/pdf" || types[0].Count != 2 {
		t.Fatalf("document types = %+v", types)
	}

	trends, err := analytics.Trends(ctx, 1, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("Trends() error = %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("len(trends) = %d, want 2 (90-day-old row excluded)", len(trends))
	}
	if trends[0].Date != now.Format("2006-01-02") {
		t.Fatalf("trends[0].Date = %q, want today", trends[0].Date)
	}

	empty, err := analytics.DocumentStats(ctx, 42)
	if err != nil {
		t.Fatalf("DocumentStats(empty) error = %v", err)
	}
	if empty.TotalDocuments != 0 || empty.AvgProcessingTime != nil {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestProcessingSessionPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewProcessingSessionRepository(newTestDB(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &model.ProcessingSession{UserID: 7, DocumentName: "doc", Status: model.StatusCompleted, ProcessedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	page, err := repo.ListByUserID(ctx, 7, 2, 1)
	if err != nil {
		t.Fatalf("ListByUserID() error = %v", err)
	}
	if len(page) != 2 || !page[0].ProcessedAt.Equal(base.Add(3*time.Hour)) {
		t.Fatalf("page = %+v", page)
	}
}

func TestParseDBTime(t *testing.T) {
	got, err := parseDBTime("2024-05-01 09:00:00.5+00:00")
	if err != nil {
		t.Fatalf("parseDBTime() error = %v", err)
	}
	want := time.Date(2024, 5, 1, 9, 0, 0, 500_000_000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parseDBTime() = %v, want %v", got, want)
	}
	if _, err := parseDBTime(42); err == nil {
		t.Fatalf("expected error for int input")
	}
}
