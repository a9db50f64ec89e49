package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ajiri/internal/model"
	"ajiri/internal/ocr"
	"ajiri/internal/repository"
)

func newTestDocumentService(t *testing.T, engine ocr.Engine, store ObjectStore) (*DocumentService, *repository.ProcessingSessionRepository) {
	t.Helper()
	db := newTestDB(t)
	sessions := repository.NewProcessingSessionRepository(db)
	svc := NewDocumentService(sessions, repository.NewAnalyticsRepository(db), engine, store, nil, 1024)
	return svc, sessions
}

func TestProcessPlainText(t *testing.T) {
	store := &fakeStore{}
	svc, sessions := newTestDocumentService(t, &fakeOCR{}, store)
	raw := "Invoice 42\nTotal: 100\n"

	res, err := svc.Process(context.Background(), UploadInput{
		UserID: 1, Name: "notes.txt", ContentType: "text/plain; charset=utf-8", Size: int64(len(raw)), Data: []byte(raw),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.ExtractedText != raw {
		t.Fatalf("ExtractedText = %q, want raw contents", res.ExtractedText)
	}
	if res.Document.ProcessingMethod != "Direct text extraction" || res.Document.Type != "text/plain" {
		t.Fatalf("document = %+v", res.Document)
	}
	if res.TextractResponse != nil {
		t.Fatalf("TextractResponse should be nil for text")
	}
	if res.Stats.WordCount != 4 {
		t.Fatalf("WordCount = %d, want 4", res.Stats.WordCount)
	}

	rows, err := sessions.ListByUserID(context.Background(), 1, 10, 0)
	if err != nil || len(rows) != 1 || rows[0].Status != model.StatusCompleted {
		t.Fatalf("sessions = %+v, %v", rows, err)
	}
	if len(store.keys) != 1 || !strings.HasPrefix(store.keys[0], "users/1/") || !strings.HasSuffix(store.keys[0], "/notes.txt") {
		t.Fatalf("archived keys = %v", store.keys)
	}
}

func TestProcessRejectsBeforeExtraction(t *testing.T) {
	svc, sessions := newTestDocumentService(t, &fakeOCR{}, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, UploadInput{UserID: 1, Name: "big.txt", ContentType: "text/plain", Size: 2048, Data: make([]byte, 2048)})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Process(too large) error = %v", err)
	}
	_, err = svc.Process(ctx, UploadInput{UserID: 1, Name: "a.zip", ContentType: "application/zip", Size: 3, Data: []byte("zip")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Process(zip) error = %v", err)
	}
	rows, _ := sessions.ListByUserID(ctx, 1, 10, 0)
	if len(rows) != 0 {
		t.Fatalf("rejected uploads must not be recorded, got %d rows", len(rows))
	}
}

func TestProcessImageUsesOCR(t *testing.T) {
	engine := &fakeOCR{result: &ocr.Result{Pages: 1, Lines: []ocr.Line{{Text: "ACME", Confidence: 99}, {Text: "Total 5", Confidence: 98}}}}
	svc, _ := newTestDocumentService(t, engine, nil)

	res, err := svc.Process(context.Background(), UploadInput{UserID: 1, Name: "r.png", ContentType: "image/png", Size: 3, Data: []byte("png")})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.ExtractedText != "ACME\nTotal 5" || res.Document.ProcessingMethod != "AWS Textract OCR" {
		t.Fatalf("result = %+v", res)
	}
	if res.TextractResponse == nil || res.TextractResponse.Pages != 1 {
		t.Fatalf("TextractResponse = %+v", res.TextractResponse)
	}
}

func TestProcessPDFFallsBackToOCR(t *testing.T) {
	engine := &fakeOCR{result: &ocr.Result{Pages: 1, Lines: []ocr.Line{{Text: "scanned"}}}}
	svc, _ := newTestDocumentService(t, engine, nil)

	res, err := svc.Process(context.Background(), UploadInput{UserID: 1, Name: "scan.pdf", ContentType: "application/pdf", Size: 7, Data: []byte("garbage")})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if engine.calls != 1 || res.ExtractedText != "scanned" || res.Document.ProcessingMethod != "AWS Textract OCR" {
		t.Fatalf("fallback not taken: calls=%d result=%+v", engine.calls, res)
	}
}

func TestProcessFailureRecordsFailedSession(t *testing.T) {
	engine := &fakeOCR{err: errors.New("textract unavailable")}
	svc, sessions := newTestDocumentService(t, engine, nil)

	_, err := svc.Process(context.Background(), UploadInput{UserID: 3, Name: "r.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte("jpg")})
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("Process() error = %v, want *ProcessingError", err)
	}
	rows, _ := sessions.ListByUserID(context.Background(), 3, 10, 0)
	if len(rows) != 1 || rows[0].Status != model.StatusFailed || rows[0].DocumentType != "image/jpeg" {
		t.Fatalf("sessions = %+v", rows)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, _ := newTestDocumentService(t, &fakeOCR{}, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Process(ctx, UploadInput{UserID: 9, Name: "n.txt", ContentType: "text/plain", Size: 1, Data: []byte("x")}); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	page, err := svc.History(ctx, 9, 2, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(page.Sessions) != 2 || !page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	page, err = svc.History(ctx, 9, 0, -5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if page.Limit != DefaultHistoryLimit || page.Offset != 0 || page.HasMore || len(page.Sessions) != 3 {
		t.Fatalf("page = %+v", page)
	}
}

func TestArchiveKey(t *testing.T) {
	if got := ArchiveKey(5, "id", `C:\Users\me\scan.pdf`); got != "users/5/id/scan.pdf" {
		t.Fatalf("ArchiveKey() = %q", got)
	}
	if got := ArchiveKey(5, "id", ""); got != "users/5/id/document" {
		t.Fatalf("ArchiveKey(empty) = %q", got)
	}
}
