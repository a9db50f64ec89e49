package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"ajiri/internal/metrics"
	"ajiri/internal/model"
	"ajiri/internal/ocr"
	"ajiri/internal/pkg/docextract"
	"ajiri/internal/repository"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrOCRNotConfigured = errors.New("ocr engine is not configured")
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ProcessingError is an extraction failure recorded as a failed session.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return e.Err.Error() }

func (e *ProcessingError) Unwrap() error { return e.Err }

// ObjectStore archives original uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

type DocumentService struct {
	sessionRepo   *repository.ProcessingSessionRepository
	analyticsRepo *repository.AnalyticsRepository
	ocr           ocr.Engine
	store         ObjectStore
	metrics       *metrics.Collector
	maxBytes      int64
	now           func() time.Time
}

type UploadInput struct {
	UserID      uint
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type DocumentInfo struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	Size             int64  `json:"size"`
	ProcessingMethod string `json:"processingMethod"`
	ProcessingTime   int64  `json:"processingTime"`
}

type ProcessResult struct {
	Document         DocumentInfo     `json:"document"`
	ExtractedText    string           `json:"extractedText"`
	TextractResponse *ocr.Result      `json:"textractResponse"`
	Stats            docextract.Stats `json:"stats"`
}

type HistoryPage struct {
	Sessions []model.ProcessingSession
	Limit    int
	Offset   int
	HasMore  bool
}

func NewDocumentService(
	sessionRepo *repository.ProcessingSessionRepository,
	analyticsRepo *repository.AnalyticsRepository,
	engine ocr.Engine,
	store ObjectStore,
	collector *metrics.Collector,
	maxBytes int64,
) *DocumentService {
	return &DocumentService{
		sessionRepo:   sessionRepo,
		analyticsRepo: analyticsRepo,
		ocr:           engine,
		store:         store,
		metrics:       collector,
		maxBytes:      maxBytes,
		now:           time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *DocumentService) MaxBytes() int64 {
	return s.maxBytes
}

// Process extracts text from one upload. Rejections before extraction write
// nothing; every extraction attempt writes exactly one processing session.
func (s *DocumentService) Process(ctx context.Context, in UploadInput) (*ProcessResult, error) {
	if in.Size > s.maxBytes || int64(len(in.Data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	mimeType := docextract.NormalizeMIME(in.ContentType)
	kind := docextract.Classify(mimeType)
	if kind == docextract.KindUnsupported {
		return nil, ErrUnsupportedType
	}

	start := s.now()
	text, ocrResult, method, extractErr := s.extract(ctx, kind, in.Data)
	elapsed := s.now().Sub(start).Milliseconds()

	status := model.StatusCompleted
	if extractErr != nil {
		status = model.StatusFailed
	}
	session := &model.ProcessingSession{
		UserID:         in.UserID,
		DocumentName:   in.Name,
		DocumentType:   mimeType,
		FileSize:       in.Size,
		ProcessingTime: elapsed,
		Status:         status,
	}
	// the request context may already be cancelled when extraction failed
	if err := s.sessionRepo.Create(context.WithoutCancel(ctx), session); err != nil {
		slog.ErrorContext(ctx, "record processing session failed", "user_id", in.UserID, "document", in.Name, "error", err)
	}
	s.metrics.IncDocument(kind.String(), status)

	if extractErr != nil {
		slog.WarnContext(ctx, "document processing failed", "user_id", in.UserID, "document", in.Name, "kind", kind.String(), "error", extractErr)
		return nil, &ProcessingError{Err: extractErr}
	}

	s.archive(ctx, in, mimeType)

	return &ProcessResult{
		Document: DocumentInfo{
			Name:             in.Name,
			Type:             mimeType,
			Size:             in.Size,
			ProcessingMethod: method,
			ProcessingTime:   elapsed,
		},
		ExtractedText:    text,
		TextractResponse: ocrResult,
		Stats:            docextract.Count(text),
	}, nil
}

func (s *DocumentService) extract(ctx context.Context, kind docextract.Kind, data []byte) (string, *ocr.Result, string, error) {
	switch kind {
	case docextract.KindImage:
		return s.detect(ctx, data)
	case docextract.KindPDF:
		text, err := docextract.ExtractPDF(data)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil, kind.Method(), nil
		}
		if err != nil {
			slog.DebugContext(ctx, "direct pdf extraction failed, falling back to ocr", "error", err)
		}
		return s.detect(ctx, data)
	default:
		text, err := docextract.Extract(kind, data)
		if err != nil {
			return "", nil, "", err
		}
		return text, nil, kind.Method(), nil
	}
}

func (s *DocumentService) detect(ctx context.Context, data []byte) (string, *ocr.Result, string, error) {
	if s.ocr == nil {
		return "", nil, "", ErrOCRNotConfigured
	}
	start := time.Now()
	res, err := s.ocr.DetectText(ctx, data)
	s.metrics.ObserveOCR(err, time.Since(start))
	if err != nil {
		return "", nil, "", err
	}
	return res.Text(), res, docextract.KindImage.Method(), nil
}

func (s *DocumentService) archive(ctx context.Context, in UploadInput, mimeType string) {
	if s.store == nil {
		return
	}
	key := ArchiveKey(in.UserID, uuid.NewString(), in.Name)
	if err := s.store.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), mimeType); err != nil {
		slog.WarnContext(ctx, "archive document failed", "key", key, "error", err)
	}
}

// ArchiveKey is the object key of an archived upload.
func ArchiveKey(userID uint, id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return fmt.Sprintf("users/%d/%s/%s", userID, id, name)
}

func (s *DocumentService) History(ctx context.Context, userID uint, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	sessions, err := s.sessionRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Sessions: sessions,
		Limit:    limit,
		Offset:   offset,
		HasMore:  len(sessions) == limit,
	}, nil
}

func (s *DocumentService) Stats(ctx context.Context, userID uint) (*repository.DocumentStats, error) {
	return s.analyticsRepo.DocumentStats(ctx, userID)
}
