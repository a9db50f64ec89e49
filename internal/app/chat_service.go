package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ajiri/internal/ai"
	"ajiri/internal/metrics"
	"ajiri/internal/model"
	"ajiri/internal/repository"
)

var (
	ErrEmptyAnswer       = errors.New("empty answer")
	ErrChatPersist       = errors.New("chat message persist failed")
	ErrUnknownQuickAsk   = errors.New("unknown quick ask type")
	ErrSessionIDRequired = errors.New("session id is required")
)

const (
	defaultDocumentName = "unknown"
	maxSessionIDLength  = 128
)

// quickAskQuestions maps a quick-ask type to its canned question.
var quickAskQuestions = map[string]string{
	"amount":  "What is the total amount?",
	"date":    "What is the date on this document?",
	"company": "What company is this from?",
	"summary": "Provide a brief summary of this document.",
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint, sessionID string) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, userID uint, sessionID string, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, userID uint, sessionID string) error
}

type ChatService struct {
	chatRepo     *repository.ChatRepository
	llm          ai.Answerer
	historyCache HistoryCache
	metrics      *metrics.Collector
	now          func() time.Time
}

type AskInput struct {
	UserID       uint
	Question     string
	Context      string
	DocumentName string
	SessionID    string
}

type AskResult struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	ResponseTime int64  `json:"responseTime"`
	SessionID    string `json:"sessionId"`
}

type QuickAskInput struct {
	UserID       uint
	Type         string
	Context      string
	DocumentName string
}

type QuickAskResult struct {
	Type      string `json:"type"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"sessionId"`
}

func NewChatService(chatRepo *repository.ChatRepository, llm ai.Answerer, historyCache HistoryCache, collector *metrics.Collector) *ChatService {
	if llm == nil {
		llm = ai.DisabledClient{}
	}
	return &ChatService{
		chatRepo:     chatRepo,
		llm:          llm,
		historyCache: historyCache,
		metrics:      collector,
		now:          time.Now,
	}
}

// Ask answers one question over the supplied document text and stores the exchange.
func (s *ChatService) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, &ValidationError{Field: "question", Reason: "is required"}
	}
	if in.Context == "" {
		return nil, &ValidationError{Field: "context", Reason: "is required"}
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if len(sessionID) > maxSessionIDLength {
		return nil, &ValidationError{Field: "sessionId", Reason: fmt.Sprintf("must be at most %d characters", maxSessionIDLength)}
	}
	if sessionID == "" {
		sessionID = NewSessionID(s.now())
	}
	documentName := strings.TrimSpace(in.DocumentName)
	if documentName == "" {
		documentName = defaultDocumentName
	}

	start := s.now()
	answer, err := s.llm.Answer(ctx, ai.DocumentPrompt(in.Context, question))
	s.metrics.ObserveModel(err, time.Since(start))
	if err != nil {
		if errors.Is(err, ai.ErrEmptyAnswer) {
			return nil, ErrEmptyAnswer
		}
		var upstream *ai.UpstreamError
		if !errors.As(err, &upstream) {
			err = &ai.UpstreamError{Message: err.Error(), Err: err}
		}
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}
	responseTime := s.now().Sub(start).Milliseconds()

	message := &model.ChatMessage{
		UserID:       in.UserID,
		SessionID:    sessionID,
		DocumentName: documentName,
		Question:     question,
		Answer:       answer,
	}
	if err := s.chatRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatPersist, err)
	}
	s.invalidate(ctx, in.UserID, sessionID)

	return &AskResult{
		Question:     question,
		Answer:       answer,
		ResponseTime: responseTime,
		SessionID:    sessionID,
	}, nil
}

// QuickAsk asks one of the canned questions in a fresh session.
func (s *ChatService) QuickAsk(ctx context.Context, in QuickAskInput) (*QuickAskResult, error) {
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	question, ok := quickAskQuestions[kind]
	if !ok {
		return nil, ErrUnknownQuickAsk
	}
	res, err := s.Ask(ctx, AskInput{
		UserID:       in.UserID,
		Question:     question,
		Context:      in.Context,
		DocumentName: in.DocumentName,
	})
	if err != nil {
		return nil, err
	}
	return &QuickAskResult{
		Type:      kind,
		Question:  res.Question,
		Answer:    res.Answer,
		SessionID: res.SessionID,
	}, nil
}

// History returns the session's exchanges oldest first, read through the cache when one is set.
func (s *ChatService) History(ctx context.Context, userID uint, sessionID string) ([]model.ChatMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if s.historyCache != nil {
		cached, ok, err := s.historyCache.GetHistory(ctx, userID, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "read chat history cache failed", "session_id", sessionID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	history, err := s.chatRepo.ListBySession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, userID, sessionID, history); err != nil {
			slog.WarnContext(ctx, "write chat history cache failed", "session_id", sessionID, "error", err)
		}
	}
	return history, nil
}

func (s *ChatService) Sessions(ctx context.Context, userID uint) ([]repository.ChatSessionSummary, error) {
	return s.chatRepo.ListSessions(ctx, userID)
}

// DeleteSession removes every exchange of the session and reports how many were removed.
func (s *ChatService) DeleteSession(ctx context.Context, userID uint, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, ErrSessionIDRequired
	}
	deleted, err := s.chatRepo.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID, sessionID)
	return deleted, nil
}

func (s *ChatService) invalidate(ctx context.Context, userID uint, sessionID string) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.DeleteHistory(ctx, userID, sessionID); err != nil {
		slog.WarnContext(ctx, "invalidate chat history cache failed", "session_id", sessionID, "error", err)
	}
}

// NewSessionID returns an id of the form session_<unixMillis>_<9 lowercase alphanumerics>.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
