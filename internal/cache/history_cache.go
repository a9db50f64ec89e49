package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ajiri/internal/model"
)

// HistoryCache keeps recently read chat sessions in Redis.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
	prefix     string
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
		prefix:     "ajiri:chat:history",
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, userID uint, sessionID string) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(userID, sessionID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, userID uint, sessionID string, messages []model.ChatMessage) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(userID, sessionID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, userID uint, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(userID uint, sessionID string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, userID, sessionID)
}
