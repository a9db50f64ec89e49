package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"gorm.io/gorm"

	"ajiri/internal/model"
	"ajiri/internal/ocr"
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

type fakeOCR struct {
	result *ocr.Result
	err    error
	calls  int
}

func (f *fakeOCR) DetectText(_ context.Context, _ []byte) (*ocr.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeAnswerer struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type fakeStore struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
	err  error
}

func (f *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.keys = append(f.keys, key)
	f.data[key] = buf.Bytes()
	return nil
}

type mapCache struct {
	entries map[string][]model.ChatMessage
	deletes int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]model.ChatMessage{}}
}

func (c *mapCache) key(userID uint, sessionID string) string {
	return fmt.Sprintf("%d:%s", userID, sessionID)
}

func (c *mapCache) GetHistory(_ context.Context, userID uint, sessionID string) ([]model.ChatMessage, bool, error) {
	v, ok := c.entries[c.key(userID, sessionID)]
	return v, ok, nil
}

func (c *mapCache) SetHistory(_ context.Context, userID uint, sessionID string, messages []model.ChatMessage) error {
	c.entries[c.key(userID, sessionID)] = messages
	return nil
}

func (c *mapCache) DeleteHistory(_ context.Context, userID uint, sessionID string) error {
	c.deletes++
	delete(c.entries, c.key(userID, sessionID))
	return nil
}
