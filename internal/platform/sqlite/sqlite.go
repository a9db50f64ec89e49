package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ajiri/internal/platform/gormlog"
)

const memoryPath = ":memory:"

// New opens the SQLite database at path, creating its directory when needed.
// The pool is pinned to one connection: SQLite serializes writers anyway and an
// in-memory database only lives as long as its connection.
func New(ctx context.Context, path string) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if !isMemory(path) {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory failed: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), gormlog.Config())
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite sql db failed: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping sqlite failed: %w", err)
	}
	return db, nil
}

// NewMemory opens a private in-memory database.
func NewMemory(ctx context.Context) (*gorm.DB, error) {
	return New(ctx, memoryPath)
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	params := "_busy_timeout=5000&_foreign_keys=on"
	if !isMemory(path) {
		params += "&_journal_mode=WAL"
	}
	return path + "?" + params
}

func isMemory(path string) bool {
	return path == memoryPath || strings.Contains(path, "mode=memory")
}
