package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
)

// Open opens (creating if needed) a sqlite store at path and verifies it is
// reachable. Each store serializes its writers internally: the pool is capped
// at one connection so in-process writes to the same file never interleave.
// Cross-process contention surfaces as SQLITE_BUSY and is classified by
// ClassifyStoreError at the call site.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create store directory", "path", path, "error", err)
			return nil, common.WrapError(err, "create store directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open store", "path", path, "error", err)
		return nil, common.WrapError(err, "open store")
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.Error("store ping failed", "path", path, "error", err)
		return nil, common.WrapError(err, "ping store")
	}

	logger.Info("store opened", "path", path)
	return db, nil
}

// Close closes a store, logging rather than propagating the error: the stores
// are independently committed and a close failure has nothing to roll back.
func Close(db *sql.DB, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}
}

// ClassifyStoreError maps a raw driver error onto the failure taxonomy.
// SQLITE_BUSY / SQLITE_LOCKED mean another writer holds the file and the
// operation is retry-eligible; permission errors are fatal for the write.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "busy"):
		return common.NewAppError("STORE_LOCKED", "store busy", common.ErrResourceLocked)
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access is denied"):
		return common.NewAppError("STORE_FORBIDDEN", "store not writable", common.ErrPermissionDenied)
	default:
		return common.WrapError(err, "store operation")
	}
}
