package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

// AuditRepository stores audit events append-only: there is deliberately no
// update or delete in this interface, which is what makes the trail
// tamper-evident at the contract level rather than by convention.
type AuditRepository interface {
	SaveEvent(ctx context.Context, event *entity.AuditEvent) error
	EventsForDraft(ctx context.Context, draftID uuid.UUID, limit int) ([]*entity.AuditEvent, error)
	RecentEvents(ctx context.Context, limit int) ([]*entity.AuditEvent, error)
	EventsByType(ctx context.Context, eventType constants.EventType, limit int) ([]*entity.AuditEvent, error)
	CountEvents(ctx context.Context) (int64, error)
	CountEventsByType(ctx context.Context) (map[constants.EventType]int64, error)
}

// RetryPolicy bounds the insert retry against a busy store. The delay is kept
// short and the count fixed so worst-case latency stays predictable.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy absorbs transient SQLITE_BUSY from a competing writer.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Delay: 100 * time.Millisecond}

type auditRepository struct {
	db     *sql.DB
	retry  RetryPolicy
	logger *slog.Logger
}

// NewAuditRepository initializes the audit_events schema and returns the
// sqlite-backed repository.
func NewAuditRepository(db *sql.DB, retry RetryPolicy, logger *slog.Logger) (AuditRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxRetries < 1 {
		retry = DefaultRetryPolicy
	}
	r := &auditRepository{db: db, retry: retry, logger: logger}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *auditRepository) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id   TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			actor      TEXT NOT NULL,
			draft_id   TEXT,
			data_json  TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_draft_id ON audit_events(draft_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			r.logger.Error("failed to init audit schema", "error", err)
			return ClassifyStoreError(err)
		}
	}
	return nil
}

// SaveEvent appends one event, retrying a bounded number of times when the
// backing store is held by another writer. Exhausted retries return the lock
// classification; the caller decides whether that is fatal.
func (r *auditRepository) SaveEvent(ctx context.Context, event *entity.AuditEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return common.WrapError(err, "marshal event data")
	}
	var draftID any
	if event.DraftID != nil {
		draftID = event.DraftID.String()
	}

	var lastErr error
	for attempt := 0; attempt < r.retry.MaxRetries; attempt++ {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO audit_events
			(event_id, event_type, timestamp, actor, draft_id, data_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			event.ID.String(),
			string(event.Type),
			formatTime(event.Timestamp),
			event.Actor,
			draftID,
			string(dataJSON),
			formatTime(event.CreatedAt),
		)
		if err == nil {
			return nil
		}

		lastErr = ClassifyStoreError(err)
		if !common.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt < r.retry.MaxRetries-1 {
			select {
			case <-time.After(r.retry.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	r.logger.Warn("audit store busy, retries exhausted",
		"event_type", event.Type, "attempts", r.retry.MaxRetries)
	return lastErr
}

func (r *auditRepository) EventsForDraft(ctx context.Context, draftID uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectEvent+`
		WHERE draft_id = ? ORDER BY timestamp DESC LIMIT ?`, draftID.String(), limit)
	if err != nil {
		r.logger.Error("failed to query events for draft", "draft_id", draftID, "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *auditRepository) RecentEvents(ctx context.Context, limit int) ([]*entity.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectEvent+`
		ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		r.logger.Error("failed to query recent events", "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *auditRepository) EventsByType(ctx context.Context, eventType constants.EventType, limit int) ([]*entity.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectEvent+`
		WHERE event_type = ? ORDER BY timestamp DESC LIMIT ?`, string(eventType), limit)
	if err != nil {
		r.logger.Error("failed to query events by type", "event_type", eventType, "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *auditRepository) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		r.logger.Error("failed to count events", "error", err)
		return 0, ClassifyStoreError(err)
	}
	return count, nil
}

func (r *auditRepository) CountEventsByType(ctx context.Context) (map[constants.EventType]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM audit_events GROUP BY event_type`)
	if err != nil {
		r.logger.Error("failed to count events by type", "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()

	counts := make(map[constants.EventType]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, ClassifyStoreError(err)
		}
		counts[constants.EventType(eventType)] = count
	}
	return counts, rows.Err()
}

const selectEvent = `
	SELECT event_id, event_type, timestamp, actor, draft_id, data_json, created_at
	FROM audit_events`

func scanEvents(rows *sql.Rows) ([]*entity.AuditEvent, error) {
	var events []*entity.AuditEvent
	for rows.Next() {
		var (
			idStr, eventType, timestamp, actor, dataJSON, createdAt string
			draftID                                                 sql.NullString
		)
		if err := rows.Scan(&idStr, &eventType, &timestamp, &actor, &draftID, &dataJSON, &createdAt); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, common.WrapError(err, "parse event_id")
		}
		event := &entity.AuditEvent{
			ID:    id,
			Type:  constants.EventType(eventType),
			Actor: actor,
		}
		if draftID.Valid {
			parsed, err := uuid.Parse(draftID.String)
			if err != nil {
				return nil, common.WrapError(err, "parse draft_id")
			}
			event.DraftID = &parsed
		}
		if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
			return nil, common.WrapError(err, "unmarshal event data")
		}
		if event.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, err
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
