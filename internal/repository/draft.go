package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

// DraftRepository persists draft records keyed by draft_id. It carries no
// business rules: status transitions are enforced above it.
type DraftRepository interface {
	Save(ctx context.Context, draft *entity.Draft) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Draft, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Draft, error)
	GetByImageRef(ctx context.Context, imageRef string) (*entity.Draft, error)
	List(ctx context.Context, status *constants.DraftStatus) ([]*entity.Draft, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type draftRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDraftRepository initializes the draft_receipts schema and returns the
// sqlite-backed repository.
func NewDraftRepository(db *sql.DB, logger *slog.Logger) (DraftRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &draftRepository{db: db, logger: logger}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *draftRepository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS draft_receipts (
			draft_id             TEXT PRIMARY KEY,
			receipt_json         TEXT NOT NULL,
			status               TEXT NOT NULL,
			created_at           TEXT NOT NULL,
			updated_at           TEXT NOT NULL,
			sent_at              TEXT,
			image_ref            TEXT,
			send_attempt_count   INTEGER NOT NULL DEFAULT 0,
			last_send_attempt_at TEXT,
			last_send_error      TEXT
		)`)
	if err != nil {
		r.logger.Error("failed to init draft schema", "error", err)
		return ClassifyStoreError(err)
	}
	return nil
}

// Save upserts a draft. INSERT OR REPLACE keeps create and update on one path,
// matching the single-writer store model.
func (r *draftRepository) Save(ctx context.Context, draft *entity.Draft) error {
	receiptJSON, err := json.Marshal(draft.Receipt)
	if err != nil {
		return common.WrapError(err, "marshal receipt")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO draft_receipts
		(draft_id, receipt_json, status, created_at, updated_at, sent_at,
		 image_ref, send_attempt_count, last_send_attempt_at, last_send_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID.String(),
		string(receiptJSON),
		string(draft.Status),
		formatTime(draft.CreatedAt),
		formatTime(draft.UpdatedAt),
		formatTimePtr(draft.SentAt),
		nullIfEmpty(draft.ImageRef),
		draft.SendAttemptCount,
		formatTimePtr(draft.LastSendAttemptAt),
		nullIfEmpty(draft.LastSendError),
	)
	if err != nil {
		r.logger.Error("failed to save draft", "draft_id", draft.ID, "error", err)
		return ClassifyStoreError(err)
	}
	return nil
}

func (r *draftRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Draft, error) {
	row := r.db.QueryRowContext(ctx, selectDraft+` WHERE draft_id = ?`, id.String())
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load draft", "draft_id", id, "error", err)
		return nil, ClassifyStoreError(err)
	}
	return draft, nil
}

func (r *draftRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Draft, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, selectDraft+` WHERE draft_id IN (`+placeholders+`)`, args...)
	if err != nil {
		r.logger.Error("failed to load drafts", "count", len(ids), "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	return scanDrafts(rows)
}

// GetByImageRef returns the editable draft linked to a source image, for
// intake dedup. SENT records are excluded: they are immutable and must not
// block a new draft for the same image.
func (r *draftRepository) GetByImageRef(ctx context.Context, imageRef string) (*entity.Draft, error) {
	row := r.db.QueryRowContext(ctx, selectDraft+`
		WHERE image_ref = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		imageRef, string(constants.StatusDraft))
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load draft by image_ref", "image_ref", imageRef, "error", err)
		return nil, ClassifyStoreError(err)
	}
	return draft, nil
}

func (r *draftRepository) List(ctx context.Context, status *constants.DraftStatus) ([]*entity.Draft, error) {
	query := selectDraft
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list drafts", "error", err)
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	return scanDrafts(rows)
}

func (r *draftRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM draft_receipts WHERE draft_id = ?`, id.String())
	if err != nil {
		r.logger.Error("failed to delete draft", "draft_id", id, "error", err)
		return false, ClassifyStoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ClassifyStoreError(err)
	}
	return n > 0, nil
}

const selectDraft = `
	SELECT draft_id, receipt_json, status, created_at, updated_at, sent_at,
	       image_ref, send_attempt_count, last_send_attempt_at, last_send_error
	FROM draft_receipts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*entity.Draft, error) {
	var (
		idStr, receiptJSON, status, createdAt, updatedAt string
		sentAt, imageRef, lastAttemptAt, lastErr         sql.NullString
		attemptCount                                     int
	)
	if err := row.Scan(&idStr, &receiptJSON, &status, &createdAt, &updatedAt,
		&sentAt, &imageRef, &attemptCount, &lastAttemptAt, &lastErr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, common.WrapError(err, "parse draft_id")
	}

	draft := &entity.Draft{
		ID:               id,
		Status:           constants.DraftStatus(status),
		ImageRef:         imageRef.String,
		SendAttemptCount: attemptCount,
		LastSendError:    lastErr.String,
	}
	if err := json.Unmarshal([]byte(receiptJSON), &draft.Receipt); err != nil {
		return nil, common.WrapError(err, "unmarshal receipt")
	}
	if draft.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if draft.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if draft.SentAt, err = parseTimePtr(sentAt); err != nil {
		return nil, err
	}
	if draft.LastSendAttemptAt, err = parseTimePtr(lastAttemptAt); err != nil {
		return nil, err
	}
	return draft, nil
}

func scanDrafts(rows *sql.Rows) ([]*entity.Draft, error) {
	var drafts []*entity.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, common.WrapError(err, "parse timestamp")
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
