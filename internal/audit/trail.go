package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
	"github.com/joseph-ayodele/receipt-ledger/internal/repository"
)

// SystemActor is attributed when no actor travels on the context.
const SystemActor = "SYSTEM"

// Trail records pipeline events best-effort: a failed append is logged and
// dropped, it never propagates into the operation being audited.
type Trail struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

func NewTrail(repo repository.AuditRepository, logger *slog.Logger) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{repo: repo, logger: logger}
}

// Record appends one event. The actor is taken from ctx; data may be nil.
func (t *Trail) Record(ctx context.Context, eventType constants.EventType, draftID *uuid.UUID, data map[string]any) {
	actor := common.ActorFromContext(ctx)
	if actor == "" {
		actor = SystemActor
	}

	now := time.Now().UTC()
	event := &entity.AuditEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: now,
		Actor:     actor,
		DraftID:   draftID,
		Data:      data,
		CreatedAt: now,
	}

	if err := t.repo.SaveEvent(ctx, event); err != nil {
		t.logger.Warn("audit event dropped",
			"event_type", eventType, "draft_id", draftID, "actor", actor, "error", err)
	}
}

// RecordDraft is Record with a concrete draft ID.
func (t *Trail) RecordDraft(ctx context.Context, eventType constants.EventType, draftID uuid.UUID, data map[string]any) {
	t.Record(ctx, eventType, &draftID, data)
}
