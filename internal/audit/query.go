package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
	"github.com/joseph-ayodele/receipt-ledger/internal/repository"
)

const (
	defaultQueryLimit = 200
	maxQueryLimit     = 1000
)

// QueryService is the read side of the audit trail.
type QueryService struct {
	repo repository.AuditRepository
}

func NewQueryService(repo repository.AuditRepository) *QueryService {
	return &QueryService{repo: repo}
}

// Stats summarizes trail volume per event type.
type Stats struct {
	Total  int64                         `json:"total"`
	ByType map[constants.EventType]int64 `json:"by_type"`
}

// EventsForDraft returns the draft's events, newest first.
func (s *QueryService) EventsForDraft(ctx context.Context, draftID uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	return s.repo.EventsForDraft(ctx, draftID, clampLimit(limit))
}

// Recent returns the latest events across all drafts, newest first.
func (s *QueryService) Recent(ctx context.Context, limit int) ([]*entity.AuditEvent, error) {
	return s.repo.RecentEvents(ctx, clampLimit(limit))
}

// EventsByType returns events of one type, newest first. Unknown types are
// rejected rather than returning a silently empty result.
func (s *QueryService) EventsByType(ctx context.Context, eventType constants.EventType, limit int) ([]*entity.AuditEvent, error) {
	if !eventType.Valid() {
		return nil, common.InvalidArgumentErrorf("unknown event type %q", eventType)
	}
	return s.repo.EventsByType(ctx, eventType, clampLimit(limit))
}

// Statistics counts the whole trail and each known event type. Counts come
// from aggregate queries, not materialized rows, so they stay exact however
// large the trail grows.
func (s *QueryService) Statistics(ctx context.Context) (*Stats, error) {
	total, err := s.repo.CountEvents(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.CountEventsByType(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: total, ByType: make(map[constants.EventType]int64, len(constants.EventTypes))}
	for _, et := range constants.EventTypes {
		stats.ByType[et] = byType[et]
	}
	return stats, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	default:
		return limit
	}
}
