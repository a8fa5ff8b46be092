package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

func newTestAuditRepo(t *testing.T) AuditRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "audit.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, testLogger()) })

	repo, err := NewAuditRepository(db, DefaultRetryPolicy, testLogger())
	require.NoError(t, err)
	return repo
}

func newEvent(eventType constants.EventType, draftID *uuid.UUID, ts time.Time) *entity.AuditEvent {
	return &entity.AuditEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: ts,
		Actor:     "tanaka",
		DraftID:   draftID,
		Data:      map[string]any{"attempt": float64(1)},
		CreatedAt: ts,
	}
}

func TestAuditSaveAndQueryByDraft(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	draftID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)
	first := newEvent(constants.EventSendAttempted, &draftID, base)
	second := newEvent(constants.EventSendSucceeded, &draftID, base.Add(time.Second))
	other := newEvent(constants.EventDraftCreated, nil, base.Add(2*time.Second))

	require.NoError(t, repo.SaveEvent(ctx, first))
	require.NoError(t, repo.SaveEvent(ctx, second))
	require.NoError(t, repo.SaveEvent(ctx, other))

	events, err := repo.EventsForDraft(ctx, draftID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, first.ID, events[1].ID)
	assert.Equal(t, "tanaka", events[0].Actor)
	assert.Equal(t, map[string]any{"attempt": float64(1)}, events[0].Data)
	require.NotNil(t, events[0].DraftID)
	assert.Equal(t, draftID, *events[0].DraftID)
}

func TestAuditRecentEventsOrderAndLimit(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		e := newEvent(constants.EventDraftCreated, nil, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.SaveEvent(ctx, e))
		ids = append(ids, e.ID)
	}

	events, err := repo.RecentEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ids[4], events[0].ID)
	assert.Equal(t, ids[3], events[1].ID)
	assert.Equal(t, ids[2], events[2].ID)
}

func TestAuditEventsByType(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC()
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventDraftCreated, nil, ts)))
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventSendFailed, nil, ts.Add(time.Second))))

	failed, err := repo.EventsByType(ctx, constants.EventSendFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, constants.EventSendFailed, failed[0].Type)

	none, err := repo.EventsByType(ctx, constants.EventDraftDeleted, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditCountEvents(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	count, err := repo.CountEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	ts := time.Now().UTC()
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventDraftCreated, nil, ts)))
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventDraftUpdated, nil, ts.Add(time.Second))))

	count, err = repo.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAuditCountEventsByType(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventDraftCreated, nil, base)))
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventDraftCreated, nil, base.Add(time.Second))))
	require.NoError(t, repo.SaveEvent(ctx, newEvent(constants.EventSendFailed, nil, base.Add(2*time.Second))))

	counts, err := repo.CountEventsByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[constants.EventDraftCreated])
	assert.Equal(t, int64(1), counts[constants.EventSendFailed])
	// Types never recorded are simply absent.
	_, present := counts[constants.EventDraftDeleted]
	assert.False(t, present)
}

func TestAuditEventWithNilData(t *testing.T) {
	repo := newTestAuditRepo(t)
	ctx := context.Background()

	e := newEvent(constants.EventDraftDeleted, nil, time.Now().UTC())
	e.Data = nil
	require.NoError(t, repo.SaveEvent(ctx, e))

	events, err := repo.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Data)
}
