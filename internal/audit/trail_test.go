package audit

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

type fakeAuditRepo struct {
	saved   []*entity.AuditEvent
	saveErr error

	lastLimit int
	events    []*entity.AuditEvent
	count     int64
	byType    map[constants.EventType]int64
}

func (f *fakeAuditRepo) SaveEvent(_ context.Context, event *entity.AuditEvent) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, event)
	return nil
}

func (f *fakeAuditRepo) EventsForDraft(_ context.Context, _ uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	f.lastLimit = limit
	return f.events, nil
}

func (f *fakeAuditRepo) RecentEvents(_ context.Context, limit int) ([]*entity.AuditEvent, error) {
	f.lastLimit = limit
	return f.events, nil
}

func (f *fakeAuditRepo) EventsByType(_ context.Context, _ constants.EventType, limit int) ([]*entity.AuditEvent, error) {
	f.lastLimit = limit
	return f.events, nil
}

func (f *fakeAuditRepo) CountEvents(_ context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeAuditRepo) CountEventsByType(_ context.Context) (map[constants.EventType]int64, error) {
	return f.byType, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestTrailRecordSetsActorFromContext(t *testing.T) {
	repo := &fakeAuditRepo{}
	trail := NewTrail(repo, quietLogger())

	ctx := common.WithActor(context.Background(), "tanaka")
	draftID := uuid.New()
	trail.RecordDraft(ctx, constants.EventDraftCreated, draftID, map[string]any{"vendor_name": "ACME"})

	require.Len(t, repo.saved, 1)
	event := repo.saved[0]
	assert.Equal(t, "tanaka", event.Actor)
	assert.Equal(t, constants.EventDraftCreated, event.Type)
	require.NotNil(t, event.DraftID)
	assert.Equal(t, draftID, *event.DraftID)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestTrailRecordDefaultsToSystemActor(t *testing.T) {
	repo := &fakeAuditRepo{}
	trail := NewTrail(repo, quietLogger())

	trail.Record(context.Background(), constants.EventSendAttempted, nil, nil)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, SystemActor, repo.saved[0].Actor)
	assert.Nil(t, repo.saved[0].DraftID)
}

func TestTrailRecordSwallowsStoreFailures(t *testing.T) {
	repo := &fakeAuditRepo{saveErr: errors.New("database is locked")}
	trail := NewTrail(repo, quietLogger())

	assert.NotPanics(t, func() {
		trail.RecordDraft(context.Background(), constants.EventSendFailed, uuid.New(), nil)
	})
	assert.Empty(t, repo.saved)
}
