package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
)

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "store.db")
	db, err := Open(context.Background(), path, testLogger())
	require.NoError(t, err)
	Close(db, testLogger())
}

func TestOpenAndCloseAcceptNilLogger(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { Close(db, nil) })
	assert.NotPanics(t, func() { Close(nil, nil) })
}

func TestClassifyStoreError(t *testing.T) {
	assert.NoError(t, ClassifyStoreError(nil))

	locked := ClassifyStoreError(errors.New("database is locked (5) (SQLITE_BUSY)"))
	assert.ErrorIs(t, locked, common.ErrResourceLocked)
	assert.True(t, common.IsRetryable(locked))

	forbidden := ClassifyStoreError(errors.New("open store.db: permission denied"))
	assert.ErrorIs(t, forbidden, common.ErrPermissionDenied)
	assert.False(t, common.IsRetryable(forbidden))

	other := ClassifyStoreError(errors.New("no such table: drafts"))
	assert.False(t, common.IsRetryable(other))
}
