package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

func TestSaveAndGetLastSyncAt(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Изначально - нулевое время (синхронизации еще не было)
	got, err := store.GetLastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, store.SaveLastSyncAt(ctx, now))

	got, err = store.GetLastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(got))
}

func TestGetSession_CreatesLocalSessionOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	session, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.NodeID)
	assert.Equal(t, models.UserTypeLocal, session.UserType)
	assert.Empty(t, session.UserID)

	// Повторное чтение возвращает тот же node id
	again, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.NodeID, again.NodeID)
}

func TestSaveSession_SignIn(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	session, err := store.GetSession(ctx)
	require.NoError(t, err)

	session.UserID = "user-123"
	session.Username = "gopher"
	session.UserType = models.UserTypeSignedIn
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeSignedIn, got.UserType)
	assert.Equal(t, "user-123", got.UserID)
}

func TestDeleteSession_KeepsNodeID(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	session, err := store.GetSession(ctx)
	require.NoError(t, err)
	nodeID := session.NodeID

	session.UserID = "user-123"
	session.UserType = models.UserTypeSignedIn
	require.NoError(t, store.SaveSession(ctx, session))

	require.NoError(t, store.DeleteSession(ctx))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, nodeID, got.NodeID)
	assert.Empty(t, got.UserID)
	assert.Equal(t, models.UserTypeLocal, got.UserType)
}

func TestBundleState_DefaultIdle(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	state, err := store.GetBundleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", state.Status)
	assert.Zero(t, state.Version)
}

func TestBundleState_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	state := &storage.BundleState{
		Status:         "complete",
		Version:        1700000000,
		TotalFiles:     500,
		ExtractedFiles: 500,
		DownloadedAt:   time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.SaveBundleState(ctx, state))

	got, err := store.GetBundleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "complete", got.Status)
	assert.Equal(t, int64(1700000000), got.Version)
	assert.Equal(t, 500, got.TotalFiles)
	assert.Equal(t, 500, got.ExtractedFiles)
}
