package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

// createTestStorage создает временное BoltDB хранилище и инициализирует buckets
func createTestStorage(t *testing.T) (*Storage, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "probtrack_test.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
		require.NoError(t, os.RemoveAll(tmpDir))
	}

	return store, cleanup
}

func TestNew_CreatesBuckets(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.db.View(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketAuth, bucketQueue, bucketQueueIndex,
			bucketDeadLetter, bucketCache, bucketMetadata, bucketProblems,
		} {
			assert.NotNil(t, tx.Bucket(name), "bucket %s should exist", name)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, "/nonexistent-dir/sub/test.db")
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "close_test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	require.NoError(t, store.Close())

	// Повторное закрытие nil db не падает
	empty := &Storage{}
	assert.NoError(t, empty.Close())
}
