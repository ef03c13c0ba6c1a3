package cache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/client/storage/boltdb"
)

func createTestManager(t *testing.T) (*Manager, *boltdb.Storage) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "cache_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, store, logger), store
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	require.NoError(t, mgr.Put(ctx, storage.TierContent, "problems/two-sum.md", []byte("# Two Sum")))

	entry, err := mgr.Get(ctx, storage.TierContent, "problems/two-sum.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# Two Sum"), entry.Content)
	assert.NotEmpty(t, entry.Hash)
	assert.False(t, entry.StoredAt.IsZero())

	ok, err := mgr.Has(ctx, storage.TierContent, "problems/two-sum.md")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownTierRejected(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	err := mgr.Put(ctx, storage.Tier("runtime"), "key", []byte("data"))
	assert.ErrorIs(t, err, storage.ErrTierNotFound)

	_, err = mgr.Get(ctx, storage.Tier("runtime"), "key")
	assert.ErrorIs(t, err, storage.ErrTierNotFound)
}

func TestGetContent_ContentOnly(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	require.NoError(t, mgr.Put(ctx, storage.TierContent, "problems/two-sum.md", []byte("live")))

	entry, err := mgr.GetContent(ctx, "problems/two-sum.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("live"), entry.Content)
}

func TestGetContent_NewerWins(t *testing.T) {
	ctx := context.Background()
	mgr, store := createTestManager(t)

	// Запись из bundle свежее живого контента
	require.NoError(t, store.PutEntry(ctx, storage.TierContent, "problems/two-sum.md", &storage.CacheEntry{
		Content:  []byte("stale"),
		StoredAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, store.PutEntry(ctx, storage.TierBundle, "problems/two-sum.md", &storage.CacheEntry{
		Content:  []byte("fresh"),
		StoredAt: time.Now(),
	}))

	entry, err := mgr.GetContent(ctx, "problems/two-sum.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), entry.Content)

	// И наоборот: живой контент свежее bundle
	require.NoError(t, store.PutEntry(ctx, storage.TierContent, "problems/two-sum.md", &storage.CacheEntry{
		Content:  []byte("updated"),
		StoredAt: time.Now().Add(time.Minute),
	}))

	entry, err = mgr.GetContent(ctx, "problems/two-sum.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), entry.Content)
}

func TestGetContent_Missing(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	_, err := mgr.GetContent(ctx, "problems/missing.md")
	assert.ErrorIs(t, err, storage.ErrEntryNotFound)
}

func TestInvalidateResource(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	require.NoError(t, mgr.Put(ctx, storage.TierAPIResponses, "two-sum/document", []byte(`{"a":1}`)))
	require.NoError(t, mgr.Put(ctx, storage.TierAPIResponses, "two-sum/status", []byte(`{"b":2}`)))
	require.NoError(t, mgr.Put(ctx, storage.TierAPIResponses, "three-sum/document", []byte(`{"c":3}`)))

	require.NoError(t, mgr.InvalidateResource(ctx, "two-sum"))

	ok, err := mgr.Has(ctx, storage.TierAPIResponses, "two-sum/document")
	require.NoError(t, err)
	assert.False(t, ok)

	// Другая сущность не задета
	ok, err = mgr.Has(ctx, storage.TierAPIResponses, "three-sum/document")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	for _, tier := range storage.Tiers {
		require.NoError(t, mgr.Put(ctx, tier, "key", []byte("data")))
	}

	require.NoError(t, mgr.ClearAll(ctx))

	// Все tier-ы пусты, но менеджер остается рабочим
	report, err := mgr.Capability(ctx)
	require.NoError(t, err)
	for _, tier := range storage.Tiers {
		assert.Equal(t, 0, report.TierCounts[string(tier)], "tier %s", tier)
	}

	require.NoError(t, mgr.Put(ctx, storage.TierContent, "key", []byte("data")))
	ok, err := mgr.Has(ctx, storage.TierContent, "key")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanServeOffline(t *testing.T) {
	ctx := context.Background()
	mgr, _ := createTestManager(t)

	ok, err := mgr.CanServeOffline(ctx, "problems/two-sum.md")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mgr.Put(ctx, storage.TierBundle, "problems/two-sum.md", []byte("bundled")))

	ok, err = mgr.CanServeOffline(ctx, "problems/two-sum.md")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCapability_WithBundle(t *testing.T) {
	ctx := context.Background()
	mgr, store := createTestManager(t)

	require.NoError(t, mgr.Put(ctx, storage.TierContent, "a", []byte("1")))
	require.NoError(t, mgr.Put(ctx, storage.TierContent, "b", []byte("2")))

	require.NoError(t, store.SaveBundleState(ctx, &storage.BundleState{
		Status:         "complete",
		Version:        1724900000,
		TotalFiles:     120,
		ExtractedFiles: 120,
		DownloadedAt:   time.Now(),
	}))

	report, err := mgr.Capability(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TierCounts[string(storage.TierContent)])
	assert.True(t, report.HasBundle)
	assert.Equal(t, int64(1724900000), report.BundleVersion)
}
