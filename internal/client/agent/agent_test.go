package agent

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/internal/bundle"
	httpClient "github.com/iudanet/probtrack/internal/client/api"
	"github.com/iudanet/probtrack/internal/client/auth"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/queue"
	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/client/storage/boltdb"
	syncsvc "github.com/iudanet/probtrack/internal/client/sync"
	"github.com/iudanet/probtrack/internal/models"
	"github.com/iudanet/probtrack/internal/protocol"
	"github.com/iudanet/probtrack/pkg/api"
)

type testEnv struct {
	agent  *Agent
	bus    *Bus
	store  *boltdb.Storage
	events <-chan *protocol.Event
	cancel context.CancelFunc
	done   chan error
}

// createTestEnv собирает агента с реальным хранилищем, моками API
// и запускает его цикл
func createTestEnv(t *testing.T, bundleURL string) *testEnv {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "agent_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(logger)

	apiMock := &httpClient.ClientAPIMock{
		PushOperationFunc: func(ctx context.Context, accessToken string, req api.PushOperationRequest) (*api.PushOperationResponse, error) {
			return &api.PushOperationResponse{Applied: true}, nil
		},
	}
	bridgeMock := &auth.BridgeMock{
		TokenFunc:           func(ctx context.Context) (string, error) { return "token", nil },
		IsAuthenticatedFunc: func(ctx context.Context) (bool, error) { return true, nil },
	}

	cacheManager := cache.NewManager(store, store, logger)
	coordinator := syncsvc.NewCoordinator(store, store, store, apiMock, bridgeMock,
		cacheManager, logger, bus.Publish)
	queueService := queue.NewService(store, logger)
	unpacker := bundle.NewUnpacker(bundleURL, store, store, logger, func(extracted, total int) {
		bus.Publish(&protocol.Event{
			Type:    protocol.EventBundleProgress,
			Payload: map[string]any{"extracted": extracted, "total": total},
		})
	})

	env := &testEnv{
		store: store,
		bus:   bus,
		agent: New(bus, coordinator, unpacker, cacheManager, queueService, logger),
		done:  make(chan error, 1),
	}

	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)
	env.events = events

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go func() {
		env.done <- env.agent.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-env.done
	})

	return env
}

// waitEvent ждет событие заданного типа, пропуская остальные
func (e *testEnv) waitEvent(t *testing.T, eventType protocol.EventType) *protocol.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-e.events:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
			return nil
		}
	}
}

func TestDispatch_RejectsMalformed(t *testing.T) {
	env := createTestEnv(t, "http://127.0.0.1:0")

	assert.Error(t, env.agent.Dispatch([]byte(`{broken`)))
	assert.Error(t, env.agent.Dispatch([]byte(`{"type": "UNKNOWN_CMD"}`)))
}

func TestForceSync_DrainsQueue(t *testing.T) {
	env := createTestEnv(t, "http://127.0.0.1:0")

	require.NoError(t, env.store.Enqueue(context.Background(), &models.Operation{
		Type:     models.OpMarkSolved,
		EntityID: "two-sum",
		Payload:  []byte(`{}`),
	}))

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "FORCE_SYNC"}`)))

	require.Eventually(t, func() bool {
		count, err := env.store.PendingCount(context.Background())
		return err == nil && count == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSyncOperations_EnqueuesAndDrains(t *testing.T) {
	env := createTestEnv(t, "http://127.0.0.1:0")

	cmd := []byte(`{
		"type": "SYNC_OPERATIONS",
		"operations": [
			{"type": "MARK_SOLVED", "entity_id": "two-sum", "timestamp": 1724900000000,
			 "payload": {"slug": "two-sum", "solved": true}}
		]
	}`)
	require.NoError(t, env.agent.Dispatch(cmd))

	require.Eventually(t, func() bool {
		count, err := env.store.PendingCount(context.Background())
		return err == nil && count == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGetSyncStatus_PublishesEvent(t *testing.T) {
	env := createTestEnv(t, "http://127.0.0.1:0")

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "GET_SYNC_STATUS"}`)))

	ev := env.waitEvent(t, protocol.EventSyncStatus)
	status, ok := ev.Payload.(*models.SyncStatus)
	require.True(t, ok)
	assert.Equal(t, models.SyncIdle, status.State)
}

func TestCheckOfflineReload(t *testing.T) {
	ctx := context.Background()
	env := createTestEnv(t, "http://127.0.0.1:0")

	require.NoError(t, env.store.PutEntry(ctx, storage.TierContent, "problems/two-sum.md", &storage.CacheEntry{
		Content:  []byte("cached"),
		StoredAt: time.Now(),
	}))

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "CHECK_OFFLINE_RELOAD", "key": "problems/two-sum.md"}`)))

	ev := env.waitEvent(t, protocol.EventOfflineReloadStatus)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["can_serve"])
}

func TestClearAllCaches(t *testing.T) {
	ctx := context.Background()
	env := createTestEnv(t, "http://127.0.0.1:0")

	require.NoError(t, env.store.PutEntry(ctx, storage.TierContent, "key", &storage.CacheEntry{
		Content:  []byte("data"),
		StoredAt: time.Now(),
	}))

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "CLEAR_ALL_CACHES"}`)))

	ev := env.waitEvent(t, protocol.EventOfflineCapability)
	capability, ok := ev.Payload.(*cache.Capability)
	require.True(t, ok)
	assert.Equal(t, 0, capability.TierCounts[string(storage.TierContent)])
}

func TestDownloadBundle_PublishesCompletion(t *testing.T) {
	contentDir := t.TempDir()
	require.NoError(t, writeFile(contentDir, "problems/two-sum.md", "# Two Sum"))

	outDir := t.TempDir()
	_, err := bundle.NewPackager(contentDir).Build(outDir)
	require.NoError(t, err)

	srv := httptest.NewServer(http.StripPrefix("/bundle/", http.FileServer(http.Dir(outDir))))
	defer srv.Close()

	env := createTestEnv(t, srv.URL)

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "DOWNLOAD_BUNDLE"}`)))

	env.waitEvent(t, protocol.EventBundleProgress)
	ev := env.waitEvent(t, protocol.EventBundleComplete)
	state, ok := ev.Payload.(*storage.BundleState)
	require.True(t, ok)
	assert.Equal(t, bundle.StatusComplete, state.Status)
	assert.Equal(t, 1, state.ExtractedFiles)
}

func TestGetBundleStatus(t *testing.T) {
	env := createTestEnv(t, "http://127.0.0.1:0")

	require.NoError(t, env.agent.Dispatch([]byte(`{"type": "GET_BUNDLE_STATUS"}`)))

	ev := env.waitEvent(t, protocol.EventBundleProgress)
	state, ok := ev.Payload.(*storage.BundleState)
	require.True(t, ok)
	assert.Equal(t, bundle.StatusIdle, state.Status)
}

func writeFile(dir, rel, content string) error {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(logger)

	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// Переполняем буфер: Publish не должен блокироваться
	for i := 0; i < subscriberBuffer*2; i++ {
		bus.Publish(&protocol.Event{Type: protocol.EventSyncStatus})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(logger)

	events, unsubscribe := bus.Subscribe()
	unsubscribe()

	// Канал закрыт, повторная отписка безопасна
	_, open := <-events
	assert.False(t, open)
	unsubscribe()
}
