package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/internal/bundle"
	"github.com/iudanet/probtrack/internal/client/agent"
	httpClient "github.com/iudanet/probtrack/internal/client/api"
	"github.com/iudanet/probtrack/internal/client/auth"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/iocli"
	"github.com/iudanet/probtrack/internal/client/queue"
	"github.com/iudanet/probtrack/internal/client/scheduler"
	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/client/storage/boltdb"
	"github.com/iudanet/probtrack/internal/client/sync"
	"github.com/iudanet/probtrack/internal/client/tracker"
	"github.com/iudanet/probtrack/pkg/api"
)

type cliEnv struct {
	cli    *Cli
	io     *iocli.IOMock
	store  *boltdb.Storage
	bridge *auth.BridgeMock
	out    []string
}

func (e *cliEnv) output() string {
	return strings.Join(e.out, "")
}

// createTestCli собирает CLI поверх реального bolt хранилища
// с моками API, token bridge и терминального ввода-вывода
func createTestCli(t *testing.T) *cliEnv {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "cli_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &cliEnv{store: store}
	env.io = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			env.out = append(env.out, fmt.Sprintln(a...))
		},
		PrintfFunc: func(format string, a ...any) {
			env.out = append(env.out, fmt.Sprintf(format, a...))
		},
		ReadInputFunc: func(prompt string) (string, error) {
			return "", nil
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			return "password", nil
		},
	}
	env.bridge = &auth.BridgeMock{
		TokenFunc: func(ctx context.Context) (string, error) {
			return "test-token", nil
		},
		IsAuthenticatedFunc: func(ctx context.Context) (bool, error) {
			return true, nil
		},
		CurrentFunc: func(ctx context.Context) (*storage.AuthData, error) {
			return &storage.AuthData{
				Username:       "gopher",
				Token:          "test-token",
				TokenExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	apiMock := &httpClient.ClientAPIMock{
		PushOperationFunc: func(ctx context.Context, accessToken string, req api.PushOperationRequest) (*api.PushOperationResponse, error) {
			return &api.PushOperationResponse{Applied: true}, nil
		},
	}

	queueService := queue.NewService(store, logger)
	trackerService := tracker.NewService(store, queueService, logger, nil)
	cacheManager := cache.NewManager(store, store, logger)
	coordinator := sync.NewCoordinator(store, store, store, apiMock, env.bridge, cacheManager, logger, nil)
	unpacker := bundle.NewUnpacker("http://127.0.0.1:1", store, store, logger, nil)
	sched := scheduler.New(logger, time.Hour)
	t.Cleanup(sched.Close)
	bus := agent.NewBus(logger)
	agentService := agent.New(bus, coordinator, unpacker, cacheManager, queueService, logger)

	env.cli = New(env.io, env.bridge, trackerService, queueService, coordinator,
		cacheManager, unpacker, sched, bus, agentService)

	return env
}

func TestCli_runList_Empty(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runList(context.Background())
	require.NoError(t, err)

	assert.Contains(t, env.output(), "No problems tracked yet")
}

func TestCli_runSolve_MarksProblemAndQueues(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	err := env.cli.runSolve(ctx, []string{"two-sum"}, true)
	require.NoError(t, err)

	// Проекция обновлена оптимистично
	problem, err := env.cli.tracker.Get(ctx, "two-sum")
	require.NoError(t, err)
	assert.True(t, problem.Solved)

	// Операция стоит в очереди
	pending, err := env.cli.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	assert.Contains(t, env.output(), "marked as solved")
}

func TestCli_runSolve_MissingSlug(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runSolve(context.Background(), nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing slug")
}

func TestCli_runSolve_InvalidSlugLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	err := env.cli.runSolve(ctx, []string{"Bad Slug!"}, true)
	require.Error(t, err)

	pending, err := env.cli.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCli_runGet_NotTracked(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runGet(context.Background(), []string{"missing-problem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not tracked")
}

func TestCli_runGet_PrintsDetails(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.tracker.AddCustomProblem(ctx, "my-problem", "My Problem", "graphs", 3))
	require.NoError(t, env.cli.tracker.AddNote(ctx, "my-problem", "BFS from every node"))

	err := env.cli.runGet(ctx, []string{"my-problem"})
	require.NoError(t, err)

	out := env.output()
	assert.Contains(t, out, "My Problem")
	assert.Contains(t, out, "graphs")
	assert.Contains(t, out, "3/5")
	assert.Contains(t, out, "BFS from every node")
	assert.Contains(t, out, "custom")
}

func TestCli_runReview_InvalidDate(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runReview(context.Background(), []string{"two-sum", "next tuesday"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestCli_runSettings_UpdateAndShow(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	err := env.cli.runSettings(ctx, []string{"theme", "dark", "language", "go"})
	require.NoError(t, err)
	assert.Contains(t, env.output(), "2 setting(s) updated")

	env.out = nil
	err = env.cli.runSettings(ctx, nil)
	require.NoError(t, err)

	out := env.output()
	assert.Contains(t, out, "theme = dark")
	assert.Contains(t, out, "language = go")
}

func TestCli_runSettings_OddArgs(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runSettings(context.Background(), []string{"theme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key value pairs")
}

func TestCli_runDelete_Declined(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.tracker.AddCustomProblem(ctx, "keep-me", "Keep Me", "", 0))

	// Отказ от подтверждения оставляет задачу на месте
	env.io.ReadInputFunc = func(prompt string) (string, error) {
		return "n", nil
	}

	err := env.cli.runDelete(ctx, []string{"keep-me"})
	require.NoError(t, err)
	assert.Contains(t, env.output(), "Cancelled")

	_, err = env.cli.tracker.Get(ctx, "keep-me")
	require.NoError(t, err)
}

func TestCli_runDelete_Confirmed(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.tracker.AddCustomProblem(ctx, "drop-me", "Drop Me", "", 0))

	env.io.ReadInputFunc = func(prompt string) (string, error) {
		return "y", nil
	}

	err := env.cli.runDelete(ctx, []string{"drop-me"})
	require.NoError(t, err)

	_, err = env.cli.tracker.Get(ctx, "drop-me")
	assert.ErrorIs(t, err, storage.ErrProblemNotFound)
}

func TestCli_runStatus_NotSignedIn(t *testing.T) {
	env := createTestCli(t)
	env.bridge.IsAuthenticatedFunc = func(ctx context.Context) (bool, error) {
		return false, nil
	}

	err := env.cli.runStatus(context.Background())
	require.NoError(t, err)

	out := env.output()
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Last sync: never")
	assert.Contains(t, out, "bundle: not downloaded")
}

func TestCli_runSync_EmptyQueue(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runSync(context.Background())
	require.NoError(t, err)
	assert.Contains(t, env.output(), "Nothing to sync")
}

func TestCli_runSync_PushesQueuedOperations(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.tracker.MarkSolved(ctx, "two-sum", true))

	err := env.cli.runSync(ctx)
	require.NoError(t, err)

	pending, err := env.cli.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Contains(t, env.output(), "Synchronization completed")
}

func TestCli_runDeadLetter_ListEmpty(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runDeadLetter(context.Background(), []string{"list"})
	require.NoError(t, err)
	assert.Contains(t, env.output(), "No dead-letter operations")
}

func TestCli_runDeadLetter_RetryUnknownID(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runDeadLetter(context.Background(), []string{"retry", "no-such-id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dead-letter operation")
}

func TestCli_runCache_ClearConfirmed(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.cache.Put(ctx, storage.TierContent, "problems/two-sum.md", []byte("content")))

	env.io.ReadInputFunc = func(prompt string) (string, error) {
		return "y", nil
	}

	err := env.cli.runCache(ctx, []string{"clear"})
	require.NoError(t, err)

	has, err := env.cli.cache.Has(ctx, storage.TierContent, "problems/two-sum.md")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCli_runCache_UnknownSubcommand(t *testing.T) {
	env := createTestCli(t)

	err := env.cli.runCache(context.Background(), []string{"flush"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subcommand")
}

func TestCli_runSearch_FiltersBySolved(t *testing.T) {
	ctx := context.Background()
	env := createTestCli(t)

	require.NoError(t, env.cli.tracker.AddCustomProblem(ctx, "solved-one", "Solved One", "arrays", 0))
	require.NoError(t, env.cli.tracker.MarkSolved(ctx, "solved-one", true))
	require.NoError(t, env.cli.tracker.AddCustomProblem(ctx, "open-one", "Open One", "arrays", 0))

	err := env.cli.runSearch(ctx, []string{"one", "--solved"})
	require.NoError(t, err)

	out := env.output()
	assert.Contains(t, out, "solved-one")
	assert.NotContains(t, out, "open-one")
}
