package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/internal/client/storage/boltdb"
	"github.com/iudanet/probtrack/internal/models"
)

func createTestService(t *testing.T) *Service {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "queue_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger)
}

func TestAdd_ValidOperation(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	op, err := svc.Add(ctx, models.OpMarkSolved, "two-sum", &models.MarkSolvedPayload{
		Slug:   "two-sum",
		Solved: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, op.ID)
	assert.NotZero(t, op.Timestamp)
	assert.Equal(t, models.StatusPending, op.Status)

	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdd_InvalidPayloadRejected(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	// Недопустимый slug не должен попасть в очередь
	_, err := svc.Add(ctx, models.OpMarkSolved, "Bad Slug!", &models.MarkSolvedPayload{
		Slug:   "Bad Slug!",
		Solved: true,
	})
	require.Error(t, err)

	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAdd_DifficultyOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	_, err := svc.Add(ctx, models.OpUpdateDifficulty, "two-sum", &models.UpdateDifficultyPayload{
		Slug:       "two-sum",
		Difficulty: 9,
	})
	assert.Error(t, err)
}

func TestAdd_NilPayload(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	_, err := svc.Add(ctx, models.OpMarkSolved, "two-sum", nil)
	assert.ErrorIs(t, err, models.ErrEmptyPayload)
}

func TestAddRaw_AssignsMissingFields(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	raw, err := json.Marshal(&models.AddNotePayload{Slug: "two-sum", Note: "use a map"})
	require.NoError(t, err)

	op := &models.Operation{
		Type:     models.OpAddNote,
		EntityID: "two-sum",
		Payload:  raw,
	}
	require.NoError(t, svc.AddRaw(ctx, op))

	assert.NotEmpty(t, op.ID)
	assert.NotZero(t, op.Timestamp)
	assert.False(t, op.CreatedAt.IsZero())
	assert.Equal(t, models.StatusPending, op.Status)
}

func TestAddRaw_UnknownTypeRejected(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	err := svc.AddRaw(ctx, &models.Operation{
		Type:    models.OpType("DROP_TABLES"),
		Payload: json.RawMessage(`{}`),
	})
	assert.Error(t, err)
}

func TestAddRaw_MalformedPayloadRejected(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	err := svc.AddRaw(ctx, &models.Operation{
		Type:    models.OpAddNote,
		Payload: json.RawMessage(`{"slug": "two-sum"}`), // нет текста заметки
	})
	assert.Error(t, err)

	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecover_ResetsInFlight(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	_, err := svc.Add(ctx, models.OpDeleteProblem, "two-sum", &models.DeleteProblemPayload{Slug: "two-sum"})
	require.NoError(t, err)

	// Имитация прерванного drain pass: операция взята, но не завершена
	batch, err := svc.storage.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// После восстановления операция снова доступна
	require.NoError(t, svc.Recover(ctx))

	batch, err = svc.storage.PeekBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}
