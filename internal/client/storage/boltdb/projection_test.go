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

func TestProjection_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	p := &models.Problem{
		Slug:      "two-sum",
		Title:     "Two Sum",
		Pattern:   "hash-map",
		Solved:    true,
		SolvedAt:  time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.SaveProblem(ctx, p))

	got, err := store.GetProblem(ctx, "two-sum")
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", got.Title)
	assert.True(t, got.Solved)

	require.NoError(t, store.DeleteProblem(ctx, "two-sum"))

	_, err = store.GetProblem(ctx, "two-sum")
	assert.ErrorIs(t, err, storage.ErrProblemNotFound)
}

func TestProjection_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.DeleteProblem(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrProblemNotFound)
}

func TestProjection_ListSortedBySlug(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, slug := range []string{"valid-anagram", "two-sum", "three-sum"} {
		require.NoError(t, store.SaveProblem(ctx, &models.Problem{Slug: slug, UpdatedAt: time.Now()}))
	}

	problems, err := store.ListProblems(ctx)
	require.NoError(t, err)
	require.Len(t, problems, 3)
	assert.Equal(t, "three-sum", problems[0].Slug)
	assert.Equal(t, "two-sum", problems[1].Slug)
	assert.Equal(t, "valid-anagram", problems[2].Slug)
}

func TestSettings_EmptyByDefault(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	settings, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestSettings_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.SaveSettings(ctx, map[string]string{
		"theme":           "dark",
		"review_interval": "7d",
	}))

	settings, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", settings["theme"])
	assert.Equal(t, "7d", settings["review_interval"])
}
