package storage

import (
	"context"

	"github.com/iudanet/probtrack/internal/models"
)

// ProjectionStorage defines the optimistic local projection of the user
// document (problem-id -> state). Phase 1 of every mutation updates the
// projection synchronously; the queue reconciles it with the server later.
type ProjectionStorage interface {
	// SaveProblem stores or overwrites a problem state
	SaveProblem(ctx context.Context, p *models.Problem) error

	// GetProblem returns ErrProblemNotFound if the slug is unknown
	GetProblem(ctx context.Context, slug string) (*models.Problem, error)

	// DeleteProblem removes a problem from the projection
	DeleteProblem(ctx context.Context, slug string) error

	// ListProblems returns all problems sorted by slug
	ListProblems(ctx context.Context) ([]*models.Problem, error)

	// SaveSettings stores the local settings map
	SaveSettings(ctx context.Context, settings map[string]string) error

	// GetSettings returns an empty map if nothing is stored
	GetSettings(ctx context.Context) (map[string]string, error)
}
