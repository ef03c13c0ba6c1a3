package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/probtrack/internal/client/storage"
)

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing slug. Usage: probtrack get <slug>")
	}
	slug := args[0]

	problem, err := c.tracker.Get(ctx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrProblemNotFound) {
			return fmt.Errorf("problem %q is not tracked", slug)
		}
		return fmt.Errorf("failed to get problem: %w", err)
	}

	c.io.Printf("=== %s ===\n", problem.Slug)
	c.io.Println()
	if problem.Title != "" {
		c.io.Printf("Title:      %s\n", problem.Title)
	}
	if problem.Pattern != "" {
		c.io.Printf("Pattern:    %s\n", problem.Pattern)
	}
	if problem.Solved {
		c.io.Printf("Solved:     yes (%s)\n", problem.SolvedAt.Format(time.RFC3339))
	} else {
		c.io.Println("Solved:     no")
	}
	if problem.Difficulty > 0 {
		c.io.Printf("Difficulty: %d/5\n", problem.Difficulty)
	}
	if !problem.ReviewAt.IsZero() {
		c.io.Printf("Review at:  %s\n", problem.ReviewAt.Format("2006-01-02"))
	}
	if problem.Custom {
		c.io.Println("Origin:     custom (added by you)")
	}
	if problem.Notes != "" {
		c.io.Println()
		c.io.Println("Notes:")
		c.io.Println(problem.Notes)
	}
	c.io.Println()
	c.io.Printf("Updated: %s\n", problem.UpdatedAt.Format(time.RFC3339))

	return nil
}
