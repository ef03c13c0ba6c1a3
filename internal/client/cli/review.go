package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runReview(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments. Usage: probtrack review <slug> <YYYY-MM-DD>")
	}
	slug := args[0]

	reviewAt, err := time.Parse("2006-01-02", args[1])
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[1])
	}

	if err := c.runWrite("review:"+slug, func() error {
		return c.tracker.UpdateReviewDate(ctx, slug, reviewAt)
	}); err != nil {
		return err
	}

	c.io.Printf("✓ %s scheduled for review on %s\n", slug, reviewAt.Format("2006-01-02"))

	return nil
}
