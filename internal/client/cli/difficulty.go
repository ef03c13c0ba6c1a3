package cli

import (
	"context"
	"fmt"
	"strconv"
)

func (c *Cli) runDifficulty(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments. Usage: probtrack difficulty <slug> <1-5>")
	}
	slug := args[0]

	difficulty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid difficulty %q, expected a number 1-5", args[1])
	}

	if err := c.runWrite("difficulty:"+slug, func() error {
		return c.tracker.UpdateDifficulty(ctx, slug, difficulty)
	}); err != nil {
		return err
	}

	c.io.Printf("✓ %s difficulty set to %d/5\n", slug, difficulty)

	return nil
}
