package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSolve(ctx context.Context, args []string, solved bool) error {
	if len(args) == 0 {
		return fmt.Errorf("missing slug. Usage: probtrack solve <slug>")
	}
	slug := args[0]

	// Мутация через планировщик, как и из интерактивного UI
	if err := c.runWrite("solve:"+slug, func() error {
		return c.tracker.MarkSolved(ctx, slug, solved)
	}); err != nil {
		return err
	}

	if solved {
		c.io.Printf("✓ %s marked as solved\n", slug)
	} else {
		c.io.Printf("✓ %s is no longer marked as solved\n", slug)
	}
	c.io.Println("The change is saved locally and queued for sync.")

	return nil
}
