package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *Cli) runNote(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments. Usage: probtrack note <slug> <text>")
	}
	slug := args[0]
	note := strings.Join(args[1:], " ")

	if err := c.runWrite("note:"+slug, func() error {
		return c.tracker.AddNote(ctx, slug, note)
	}); err != nil {
		return err
	}

	c.io.Printf("✓ Note attached to %s\n", slug)

	return nil
}
