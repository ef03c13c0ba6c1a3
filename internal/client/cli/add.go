package cli

import (
	"context"
	"fmt"
	"strconv"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments. Usage: probtrack add <slug> <title> [pattern] [difficulty]")
	}
	slug := args[0]
	title := args[1]

	var pattern string
	if len(args) > 2 {
		pattern = args[2]
	}

	var difficulty int
	if len(args) > 3 {
		d, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid difficulty %q, expected a number 1-5", args[3])
		}
		difficulty = d
	}

	if err := c.runWrite("add:"+slug, func() error {
		return c.tracker.AddCustomProblem(ctx, slug, title, pattern, difficulty)
	}); err != nil {
		return err
	}

	c.io.Printf("✓ Custom problem %s added\n", slug)

	return nil
}
