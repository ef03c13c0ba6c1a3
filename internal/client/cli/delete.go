package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/probtrack/internal/client/storage"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing slug. Usage: probtrack delete <slug>")
	}
	slug := args[0]

	// Подтверждение: удаление уходит на сервер и необратимо
	answer, err := c.io.ReadInput(fmt.Sprintf("Delete %s? This cannot be undone [y/N]: ", slug))
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		c.io.Println("Cancelled.")
		return nil
	}

	if err := c.runWrite("delete:"+slug, func() error {
		return c.tracker.DeleteProblem(ctx, slug)
	}); err != nil {
		if errors.Is(err, storage.ErrProblemNotFound) {
			return fmt.Errorf("problem %q is not tracked", slug)
		}
		return err
	}

	c.io.Printf("✓ %s deleted\n", slug)

	return nil
}
