package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/probtrack/internal/client/storage"
)

func (c *Cli) runDeadLetter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand. Usage: probtrack deadletter <list|retry <id>|discard <id>>")
	}

	switch args[0] {
	case "list":
		return c.runDeadLetterList(ctx)
	case "retry":
		if len(args) < 2 {
			return fmt.Errorf("missing operation id. Usage: probtrack deadletter retry <id>")
		}
		return c.runDeadLetterRetry(ctx, args[1])
	case "discard":
		if len(args) < 2 {
			return fmt.Errorf("missing operation id. Usage: probtrack deadletter discard <id>")
		}
		return c.runDeadLetterDiscard(ctx, args[1])
	default:
		return fmt.Errorf("unknown subcommand: %s. Use: list, retry, or discard", args[0])
	}
}

func (c *Cli) runDeadLetterList(ctx context.Context) error {
	ops, err := c.queue.DeadLetters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dead-letter operations: %w", err)
	}

	c.io.Println("=== Dead-Letter Operations ===")
	c.io.Println()

	if len(ops) == 0 {
		c.io.Println("No dead-letter operations. All queued changes are syncing normally.")
		return nil
	}

	c.io.Printf("Found %d operation(s) that need attention:\n", len(ops))
	c.io.Println()
	for i, op := range ops {
		c.io.Printf("%d. %s %s\n", i+1, op.Type, op.EntityID)
		c.io.Printf("   ID:      %s\n", op.ID)
		c.io.Printf("   Reason:  %s\n", op.DeadReason)
		if op.LastError != "" {
			c.io.Printf("   Error:   %s\n", op.LastError)
		}
		c.io.Printf("   Queued:  %s\n", op.CreatedAt.Format(time.RFC3339))
		c.io.Println()
	}

	c.io.Println("Use 'probtrack deadletter retry <id>' to queue one again,")
	c.io.Println("or 'probtrack deadletter discard <id>' to drop it permanently.")

	return nil
}

func (c *Cli) runDeadLetterRetry(ctx context.Context, operationID string) error {
	if err := c.queue.RequeueDeadLetter(ctx, operationID); err != nil {
		if errors.Is(err, storage.ErrOperationNotFound) {
			return fmt.Errorf("no dead-letter operation with id %q", operationID)
		}
		return fmt.Errorf("failed to requeue operation: %w", err)
	}

	c.io.Printf("✓ Operation %s queued again. Run 'probtrack sync' to push it.\n", operationID)

	return nil
}

func (c *Cli) runDeadLetterDiscard(ctx context.Context, operationID string) error {
	if err := c.queue.DiscardDeadLetter(ctx, operationID); err != nil {
		if errors.Is(err, storage.ErrOperationNotFound) {
			return fmt.Errorf("no dead-letter operation with id %q", operationID)
		}
		return fmt.Errorf("failed to discard operation: %w", err)
	}

	c.io.Printf("✓ Operation %s discarded.\n", operationID)

	return nil
}
