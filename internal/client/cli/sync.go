package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/probtrack/internal/models"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	pending, err := c.queue.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending count: %w", err)
	}
	if pending == 0 {
		c.io.Println("✓ Nothing to sync. The operation queue is empty.")
		return nil
	}

	c.io.Printf("Pushing %d pending operation(s)...\n", pending)
	c.io.Println()

	status, err := c.coordinator.SyncOnce(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	switch status.State {
	case models.SyncAuthRequired:
		return fmt.Errorf("authentication required. Please run 'probtrack login' first")
	case models.SyncError:
		return fmt.Errorf("synchronization failed: %s", status.LastError)
	}

	pushed := pending - status.PendingCount
	c.io.Println("✓ Synchronization completed!")
	c.io.Printf("Pushed:    %d operation(s)\n", pushed)
	if status.PendingCount > 0 {
		c.io.Printf("Remaining: %d operation(s) (transient failures, will retry)\n", status.PendingCount)
	}
	if status.DeadLetterCount > 0 {
		c.io.Printf("⚠️  Dead-letter: %d operation(s) need manual attention\n", status.DeadLetterCount)
	}

	return nil
}
