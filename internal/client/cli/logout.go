package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")
	c.io.Println()

	// Очередь и кеш не трогаем: операции доживут до следующего login
	if err := c.authService.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear auth data: %w", err)
	}

	c.io.Println("✓ Signed out. Stored tokens removed.")

	pending, err := c.queue.PendingCount(ctx)
	if err == nil && pending > 0 {
		c.io.Println()
		c.io.Printf("Note: %d pending operation(s) remain queued and will sync after the next login.\n", pending)
	}

	return nil
}
