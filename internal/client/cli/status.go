package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Sync Status ===")
	c.io.Println()

	// Проверяем наличие сохраненной сессии
	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if isAuth {
		auth, err := c.authService.Current(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth data: %w", err)
		}
		c.io.Println("Auth: Signed in")
		c.io.Printf("Username: %s\n", auth.Username)
		c.io.Printf("Token expires: %s\n", auth.TokenExpiresAt.Format(time.RFC3339))
	} else {
		c.io.Println("Auth: Not signed in")
		c.io.Println("Run 'probtrack login' to authenticate.")
	}

	status, err := c.coordinator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync status: %w", err)
	}

	c.io.Println()
	c.io.Printf("State: %s\n", status.State)
	if status.LastError != "" {
		c.io.Printf("Last error: %s\n", status.LastError)
	}
	if status.LastSyncAt.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", status.LastSyncAt.Format(time.RFC3339))
	}
	c.io.Printf("Pending operations: %d\n", status.PendingCount)
	if status.DeadLetterCount > 0 {
		c.io.Printf("⚠️  Dead-letter operations: %d (run 'probtrack deadletter list')\n", status.DeadLetterCount)
	}

	// Offline capability
	report, err := c.cache.Capability(ctx)
	if err != nil {
		return fmt.Errorf("failed to get offline capability: %w", err)
	}

	c.io.Println()
	if report.HasBundle {
		c.io.Printf("Offline bundle: version %d, downloaded %s\n",
			report.BundleVersion, report.BundleDownloadedAt.Format(time.RFC3339))
	} else {
		c.io.Println("Offline bundle: not downloaded")
		c.io.Println("Run 'probtrack bundle download' to enable full offline mode.")
	}

	return nil
}
