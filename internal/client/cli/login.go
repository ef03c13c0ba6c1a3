package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	// Запрашиваем username
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	// Запрашиваем пароль без отображения на экране
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	auth, err := c.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", auth.Username)
	c.io.Printf("Token expires: %s\n", auth.TokenExpiresAt.Format(time.RFC3339))

	// Сразу запускаем sync: очередь могла накопиться за время offline
	pending, err := c.queue.PendingCount(ctx)
	if err == nil && pending > 0 {
		c.io.Println()
		c.io.Printf("%d pending operation(s) in the queue. Run 'probtrack sync' to push them.\n", pending)
	}

	return nil
}
