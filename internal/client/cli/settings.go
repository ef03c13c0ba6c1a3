package cli

import (
	"context"
	"fmt"
	"sort"
)

func (c *Cli) runSettings(ctx context.Context, args []string) error {
	// Без аргументов - показываем текущие настройки
	if len(args) == 0 {
		settings, err := c.tracker.Settings(ctx)
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}

		c.io.Println("=== Settings ===")
		c.io.Println()
		if len(settings) == 0 {
			c.io.Println("No settings stored.")
			c.io.Println()
			c.io.Println("Use 'probtrack settings <key> <value>' to set one.")
			return nil
		}

		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c.io.Printf("%s = %s\n", k, settings[k])
		}
		return nil
	}

	if len(args)%2 != 0 {
		return fmt.Errorf("settings take key value pairs. Usage: probtrack settings <key> <value> [key value ...]")
	}

	updates := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		updates[args[i]] = args[i+1]
	}

	if err := c.runWrite("settings", func() error {
		return c.tracker.UpdateSettings(ctx, updates)
	}); err != nil {
		return err
	}

	c.io.Printf("✓ %d setting(s) updated\n", len(updates))

	return nil
}
