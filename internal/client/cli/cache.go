package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

func (c *Cli) runCache(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand. Usage: probtrack cache <status|clear>")
	}

	switch args[0] {
	case "status":
		return c.runCacheStatus(ctx)
	case "clear":
		return c.runCacheClear(ctx)
	default:
		return fmt.Errorf("unknown subcommand: %s. Use: status or clear", args[0])
	}
}

func (c *Cli) runCacheStatus(ctx context.Context) error {
	report, err := c.cache.Capability(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cache status: %w", err)
	}

	c.io.Println("=== Cache Status ===")
	c.io.Println()

	tiers := make([]string, 0, len(report.TierCounts))
	for tier := range report.TierCounts {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		c.io.Printf("%-16s %d entries\n", tier, report.TierCounts[tier])
	}

	c.io.Println()
	if report.HasBundle {
		c.io.Printf("Bundle: version %d, downloaded %s\n",
			report.BundleVersion, report.BundleDownloadedAt.Format(time.RFC3339))
	} else {
		c.io.Println("Bundle: not downloaded")
	}

	return nil
}

func (c *Cli) runCacheClear(ctx context.Context) error {
	// Подтверждение: после очистки offline режим недоступен до
	// повторной загрузки bundle
	answer, err := c.io.ReadInput("Clear all cache tiers? Offline mode will be unavailable until re-download [y/N]: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		c.io.Println("Cancelled.")
		return nil
	}

	if err := c.cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear caches: %w", err)
	}

	c.io.Println("✓ All cache tiers cleared.")

	return nil
}
