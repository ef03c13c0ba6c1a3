package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/probtrack/internal/bundle"
)

func (c *Cli) runBundle(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand. Usage: probtrack bundle <download|status>")
	}

	switch args[0] {
	case "download":
		return c.runBundleDownload(ctx)
	case "status":
		return c.runBundleStatus(ctx)
	default:
		return fmt.Errorf("unknown subcommand: %s. Use: download or status", args[0])
	}
}

func (c *Cli) runBundleDownload(ctx context.Context) error {
	c.io.Println("=== Bundle Download ===")
	c.io.Println()
	c.io.Println("Downloading offline content bundle...")

	state, err := c.unpacker.Download(ctx)
	if err != nil {
		return fmt.Errorf("bundle download failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Bundle ready!")
	c.io.Printf("Version:   %d\n", state.Version)
	c.io.Printf("Files:     %d\n", state.ExtractedFiles)
	c.io.Println()
	c.io.Println("Full offline mode is now available.")

	return nil
}

func (c *Cli) runBundleStatus(ctx context.Context) error {
	state, err := c.unpacker.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bundle status: %w", err)
	}

	c.io.Println("=== Bundle Status ===")
	c.io.Println()
	c.io.Printf("Status: %s\n", state.Status)

	switch state.Status {
	case bundle.StatusComplete:
		c.io.Printf("Version: %d\n", state.Version)
		c.io.Printf("Files: %d\n", state.TotalFiles)
		c.io.Printf("Downloaded: %s\n", state.DownloadedAt.Format(time.RFC3339))
	case bundle.StatusDownloading, bundle.StatusExtracting:
		c.io.Printf("Progress: %d/%d files\n", state.ExtractedFiles, state.TotalFiles)
	case bundle.StatusError:
		c.io.Printf("Last error: %s\n", state.LastError)
		c.io.Println("Run 'probtrack bundle download' to retry.")
	default:
		c.io.Println("No bundle downloaded yet.")
		c.io.Println("Run 'probtrack bundle download' to fetch one.")
	}

	return nil
}
