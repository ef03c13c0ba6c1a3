package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/probtrack/internal/models"
)

func (c *Cli) runList(ctx context.Context) error {
	c.io.Println("=== Tracked Problems ===")
	c.io.Println()

	problems, err := c.tracker.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list problems: %w", err)
	}

	if len(problems) == 0 {
		c.io.Println("No problems tracked yet.")
		c.io.Println()
		c.io.Println("Use 'probtrack solve <slug>' to start tracking.")
		return nil
	}

	c.io.Printf("Found %d problem(s):\n", len(problems))
	c.io.Println()
	c.printProblems(problems)

	return nil
}

func (c *Cli) printProblems(problems []*models.Problem) {
	for i, p := range problems {
		mark := " "
		if p.Solved {
			mark = "✓"
		}
		title := p.Title
		if title == "" {
			title = p.Slug
		}
		c.io.Printf("%d. [%s] %s\n", i+1, mark, title)
		c.io.Printf("   Slug:    %s\n", p.Slug)
		if p.Pattern != "" {
			c.io.Printf("   Pattern: %s\n", p.Pattern)
		}
		if p.Difficulty > 0 {
			c.io.Printf("   Difficulty: %d/5\n", p.Difficulty)
		}
		if !p.ReviewAt.IsZero() {
			c.io.Printf("   Review:  %s\n", p.ReviewAt.Format("2006-01-02"))
		}
		if p.Custom {
			c.io.Println("   Custom problem")
		}
		c.io.Println()
	}
}
