package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *Cli) runSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing query. Usage: probtrack search <query> [--pattern NAME] [--solved|--unsolved]")
	}

	// Разбираем простые фильтры; все остальное - слова запроса
	var words []string
	var pattern string
	var solved *bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pattern":
			if i+1 >= len(args) {
				return fmt.Errorf("--pattern requires a value")
			}
			i++
			pattern = args[i]
		case "--solved":
			v := true
			solved = &v
		case "--unsolved":
			v := false
			solved = &v
		default:
			words = append(words, args[i])
		}
	}
	query := strings.Join(words, " ")

	problems, err := c.tracker.Search(ctx, query, pattern, solved)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(problems) == 0 {
		c.io.Println("No matching problems.")
		return nil
	}

	c.io.Printf("Found %d problem(s):\n", len(problems))
	c.io.Println()
	c.printProblems(problems)

	return nil
}
