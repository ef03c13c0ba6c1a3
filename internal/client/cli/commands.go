package cli

import (
	"context"
	"fmt"
	"os"
)

func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error
	switch command {
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "sync":
		err = c.runSync(ctx)
	case "list":
		err = c.runList(ctx)
	case "search":
		err = c.runSearch(ctx, args)
	case "get":
		err = c.runGet(ctx, args)
	case "solve":
		err = c.runSolve(ctx, args, true)
	case "unsolve":
		err = c.runSolve(ctx, args, false)
	case "review":
		err = c.runReview(ctx, args)
	case "difficulty":
		err = c.runDifficulty(ctx, args)
	case "note":
		err = c.runNote(ctx, args)
	case "add":
		err = c.runAdd(ctx, args)
	case "delete":
		err = c.runDelete(ctx, args)
	case "settings":
		err = c.runSettings(ctx, args)
	case "bundle":
		err = c.runBundle(ctx, args)
	case "cache":
		err = c.runCache(ctx, args)
	case "deadletter":
		err = c.runDeadLetter(ctx, args)
	case "agent":
		err = c.runAgent(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
