package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iudanet/probtrack/internal/bundle"
	"github.com/iudanet/probtrack/internal/client/agent"
	"github.com/iudanet/probtrack/internal/client/api"
	"github.com/iudanet/probtrack/internal/client/auth"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/cli"
	"github.com/iudanet/probtrack/internal/client/iocli"
	"github.com/iudanet/probtrack/internal/client/queue"
	"github.com/iudanet/probtrack/internal/client/scheduler"
	"github.com/iudanet/probtrack/internal/client/storage/boltdb"
	syncsvc "github.com/iudanet/probtrack/internal/client/sync"
	"github.com/iudanet/probtrack/internal/client/tracker"
	"github.com/iudanet/probtrack/internal/protocol"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("PROBTRACK_SERVER", "http://localhost:8080"), "Sync server URL")
	dbPath := flag.String("db", envOr("PROBTRACK_DB", "probtrack.db"), "Path to local database")
	logPath := flag.String("log", "", "Agent log file (default: stderr)")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	// Агент живет до SIGINT/SIGTERM, остальные команды разовые
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(command, *logPath)

	// Открываем BoltDB storage: единственный durable store клиента
	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Собираем сервисы клиента
	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, store, logger)
	queueService := queue.NewService(store, logger)
	cacheManager := cache.NewManager(store, store, logger)

	bus := agent.NewBus(logger)
	unpacker := bundle.NewUnpacker(*serverURL, store, store, logger,
		func(extracted, total int) {
			bus.Publish(&protocol.Event{
				Type:    protocol.EventBundleProgress,
				Payload: map[string]any{"extracted": extracted, "total": total},
			})
		})
	coordinator := syncsvc.NewCoordinator(store, store, store, apiClient, authService,
		cacheManager, logger, bus.Publish)
	trackerService := tracker.NewService(store, queueService, logger, coordinator.TriggerSync)

	sched := scheduler.New(logger, 0)
	defer sched.Close()

	agentService := agent.New(bus, coordinator, unpacker, cacheManager, queueService, logger)

	c := cli.New(iocli.NewStdio(), authService, trackerService, queueService,
		coordinator, cacheManager, unpacker, sched, bus, agentService)

	c.Run(ctx, command, args[1:])
}

// newLogger настраивает slog. Для фонового агента лог пишется в файл
// с ротацией, чтобы долгоживущий процесс не рос бесконечно.
func newLogger(command, logPath string) *slog.Logger {
	var out io.Writer = os.Stderr
	if command == "agent" && logPath != "" {
		out = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // мегабайт
			MaxBackups: 3,
			MaxAge:     28, // дней
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("ProbTrack Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
