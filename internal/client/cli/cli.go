package cli

import (
	"fmt"

	"github.com/iudanet/probtrack/internal/bundle"
	"github.com/iudanet/probtrack/internal/client/agent"
	"github.com/iudanet/probtrack/internal/client/auth"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/iocli"
	"github.com/iudanet/probtrack/internal/client/queue"
	"github.com/iudanet/probtrack/internal/client/scheduler"
	"github.com/iudanet/probtrack/internal/client/sync"
	"github.com/iudanet/probtrack/internal/client/tracker"
)

type Cli struct {
	io          iocli.IO
	authService auth.Bridge
	tracker     *tracker.Service
	queue       *queue.Service
	coordinator *sync.Coordinator
	cache       *cache.Manager
	unpacker    *bundle.Unpacker
	scheduler   *scheduler.Scheduler
	bus         *agent.Bus
	agent       *agent.Agent
}

func New(
	io iocli.IO,
	authService auth.Bridge,
	trackerService *tracker.Service,
	queueService *queue.Service,
	coordinator *sync.Coordinator,
	cacheManager *cache.Manager,
	unpacker *bundle.Unpacker,
	sched *scheduler.Scheduler,
	bus *agent.Bus,
	agentService *agent.Agent,
) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		tracker:     trackerService,
		queue:       queueService,
		coordinator: coordinator,
		cache:       cacheManager,
		unpacker:    unpacker,
		scheduler:   sched,
		bus:         bus,
		agent:       agentService,
	}
}

// runWrite проводит мутацию через планировщик: запись планируется
// и немедленно сбрасывается. Запланированные до нее чтения выполняются
// первыми, как и в интерактивном режиме. Канал done нужен на случай,
// когда задачу успевает забрать фоновый frame-сброс.
func (c *Cli) runWrite(id string, fn func() error) error {
	var err error
	done := make(chan struct{})
	c.scheduler.Schedule(id, func() {
		defer close(done)
		err = fn()
	}, false)
	c.scheduler.FlushNow()
	<-done
	return err
}

func PrintUsage() {
	fmt.Println("ProbTrack Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  probtrack [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --server URL   Sync server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH      Path to local database (default: probtrack.db)")
	fmt.Println("  --log PATH     Agent log file (default: stderr, agent command only)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                           Sign in to the sync server")
	fmt.Println("  logout                          Sign out and clear stored tokens")
	fmt.Println("  status                          Show sync status and offline capability")
	fmt.Println("  sync                            Run one sync pass now")
	fmt.Println("  list                            List tracked problems")
	fmt.Println("  search <query>                  Search problems by slug or title")
	fmt.Println("  get <slug>                      Show full problem details")
	fmt.Println("  solve <slug>                    Mark a problem as solved")
	fmt.Println("  unsolve <slug>                  Clear the solved mark")
	fmt.Println("  review <slug> <YYYY-MM-DD>      Set the next review date")
	fmt.Println("  difficulty <slug> <1-5>         Set perceived difficulty")
	fmt.Println("  note <slug> <text>              Attach a note to a problem")
	fmt.Println("  add <slug> <title> [pattern]    Add a custom problem")
	fmt.Println("  delete <slug>                   Delete a problem")
	fmt.Println("  settings [key value ...]        Show or update settings")
	fmt.Println("  bundle <download|status>        Manage the offline content bundle")
	fmt.Println("  cache <status|clear>            Inspect or clear cache tiers")
	fmt.Println("  deadletter <list|retry|discard> Manage operations that exhausted retries")
	fmt.Println("  agent                           Run the background sync agent in the foreground")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  probtrack login")
	fmt.Println("  probtrack solve two-sum")
	fmt.Println("  probtrack review two-sum 2026-03-01")
	fmt.Println("  probtrack note two-sum 'hash map, one pass'")
	fmt.Println("  probtrack add my-graph-problem 'My Graph Problem' graphs")
	fmt.Println("  probtrack settings theme dark")
	fmt.Println("  probtrack bundle download")
	fmt.Println("  probtrack deadletter retry b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  probtrack --server https://example.com sync")
}
