// Package agent реализует фоновый цикл клиента: принимает команды
// управления, владеет координатором синхронизации и загрузчиком bundle,
// публикует события подписчикам через шину.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/probtrack/internal/bundle"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/queue"
	syncsvc "github.com/iudanet/probtrack/internal/client/sync"
	"github.com/iudanet/probtrack/internal/protocol"
)

const (
	// defaultWakeInterval период фонового пробуждения: непустая
	// очередь отправляется даже без внешних триггеров
	defaultWakeInterval = 5 * time.Minute

	// commandBuffer емкость очереди входящих команд
	commandBuffer = 32
)

// Agent фоновый агент клиента
type Agent struct {
	bus         *Bus
	coordinator *syncsvc.Coordinator
	unpacker    *bundle.Unpacker
	cache       *cache.Manager
	queue       *queue.Service
	logger      *slog.Logger

	commands chan *protocol.Command

	// bundleCancel отменяет текущую загрузку bundle; устанавливается
	// и читается только горутиной Run
	bundleCancel context.CancelFunc
	bundleDone   chan struct{}

	wakeInterval time.Duration
}

// New создает агента
func New(
	bus *Bus,
	coordinator *syncsvc.Coordinator,
	unpacker *bundle.Unpacker,
	cacheManager *cache.Manager,
	queueService *queue.Service,
	logger *slog.Logger,
) *Agent {
	return &Agent{
		bus:          bus,
		coordinator:  coordinator,
		unpacker:     unpacker,
		cache:        cacheManager,
		queue:        queueService,
		logger:       logger,
		commands:     make(chan *protocol.Command, commandBuffer),
		wakeInterval: defaultWakeInterval,
	}
}

// Dispatch строго декодирует команду и ставит ее в очередь агента.
// Ошибка декодирования возвращается до каких-либо действий.
func (a *Agent) Dispatch(data []byte) error {
	cmd, err := protocol.DecodeCommand(data)
	if err != nil {
		return err
	}

	select {
	case a.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("agent command queue is full")
	}
}

// NetworkRestored сигнализирует о восстановлении сети
func (a *Agent) NetworkRestored() {
	a.logger.Info("Network restored")
	a.coordinator.TriggerSync()
}

// Run запускает фоновый цикл. Блокируется до отмены ctx.
func (a *Agent) Run(ctx context.Context) error {
	coordinatorDone := make(chan error, 1)
	go func() {
		coordinatorDone <- a.coordinator.Run(ctx)
	}()

	// Непустая очередь после рестарта отправляется сразу
	if pending, err := a.queue.PendingCount(ctx); err == nil && pending > 0 {
		a.coordinator.TriggerSync()
	}

	wake := time.NewTicker(a.wakeInterval)
	defer wake.Stop()

	for {
		select {
		case <-ctx.Done():
			a.cancelBundleDownload()
			<-coordinatorDone
			return ctx.Err()

		case cmd := <-a.commands:
			a.handleCommand(ctx, cmd)

		case <-wake.C:
			if pending, err := a.queue.PendingCount(ctx); err == nil && pending > 0 {
				a.logger.Debug("Periodic wake, queue is not empty", "pending", pending)
				a.coordinator.TriggerSync()
			}
		}
	}
}

// handleCommand обрабатывает одну команду управления
func (a *Agent) handleCommand(ctx context.Context, cmd *protocol.Command) {
	a.logger.Debug("Handling command", "type", cmd.Type)

	switch cmd.Type {
	case protocol.CmdSyncOperations:
		a.handleSyncOperations(ctx, cmd)

	case protocol.CmdForceSync:
		a.coordinator.TriggerSync()

	case protocol.CmdGetSyncStatus:
		a.publishSyncStatus(ctx)

	case protocol.CmdClearAllCaches:
		a.handleClearAllCaches(ctx)

	case protocol.CmdDownloadBundle:
		a.startBundleDownload(ctx)

	case protocol.CmdGetBundleStatus:
		a.publishBundleStatus(ctx)

	case protocol.CmdCheckOfflineReload:
		a.handleCheckOfflineReload(ctx, cmd.Key)

	case protocol.CmdGetOfflineCapability:
		a.publishCapability(ctx)
	}
}

// handleSyncOperations ставит операции внешней границы в очередь
// и запускает drain
func (a *Agent) handleSyncOperations(ctx context.Context, cmd *protocol.Command) {
	for _, op := range cmd.Operations {
		if err := a.queue.AddRaw(ctx, op); err != nil {
			a.logger.Error("Rejected operation", "operation_id", op.ID, "error", err)
			return
		}
	}
	a.coordinator.TriggerSync()
}

// handleClearAllCaches отменяет идущую загрузку bundle и атомарно
// очищает все tier-ы
func (a *Agent) handleClearAllCaches(ctx context.Context) {
	a.cancelBundleDownload()

	if err := a.cache.ClearAll(ctx); err != nil {
		a.logger.Error("Failed to clear caches", "error", err)
		return
	}
	a.publishCapability(ctx)
}

// startBundleDownload запускает загрузку bundle, если она еще не идет
func (a *Agent) startBundleDownload(ctx context.Context) {
	if a.bundleCancel != nil {
		select {
		case <-a.bundleDone:
			// Предыдущая загрузка завершилась
		default:
			a.logger.Debug("Bundle download already in progress")
			return
		}
	}

	downloadCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.bundleCancel = cancel
	a.bundleDone = done

	go func() {
		defer close(done)
		defer cancel()

		state, err := a.unpacker.Download(downloadCtx)
		if err != nil {
			a.logger.Error("Bundle download failed", "error", err)
			a.bus.Publish(&protocol.Event{
				Type:    protocol.EventBundleError,
				Payload: state,
			})
			return
		}
		a.bus.Publish(&protocol.Event{
			Type:    protocol.EventBundleComplete,
			Payload: state,
		})
	}()
}

// cancelBundleDownload останавливает идущую загрузку и дожидается
// ее завершения
func (a *Agent) cancelBundleDownload() {
	if a.bundleCancel == nil {
		return
	}
	a.bundleCancel()
	<-a.bundleDone
	a.bundleCancel = nil
	a.bundleDone = nil
}

func (a *Agent) publishSyncStatus(ctx context.Context) {
	status, err := a.coordinator.Status(ctx)
	if err != nil {
		a.logger.Error("Failed to build sync status", "error", err)
		return
	}
	a.bus.Publish(&protocol.Event{Type: protocol.EventSyncStatus, Payload: status})
}

func (a *Agent) publishBundleStatus(ctx context.Context) {
	state, err := a.unpacker.Status(ctx)
	if err != nil {
		a.logger.Error("Failed to read bundle status", "error", err)
		return
	}
	a.bus.Publish(&protocol.Event{Type: protocol.EventBundleProgress, Payload: state})
}

func (a *Agent) handleCheckOfflineReload(ctx context.Context, key string) {
	canServe, err := a.cache.CanServeOffline(ctx, key)
	if err != nil {
		a.logger.Error("Failed to check offline reload", "key", key, "error", err)
		return
	}
	a.bus.Publish(&protocol.Event{
		Type: protocol.EventOfflineReloadStatus,
		Payload: map[string]any{
			"key":       key,
			"can_serve": canServe,
		},
	})
}

func (a *Agent) publishCapability(ctx context.Context) {
	capability, err := a.cache.Capability(ctx)
	if err != nil {
		a.logger.Error("Failed to build offline capability", "error", err)
		return
	}
	a.bus.Publish(&protocol.Event{Type: protocol.EventOfflineCapability, Payload: capability})
}
