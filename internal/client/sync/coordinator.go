// Package sync реализует координатор синхронизации: единственный владелец
// drain pass очереди операций. Все переходы состояний происходят в одной
// горутине, параллельные drain запрещены конструктивно.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/sethvargo/go-retry"

	httpClient "github.com/iudanet/probtrack/internal/client/api"
	"github.com/iudanet/probtrack/internal/client/auth"
	"github.com/iudanet/probtrack/internal/client/cache"
	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/conflict"
	"github.com/iudanet/probtrack/internal/models"
	"github.com/iudanet/probtrack/internal/protocol"
	"github.com/iudanet/probtrack/pkg/api"
)

const (
	// defaultPassTimeout предельная длительность одного drain pass:
	// застрявший Draining статус хуже честной ошибки
	defaultPassTimeout = 2 * time.Minute

	// defaultAuthPollInterval период опроса token bridge в состоянии
	// auth-required
	defaultAuthPollInterval = 15 * time.Second

	// defaultBatchSize размер батча PeekBatch
	defaultBatchSize = 20

	// retryBaseDelay базовая задержка экспоненциального backoff
	retryBaseDelay = time.Second

	// retryCapDelay потолок задержки между попытками
	retryCapDelay = 30 * time.Second
)

// errPassHalted прерывает drain pass, когда транзиентно неудачная
// операция вернулась в pending: порядок применения сохраняется,
// следующий pass начнет с нее
var errPassHalted = errors.New("drain pass halted on transient failure")

// errConflictRequeued помечает операцию, вернувшуюся в pending после
// конфликта в пользу локальной записи: pass продолжается, но остальные
// операции той же сущности придерживаются до следующего pass
var errConflictRequeued = errors.New("operation requeued after conflict")

// EventFunc получает события координатора. Вызывается из горутины
// координатора, не должна блокироваться.
type EventFunc func(event *protocol.Event)

// Coordinator управляет отправкой очереди операций на сервер
type Coordinator struct {
	queue      storage.QueueStorage
	projection storage.ProjectionStorage
	metadata   storage.MetadataStorage
	apiClient  httpClient.ClientAPI
	authBridge auth.Bridge
	cache      *cache.Manager
	logger     *slog.Logger
	emit       EventFunc

	// trigger буферизован на один элемент: повторные TriggerSync во
	// время drain схлопываются в один последующий pass
	trigger chan struct{}

	mu        stdsync.Mutex
	state     models.SyncState
	lastError string

	passTimeout      time.Duration
	authPollInterval time.Duration
	retryBase        time.Duration
	retryCap         time.Duration
	batchSize        int
}

// NewCoordinator создает координатор синхронизации. emit может быть nil.
func NewCoordinator(
	queue storage.QueueStorage,
	projection storage.ProjectionStorage,
	metadata storage.MetadataStorage,
	apiClient httpClient.ClientAPI,
	authBridge auth.Bridge,
	cacheManager *cache.Manager,
	logger *slog.Logger,
	emit EventFunc,
) *Coordinator {
	if emit == nil {
		emit = func(*protocol.Event) {}
	}
	return &Coordinator{
		queue:            queue,
		projection:       projection,
		metadata:         metadata,
		apiClient:        apiClient,
		authBridge:       authBridge,
		cache:            cacheManager,
		logger:           logger,
		emit:             emit,
		trigger:          make(chan struct{}, 1),
		state:            models.SyncIdle,
		passTimeout:      defaultPassTimeout,
		authPollInterval: defaultAuthPollInterval,
		retryBase:        retryBaseDelay,
		retryCap:         retryCapDelay,
		batchSize:        defaultBatchSize,
	}
}

// TriggerSync запрашивает drain pass. Неблокирующий: если drain уже
// идет, запрос схлопывается в один повторный pass после текущего.
func (c *Coordinator) TriggerSync() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run запускает цикл координатора. Блокируется до отмены ctx.
// На старте восстанавливает операции, прерванные прошлым запуском.
func (c *Coordinator) Run(ctx context.Context) error {
	if n, err := c.queue.ResetInFlight(ctx); err != nil {
		return fmt.Errorf("failed to recover in-flight operations: %w", err)
	} else if n > 0 {
		c.logger.Info("Recovered interrupted operations", "count", n)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.trigger:
		}

		c.drainPass(ctx)

		// После auth-required ждем появления свежего токена
		// и перезапускаемся сами
		if c.State() == models.SyncAuthRequired {
			if err := c.waitForAuth(ctx); err != nil {
				return err
			}
			c.TriggerSync()
		}
	}
}

// SyncOnce синхронно выполняет один drain pass. Для разовых запусков
// (CLI команда sync) без фонового цикла.
func (c *Coordinator) SyncOnce(ctx context.Context) (*models.SyncStatus, error) {
	if _, err := c.queue.ResetInFlight(ctx); err != nil {
		return nil, fmt.Errorf("failed to recover in-flight operations: %w", err)
	}
	c.drainPass(ctx)
	return c.Status(ctx)
}

// State возвращает текущее состояние координатора
func (c *Coordinator) State() models.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status собирает агрегированный статус синхронизации
func (c *Coordinator) Status(ctx context.Context) (*models.SyncStatus, error) {
	pending, err := c.queue.PendingCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending operations: %w", err)
	}
	deadLetters, err := c.queue.ListDeadLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	lastSyncAt, err := c.metadata.GetLastSyncAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &models.SyncStatus{
		State:           c.state,
		LastError:       c.lastError,
		PendingCount:    pending,
		DeadLetterCount: len(deadLetters),
		IsSyncing:       c.state == models.SyncDraining,
		LastSyncAt:      lastSyncAt,
	}, nil
}

// setState переводит координатор в новое состояние и публикует
// SYNC_STATUS событие
func (c *Coordinator) setState(ctx context.Context, state models.SyncState, lastError string) {
	c.mu.Lock()
	c.state = state
	c.lastError = lastError
	c.mu.Unlock()

	c.logger.Debug("Sync state changed", "state", state, "error", lastError)

	if status, err := c.Status(ctx); err == nil {
		c.emit(&protocol.Event{Type: protocol.EventSyncStatus, Payload: status})
	}
}

// drainPass выполняет один полный проход по очереди
func (c *Coordinator) drainPass(ctx context.Context) {
	c.setState(ctx, models.SyncDraining, "")

	passCtx, cancel := context.WithTimeout(ctx, c.passTimeout)
	defer cancel()

	// Каждая операция получает в pass не больше одной серии попыток:
	// вернувшиеся в pending после Fail ждут следующего pass
	attempted := make(map[string]bool)

	// Сущности, чья операция вернулась в pending по local-wins
	// конфликту: их последующие операции не должны уйти вперед
	held := make(map[string]bool)

	for {
		batch, err := c.queue.PeekBatch(passCtx, c.batchSize)
		if err != nil {
			c.failPass(ctx, fmt.Errorf("failed to read queue batch: %w", err))
			return
		}

		fresh := batch[:0]
		for _, op := range batch {
			if !attempted[op.ID] && !held[op.EntityID] {
				fresh = append(fresh, op)
			}
		}
		if len(fresh) == 0 {
			break
		}

		for _, op := range fresh {
			attempted[op.ID] = true
			if passCtx.Err() != nil {
				c.failPass(ctx, fmt.Errorf("drain pass deadline exceeded"))
				return
			}

			if err := c.pushOperation(passCtx, op); err != nil {
				if errors.Is(err, errConflictRequeued) {
					held[op.EntityID] = true
					continue
				}
				if errors.Is(err, auth.ErrAuthRequired) || errors.Is(err, httpClient.ErrUnauthorized) {
					c.enterAuthRequired(ctx)
					return
				}
				c.failPass(ctx, err)
				return
			}
		}
	}

	// Операции, взятые но не обработанные в этом pass, возвращаются
	// в pending до следующего
	if _, err := c.queue.ResetInFlight(ctx); err != nil {
		c.logger.Error("Failed to release in-flight operations", "error", err)
	}

	if err := c.metadata.SaveLastSyncAt(ctx, time.Now()); err != nil {
		c.logger.Error("Failed to save last sync time", "error", err)
	}
	c.setState(ctx, models.SyncIdle, "")
}

// pushOperation отправляет одну операцию с retry на transient ошибках.
// Возврат без ошибки означает, что pass может продолжаться; ошибка
// (включая errPassHalted) останавливает его.
func (c *Coordinator) pushOperation(ctx context.Context, op *models.Operation) error {
	token, err := c.authBridge.Token(ctx)
	if err != nil {
		return err
	}

	req := api.PushOperationRequest{
		ID:        op.ID,
		Type:      string(op.Type),
		EntityID:  op.EntityID,
		Payload:   op.Payload,
		Timestamp: op.Timestamp,
	}

	backoff := retry.WithMaxRetries(uint64(storage.MaxAttempts-1),
		retry.WithCappedDuration(c.retryCap, retry.NewExponential(c.retryBase)))

	pushErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := c.apiClient.PushOperation(ctx, token, req)
		if err != nil && httpClient.IsTransient(err) {
			c.logger.Debug("Transient push failure, will retry",
				"operation_id", op.ID, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case pushErr == nil:
		return c.commitOperation(ctx, op)

	case errors.Is(pushErr, httpClient.ErrUnauthorized):
		return pushErr

	case isConflict(pushErr):
		return c.resolveConflict(ctx, op, conflictOf(pushErr))

	case httpClient.IsTransient(pushErr):
		// Retry бюджет pass исчерпан. Если операция вернулась в pending,
		// pass останавливается: более поздние операции не должны
		// коммититься впереди нее
		dead, err := c.recordFailure(ctx, op, storage.FailTransient, pushErr)
		if err != nil {
			return err
		}
		if dead {
			return nil
		}
		return fmt.Errorf("%w: %s", errPassHalted, pushErr.Error())

	default:
		// Неretryабельный 4xx: сервер никогда не примет эту операцию
		if err := c.queue.DeadLetter(ctx, op.ID, pushErr.Error()); err != nil {
			return fmt.Errorf("failed to dead-letter operation %s: %w", op.ID, err)
		}
		c.emitDeadLetter(op, pushErr.Error())
		return nil
	}
}

// commitOperation подтверждает операцию и инвалидирует кеш ее ресурса
func (c *Coordinator) commitOperation(ctx context.Context, op *models.Operation) error {
	if err := c.queue.Commit(ctx, op.ID); err != nil {
		return fmt.Errorf("failed to commit operation %s: %w", op.ID, err)
	}
	if err := c.cache.InvalidateResource(ctx, op.EntityID); err != nil {
		c.logger.Error("Failed to invalidate cache", "entity_id", op.EntityID, "error", err)
	}
	c.logger.Debug("Operation committed", "operation_id", op.ID, "type", op.Type)
	return nil
}

// recordFailure фиксирует неудачную попытку; публикует событие,
// если операция ушла в dead-letter. Возвращает true, если операция
// выработала весь бюджет попыток и покинула очередь.
func (c *Coordinator) recordFailure(ctx context.Context, op *models.Operation, kind storage.FailKind, cause error) (bool, error) {
	updated, err := c.queue.Fail(ctx, op.ID, kind, cause.Error())
	if err != nil {
		return false, fmt.Errorf("failed to record failure for %s: %w", op.ID, err)
	}
	if updated.Status == models.StatusDeadLetter {
		c.emitDeadLetter(updated, cause.Error())
		return true, nil
	}
	return false, nil
}

// resolveConflict применяет политику разрешения конфликтов к 409 ответу
func (c *Coordinator) resolveConflict(ctx context.Context, op *models.Operation, resp *api.ConflictResponse) error {
	resolution := conflict.Resolve(op, resp.ChangedFields, resp.RemoteTimestamp)
	c.logger.Info("Sync conflict",
		"operation_id", op.ID,
		"entity_id", op.EntityID,
		"resolution", resolution,
	)

	switch resolution {
	case conflict.ResolutionRemoteWins:
		// Серверная версия новее: операция отбрасывается, локальная
		// проекция приводится к серверному состоянию
		if err := c.applyRemote(ctx, &resp.Entity); err != nil {
			return err
		}
		if err := c.queue.Commit(ctx, op.ID); err != nil {
			return fmt.Errorf("failed to drop superseded operation %s: %w", op.ID, err)
		}
		return nil

	case conflict.ResolutionLocalWins:
		// Локальная запись новее: операция возвращается в pending и
		// будет отправлена повторно в следующем pass (в пределах
		// обычного бюджета попыток)
		dead, err := c.recordFailure(ctx, op, storage.FailConflict,
			errors.New("local write is newer than remote, retrying"))
		if err != nil {
			return err
		}
		if dead {
			return nil
		}
		return errConflictRequeued

	default:
		// Содержательные поля не мержатся автоматически
		if err := c.queue.DeadLetter(ctx, op.ID, "conflict"); err != nil {
			return fmt.Errorf("failed to dead-letter conflicting operation %s: %w", op.ID, err)
		}
		c.emit(&protocol.Event{
			Type: protocol.EventSyncConflictManual,
			Payload: map[string]any{
				"operation":      op,
				"remote_entity":  resp.Entity,
				"changed_fields": resp.ChangedFields,
			},
		})
		return nil
	}
}

// applyRemote приводит локальную проекцию к серверной версии сущности
func (c *Coordinator) applyRemote(ctx context.Context, remote *api.RemoteProblem) error {
	problem := &models.Problem{
		Slug:       remote.Slug,
		Title:      remote.Title,
		Pattern:    remote.Pattern,
		Difficulty: remote.Difficulty,
		Solved:     remote.Solved,
		Notes:      remote.Notes,
		Custom:     remote.Custom,
		UpdatedAt:  time.UnixMilli(remote.UpdatedAt),
	}
	if remote.SolvedAt != 0 {
		problem.SolvedAt = time.UnixMilli(remote.SolvedAt)
	}
	if remote.ReviewAt != 0 {
		problem.ReviewAt = time.UnixMilli(remote.ReviewAt)
	}
	if err := c.projection.SaveProblem(ctx, problem); err != nil {
		return fmt.Errorf("failed to apply remote version of %s: %w", remote.Slug, err)
	}
	return nil
}

// enterAuthRequired переводит координатор в auth-required и публикует
// событие. Операции остаются в очереди; взятые в pass возвращаются
// в pending.
func (c *Coordinator) enterAuthRequired(ctx context.Context) {
	if _, err := c.queue.ResetInFlight(ctx); err != nil {
		c.logger.Error("Failed to release in-flight operations", "error", err)
	}
	c.setState(ctx, models.SyncAuthRequired, "")
	c.emit(&protocol.Event{Type: protocol.EventSyncAuthRequired})
}

// failPass завершает pass с ошибкой, возвращая in-flight операции
func (c *Coordinator) failPass(ctx context.Context, cause error) {
	c.logger.Error("Drain pass failed", "error", cause)
	if _, err := c.queue.ResetInFlight(ctx); err != nil {
		c.logger.Error("Failed to release in-flight operations", "error", err)
	}
	c.setState(ctx, models.SyncError, cause.Error())
}

// waitForAuth опрашивает token bridge до появления валидного токена
func (c *Coordinator) waitForAuth(ctx context.Context) error {
	ticker := time.NewTicker(c.authPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ok, err := c.authBridge.IsAuthenticated(ctx)
			if err != nil {
				c.logger.Error("Failed to check authentication", "error", err)
				continue
			}
			if ok {
				c.logger.Info("Authentication restored, resuming sync")
				return nil
			}
		}
	}
}

func (c *Coordinator) emitDeadLetter(op *models.Operation, reason string) {
	c.emit(&protocol.Event{
		Type: protocol.EventSyncDeadLetter,
		Payload: map[string]any{
			"operation": op,
			"reason":    reason,
		},
	})
}

// isConflict проверяет, является ли ошибка 409 конфликтом
func isConflict(err error) bool {
	var conflictErr *httpClient.ConflictError
	return errors.As(err, &conflictErr)
}

// conflictOf извлекает тело 409 ответа
func conflictOf(err error) *api.ConflictResponse {
	var conflictErr *httpClient.ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Response
	}
	return nil
}
