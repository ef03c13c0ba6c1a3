package storage

import (
	"context"

	"github.com/iudanet/probtrack/internal/models"
)

// MaxAttempts предельное количество попыток отправки операции.
// После исчерпания операция переводится в dead-letter и показывается
// пользователю - молчаливый бесконечный retry недопустим.
const MaxAttempts = 5

// FailKind классифицирует ошибку неудачной попытки отправки операции
type FailKind string

const (
	// FailTransient сетевая ошибка или 5xx - операция будет повторена
	FailTransient FailKind = "transient"
	// FailConflict конфликт, разрешенный в пользу локальной записи -
	// операция будет отправлена повторно
	FailConflict FailKind = "conflict"
)

// QueueStorage defines the durable, ordered log of pending mutations.
// Appends are durable before Enqueue returns; operations leave the queue
// only through Commit (server acknowledged) or dead-letter.
type QueueStorage interface {
	// Enqueue durably appends an operation to the queue
	Enqueue(ctx context.Context, op *models.Operation) error

	// PeekBatch returns up to maxCount pending operations in enqueue order
	// and transitions them pending -> in-flight in the same transaction.
	// Operations for an entity with an earlier unfinished operation are
	// held back to preserve per-entity ordering.
	PeekBatch(ctx context.Context, maxCount int) ([]*models.Operation, error)

	// Commit removes an acknowledged operation from the queue.
	// Only an in-flight operation can be committed (CAS against id);
	// returns ErrOperationConflict if the operation is not in-flight.
	Commit(ctx context.Context, operationID string) error

	// Fail records a failed attempt: in-flight -> pending with
	// RetryCount incremented. After MaxAttempts the operation is moved
	// to the dead-letter bucket instead. Returns the updated operation.
	Fail(ctx context.Context, operationID string, kind FailKind, cause string) (*models.Operation, error)

	// DeadLetter moves an operation directly to the dead-letter bucket
	// (manual conflicts bypass the retry budget)
	DeadLetter(ctx context.Context, operationID, reason string) error

	// ResetInFlight returns all in-flight operations to pending.
	// Called on startup to recover from an interrupted drain.
	ResetInFlight(ctx context.Context) (int, error)

	// PendingCount returns the number of pending + in-flight operations
	PendingCount(ctx context.Context) (int, error)

	// ListDeadLetters returns all dead-lettered operations
	ListDeadLetters(ctx context.Context) ([]*models.Operation, error)

	// RequeueDeadLetter returns a dead-lettered operation to the queue
	// with a fresh retry budget
	RequeueDeadLetter(ctx context.Context, operationID string) error

	// DiscardDeadLetter permanently drops a dead-lettered operation
	DiscardDeadLetter(ctx context.Context, operationID string) error
}
