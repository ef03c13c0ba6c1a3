package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

// Enqueue durably appends an operation to the queue.
// ID и timestamp присваиваются, если отсутствуют. Возврат из Enqueue
// означает, что операция записана на диск - вызывающий может сразу
// отразить мутацию в UI как оптимистичное состояние.
func (s *Storage) Enqueue(ctx context.Context, op *models.Operation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp == 0 {
		op.Timestamp = time.Now().UnixMilli()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	op.Status = models.StatusPending

	return s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		index := tx.Bucket(bucketQueueIndex)
		if queue == nil || index == nil {
			return fmt.Errorf("queue buckets not found")
		}

		// Порядковый номер: ключи в bolt отсортированы, поэтому
		// big-endian seq дает итерацию строго в порядке enqueue
		seq, err := queue.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		key := seqKey(seq)

		data, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}

		if err := queue.Put(key, data); err != nil {
			return fmt.Errorf("failed to append operation: %w", err)
		}

		// Индекс id -> seq для Commit/Fail по operation id
		if err := index.Put([]byte(op.ID), key); err != nil {
			return fmt.Errorf("failed to index operation: %w", err)
		}

		return nil
	})
}

// PeekBatch returns up to maxCount pending operations in enqueue order,
// transitioning them pending -> in-flight in the same transaction.
// Сущности, у которых более ранняя операция уже in-flight (например,
// взята другим drain-ом), придерживаются целиком.
func (s *Storage) PeekBatch(ctx context.Context, maxCount int) ([]*models.Operation, error) {
	var batch []*models.Operation

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		if queue == nil {
			return fmt.Errorf("queue bucket not found")
		}

		// Сначала собираем кандидатов на чтении, потом помечаем -
		// не модифицируем bucket под живым cursor
		blocked := make(map[string]bool)
		var keys [][]byte

		err := queue.ForEach(func(k, v []byte) error {
			op := &models.Operation{}
			if err := json.Unmarshal(v, op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}

			switch {
			case op.Status == models.StatusInFlight:
				// Уже в обработке - блокируем сущность, чтобы не
				// нарушить порядок применения per entity
				blocked[op.EntityID] = true

			case op.Status == models.StatusPending && !blocked[op.EntityID]:
				if len(batch) < maxCount {
					keyCopy := make([]byte, len(k))
					copy(keyCopy, k)
					keys = append(keys, keyCopy)
					batch = append(batch, op)
				} else {
					// Батч полон - дальнейшие операции этой сущности
					// тоже должны подождать
					blocked[op.EntityID] = true
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		// CAS-переход pending -> in-flight в той же транзакции
		for i, op := range batch {
			op.Status = models.StatusInFlight
			data, err := json.Marshal(op)
			if err != nil {
				return fmt.Errorf("failed to marshal operation: %w", err)
			}
			if err := queue.Put(keys[i], data); err != nil {
				return fmt.Errorf("failed to mark in-flight: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return batch, nil
}

// Commit removes an acknowledged operation from the queue.
// CAS: только in-flight операция может быть подтверждена - защита от
// двойной обработки, когда очередь дренируют два процесса.
func (s *Storage) Commit(ctx context.Context, operationID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		op, key, err := lookupOperation(tx, operationID)
		if err != nil {
			return err
		}

		if op.Status != models.StatusInFlight {
			return storage.ErrOperationConflict
		}

		return removeOperation(tx, operationID, key)
	})
}

// Fail records a failed attempt. In-flight операция возвращается в
// pending с RetryCount+1; после storage.MaxAttempts попыток перемещается
// в dead-letter с причиной по виду последней ошибки.
func (s *Storage) Fail(ctx context.Context, operationID string, kind storage.FailKind, cause string) (*models.Operation, error) {
	var updated *models.Operation

	err := s.db.Update(func(tx *bbolt.Tx) error {
		op, key, err := lookupOperation(tx, operationID)
		if err != nil {
			return err
		}

		if op.Status != models.StatusInFlight {
			return storage.ErrOperationConflict
		}

		op.RetryCount++
		op.LastError = cause
		op.AttemptedAt = time.Now()

		if op.RetryCount >= storage.MaxAttempts {
			reason := "retries-exhausted"
			if kind == storage.FailConflict {
				reason = "conflict"
			}
			return moveToDeadLetter(tx, op, key, reason, &updated)
		}

		op.Status = models.StatusPending
		data, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}
		if err := tx.Bucket(bucketQueue).Put(key, data); err != nil {
			return fmt.Errorf("failed to save failed operation: %w", err)
		}
		updated = op
		return nil
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeadLetter moves an operation directly to the dead-letter bucket
func (s *Storage) DeadLetter(ctx context.Context, operationID, reason string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		op, key, err := lookupOperation(tx, operationID)
		if err != nil {
			return err
		}

		var moved *models.Operation
		return moveToDeadLetter(tx, op, key, reason, &moved)
	})
}

// ResetInFlight returns all in-flight operations to pending.
// Восстановление после прерванного drain: повторная отправка безопасна,
// сервер дедуплицирует операции по id.
func (s *Storage) ResetInFlight(ctx context.Context) (int, error) {
	count := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		if queue == nil {
			return fmt.Errorf("queue bucket not found")
		}

		type pendingWrite struct {
			key  []byte
			data []byte
		}
		var writes []pendingWrite

		err := queue.ForEach(func(k, v []byte) error {
			op := &models.Operation{}
			if err := json.Unmarshal(v, op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			if op.Status != models.StatusInFlight {
				return nil
			}

			op.Status = models.StatusPending
			data, err := json.Marshal(op)
			if err != nil {
				return fmt.Errorf("failed to marshal operation: %w", err)
			}

			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			writes = append(writes, pendingWrite{key: keyCopy, data: data})
			return nil
		})
		if err != nil {
			return err
		}

		for _, w := range writes {
			if err := queue.Put(w.key, w.data); err != nil {
				return fmt.Errorf("failed to reset operation: %w", err)
			}
			count++
		}
		return nil
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

// PendingCount returns the number of pending + in-flight operations
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		if queue == nil {
			return fmt.Errorf("queue bucket not found")
		}
		count = queue.Stats().KeyN
		return nil
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListDeadLetters returns all dead-lettered operations sorted by creation time
func (s *Storage) ListDeadLetters(ctx context.Context) ([]*models.Operation, error) {
	var ops []*models.Operation

	err := s.db.View(func(tx *bbolt.Tx) error {
		dead := tx.Bucket(bucketDeadLetter)
		if dead == nil {
			return fmt.Errorf("dead_letter bucket not found")
		}

		return dead.ForEach(func(k, v []byte) error {
			op := &models.Operation{}
			if err := json.Unmarshal(v, op); err != nil {
				return fmt.Errorf("failed to unmarshal dead-letter: %w", err)
			}
			ops = append(ops, op)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].CreatedAt.Before(ops[j].CreatedAt) })
	return ops, nil
}

// RequeueDeadLetter returns a dead-lettered operation to the queue
// with a fresh retry budget
func (s *Storage) RequeueDeadLetter(ctx context.Context, operationID string) error {
	var op *models.Operation

	err := s.db.Update(func(tx *bbolt.Tx) error {
		dead := tx.Bucket(bucketDeadLetter)
		if dead == nil {
			return fmt.Errorf("dead_letter bucket not found")
		}

		data := dead.Get([]byte(operationID))
		if data == nil {
			return storage.ErrOperationNotFound
		}

		op = &models.Operation{}
		if err := json.Unmarshal(data, op); err != nil {
			return fmt.Errorf("failed to unmarshal dead-letter: %w", err)
		}

		return dead.Delete([]byte(operationID))
	})
	if err != nil {
		return err
	}

	// Сбрасываем retry budget и ставим обратно в очередь
	op.RetryCount = 0
	op.LastError = ""
	op.DeadReason = ""
	return s.Enqueue(ctx, op)
}

// DiscardDeadLetter permanently drops a dead-lettered operation
func (s *Storage) DiscardDeadLetter(ctx context.Context, operationID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dead := tx.Bucket(bucketDeadLetter)
		if dead == nil {
			return fmt.Errorf("dead_letter bucket not found")
		}

		if dead.Get([]byte(operationID)) == nil {
			return storage.ErrOperationNotFound
		}

		return dead.Delete([]byte(operationID))
	})
}

// seqKey кодирует порядковый номер в big-endian ключ
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// lookupOperation находит операцию в очереди по id через индекс
func lookupOperation(tx *bbolt.Tx, operationID string) (*models.Operation, []byte, error) {
	queue := tx.Bucket(bucketQueue)
	index := tx.Bucket(bucketQueueIndex)
	if queue == nil || index == nil {
		return nil, nil, fmt.Errorf("queue buckets not found")
	}

	key := index.Get([]byte(operationID))
	if key == nil {
		return nil, nil, storage.ErrOperationNotFound
	}

	data := queue.Get(key)
	if data == nil {
		return nil, nil, storage.ErrOperationNotFound
	}

	op := &models.Operation{}
	if err := json.Unmarshal(data, op); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	return op, key, nil
}

// removeOperation удаляет операцию из очереди и индекса
func removeOperation(tx *bbolt.Tx, operationID string, key []byte) error {
	if err := tx.Bucket(bucketQueue).Delete(key); err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}
	if err := tx.Bucket(bucketQueueIndex).Delete([]byte(operationID)); err != nil {
		return fmt.Errorf("failed to delete operation index: %w", err)
	}
	return nil
}

// moveToDeadLetter перемещает операцию из очереди в dead-letter bucket
func moveToDeadLetter(tx *bbolt.Tx, op *models.Operation, key []byte, reason string, out **models.Operation) error {
	dead := tx.Bucket(bucketDeadLetter)
	if dead == nil {
		return fmt.Errorf("dead_letter bucket not found")
	}

	op.Status = models.StatusDeadLetter
	op.DeadReason = reason

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter: %w", err)
	}

	if err := dead.Put([]byte(op.ID), data); err != nil {
		return fmt.Errorf("failed to save dead-letter: %w", err)
	}

	if err := removeOperation(tx, op.ID, key); err != nil {
		return err
	}

	*out = op
	return nil
}
