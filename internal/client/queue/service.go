// Package queue ставит мутации пользователя в устойчивую очередь операций.
// Каждая операция проходит семантическую проверку до записи на диск:
// очередь никогда не хранит операцию, которую сервер гарантированно отклонит.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

// Payload полезная нагрузка операции с семантической проверкой
type Payload interface {
	Validate() error
}

// Service сервис очереди операций поверх устойчивого хранилища
type Service struct {
	storage storage.QueueStorage
	logger  *slog.Logger
}

// NewService создает сервис очереди операций
func NewService(queueStorage storage.QueueStorage, logger *slog.Logger) *Service {
	return &Service{
		storage: queueStorage,
		logger:  logger,
	}
}

// Add проверяет полезную нагрузку, собирает операцию и устойчиво
// сохраняет ее. Возвращает управление только после записи на диск.
func (s *Service) Add(ctx context.Context, opType models.OpType, entityID string, payload Payload) (*models.Operation, error) {
	if payload == nil {
		return nil, models.ErrEmptyPayload
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", opType, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", opType, err)
	}

	op := &models.Operation{
		ID:        uuid.NewString(),
		Type:      opType,
		EntityID:  entityID,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.storage.Enqueue(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to enqueue operation: %w", err)
	}

	s.logger.Debug("Operation enqueued",
		"operation_id", op.ID,
		"type", op.Type,
		"entity_id", op.EntityID,
	)
	return op, nil
}

// AddRaw ставит в очередь операцию с внешней границы (Control Protocol).
// Структурная проверка уже выполнена декодером; здесь добираем
// семантическую и присваиваем недостающие поля.
func (s *Service) AddRaw(ctx context.Context, op *models.Operation) error {
	if !models.KnownOpType(string(op.Type)) {
		return fmt.Errorf("unknown operation type %q", op.Type)
	}

	payload, err := decodePayload(op.Type, op.Payload)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid %s payload: %w", op.Type, err)
	}

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp == 0 {
		op.Timestamp = time.Now().UnixMilli()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	op.Status = models.StatusPending

	if err := s.storage.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

// decodePayload разбирает полезную нагрузку в типизированную структуру
func decodePayload(opType models.OpType, raw json.RawMessage) (Payload, error) {
	var payload Payload
	switch opType {
	case models.OpMarkSolved:
		payload = &models.MarkSolvedPayload{}
	case models.OpUpdateReviewDate:
		payload = &models.UpdateReviewDatePayload{}
	case models.OpUpdateDifficulty:
		payload = &models.UpdateDifficultyPayload{}
	case models.OpAddNote:
		payload = &models.AddNotePayload{}
	case models.OpAddCustomProblem:
		payload = &models.AddCustomProblemPayload{}
	case models.OpDeleteProblem:
		payload = &models.DeleteProblemPayload{}
	case models.OpUpdateSettings:
		payload = &models.UpdateSettingsPayload{}
	default:
		return nil, fmt.Errorf("unknown operation type %q", opType)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", opType, err)
	}
	return payload, nil
}

// PendingCount количество операций, ожидающих отправки
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.storage.PendingCount(ctx)
}

// DeadLetters операции, исчерпавшие попытки или отложенные конфликтом
func (s *Service) DeadLetters(ctx context.Context) ([]*models.Operation, error) {
	return s.storage.ListDeadLetters(ctx)
}

// RequeueDeadLetter возвращает dead-letter операцию в очередь по решению
// пользователя. Счетчик попыток обнуляется.
func (s *Service) RequeueDeadLetter(ctx context.Context, operationID string) error {
	return s.storage.RequeueDeadLetter(ctx, operationID)
}

// DiscardDeadLetter навсегда удаляет dead-letter операцию
func (s *Service) DiscardDeadLetter(ctx context.Context, operationID string) error {
	return s.storage.DiscardDeadLetter(ctx, operationID)
}

// Recover переводит операции, оставшиеся in-flight после сбоя,
// обратно в pending. Вызывается один раз на старте: повтор безопасен,
// сервер дедуплицирует по id операции.
func (s *Service) Recover(ctx context.Context) error {
	n, err := s.storage.ResetInFlight(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover in-flight operations: %w", err)
	}
	if n > 0 {
		s.logger.Info("Recovered interrupted operations", "count", n)
	}
	return nil
}
