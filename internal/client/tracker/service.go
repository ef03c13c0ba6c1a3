// Package tracker реализует мутации задач по двухфазной схеме:
// фаза 1 синхронно обновляет локальную проекцию и устойчиво ставит
// операцию в очередь, фаза 2 - асинхронная отправка координатором.
// UI никогда не ждет сеть.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iudanet/probtrack/internal/client/queue"
	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

// Service сервис работы с задачами поверх локальной проекции
type Service struct {
	projection storage.ProjectionStorage
	queue      *queue.Service
	logger     *slog.Logger
	onMutation func() // обычно Coordinator.TriggerSync
}

// NewService создает сервис трекера. onMutation вызывается после каждой
// успешной мутации и может быть nil.
func NewService(
	projection storage.ProjectionStorage,
	queueService *queue.Service,
	logger *slog.Logger,
	onMutation func(),
) *Service {
	if onMutation == nil {
		onMutation = func() {}
	}
	return &Service{
		projection: projection,
		queue:      queueService,
		logger:     logger,
		onMutation: onMutation,
	}
}

// MarkSolved отмечает задачу решенной или нерешенной
func (s *Service) MarkSolved(ctx context.Context, slug string, solved bool) error {
	problem, err := s.getOrNew(ctx, slug)
	if err != nil {
		return err
	}

	now := time.Now()
	problem.Solved = solved
	if solved {
		problem.SolvedAt = now
	} else {
		problem.SolvedAt = time.Time{}
	}
	problem.UpdatedAt = now

	payload := &models.MarkSolvedPayload{Slug: slug, Solved: solved}
	if solved {
		payload.SolvedAt = now.UnixMilli()
	}
	return s.mutate(ctx, problem, models.OpMarkSolved, slug, payload)
}

// UpdateReviewDate назначает дату следующего повторения задачи
func (s *Service) UpdateReviewDate(ctx context.Context, slug string, reviewAt time.Time) error {
	problem, err := s.getOrNew(ctx, slug)
	if err != nil {
		return err
	}

	problem.ReviewAt = reviewAt
	problem.UpdatedAt = time.Now()

	return s.mutate(ctx, problem, models.OpUpdateReviewDate, slug, &models.UpdateReviewDatePayload{
		Slug:     slug,
		ReviewAt: reviewAt.UnixMilli(),
	})
}

// UpdateDifficulty задает субъективную сложность задачи
func (s *Service) UpdateDifficulty(ctx context.Context, slug string, difficulty int) error {
	problem, err := s.getOrNew(ctx, slug)
	if err != nil {
		return err
	}

	problem.Difficulty = difficulty
	problem.UpdatedAt = time.Now()

	return s.mutate(ctx, problem, models.OpUpdateDifficulty, slug, &models.UpdateDifficultyPayload{
		Slug:       slug,
		Difficulty: difficulty,
	})
}

// AddNote сохраняет заметку к задаче
func (s *Service) AddNote(ctx context.Context, slug, note string) error {
	problem, err := s.getOrNew(ctx, slug)
	if err != nil {
		return err
	}

	problem.Notes = note
	problem.UpdatedAt = time.Now()

	return s.mutate(ctx, problem, models.OpAddNote, slug, &models.AddNotePayload{
		Slug: slug,
		Note: note,
	})
}

// AddCustomProblem добавляет пользовательскую задачу
func (s *Service) AddCustomProblem(ctx context.Context, slug, title, pattern string, difficulty int) error {
	if _, err := s.projection.GetProblem(ctx, slug); err == nil {
		return fmt.Errorf("problem %q already exists", slug)
	} else if !errors.Is(err, storage.ErrProblemNotFound) {
		return err
	}

	problem := &models.Problem{
		Slug:       slug,
		Title:      title,
		Pattern:    pattern,
		Difficulty: difficulty,
		Custom:     true,
		UpdatedAt:  time.Now(),
	}

	return s.mutate(ctx, problem, models.OpAddCustomProblem, slug, &models.AddCustomProblemPayload{
		Slug:       slug,
		Title:      title,
		Pattern:    pattern,
		Difficulty: difficulty,
	})
}

// DeleteProblem удаляет задачу из проекции
func (s *Service) DeleteProblem(ctx context.Context, slug string) error {
	if _, err := s.projection.GetProblem(ctx, slug); err != nil {
		return err
	}

	// Фаза 1: операция в очередь, затем проекция
	if _, err := s.queue.Add(ctx, models.OpDeleteProblem, slug, &models.DeleteProblemPayload{Slug: slug}); err != nil {
		return err
	}
	if err := s.projection.DeleteProblem(ctx, slug); err != nil {
		return fmt.Errorf("failed to delete problem %s: %w", slug, err)
	}

	s.onMutation()
	return nil
}

// UpdateSettings перезаписывает значения настроек
func (s *Service) UpdateSettings(ctx context.Context, updates map[string]string) error {
	settings, err := s.projection.GetSettings(ctx)
	if err != nil {
		return err
	}
	for k, v := range updates {
		settings[k] = v
	}

	if _, err := s.queue.Add(ctx, models.OpUpdateSettings, "settings", &models.UpdateSettingsPayload{
		Settings: updates,
	}); err != nil {
		return err
	}
	if err := s.projection.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.onMutation()
	return nil
}

// Rollback откатывает оптимистичное обновление проекции для операции,
// окончательно отклоненной сервером. Поле восстанавливается из
// полезной нагрузки операции.
func (s *Service) Rollback(ctx context.Context, op *models.Operation) error {
	switch op.Type {
	case models.OpMarkSolved:
		var payload models.MarkSolvedPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal rollback payload: %w", err)
		}
		problem, err := s.projection.GetProblem(ctx, payload.Slug)
		if err != nil {
			return err
		}
		problem.Solved = !payload.Solved
		if !problem.Solved {
			problem.SolvedAt = time.Time{}
		}
		problem.UpdatedAt = time.Now()
		return s.projection.SaveProblem(ctx, problem)

	case models.OpAddNote:
		var payload models.AddNotePayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal rollback payload: %w", err)
		}
		problem, err := s.projection.GetProblem(ctx, payload.Slug)
		if err != nil {
			return err
		}
		problem.Notes = ""
		problem.UpdatedAt = time.Now()
		return s.projection.SaveProblem(ctx, problem)

	case models.OpAddCustomProblem:
		var payload models.AddCustomProblemPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal rollback payload: %w", err)
		}
		return s.projection.DeleteProblem(ctx, payload.Slug)

	default:
		// Для остальных типов откат - сброс поля при следующем
		// GetDocument; отдельного локального отката не требуется
		s.logger.Warn("No local rollback for operation type", "type", op.Type)
		return nil
	}
}

// Get возвращает задачу из локальной проекции
func (s *Service) Get(ctx context.Context, slug string) (*models.Problem, error) {
	return s.projection.GetProblem(ctx, slug)
}

// List возвращает все задачи, отсортированные по slug
func (s *Service) List(ctx context.Context) ([]*models.Problem, error) {
	return s.projection.ListProblems(ctx)
}

// Search фильтрует задачи по подстроке slug/title, паттерну и статусу
// решения. nil solved означает "любой статус".
func (s *Service) Search(ctx context.Context, query, pattern string, solved *bool) ([]*models.Problem, error) {
	problems, err := s.projection.ListProblems(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var result []*models.Problem
	for _, p := range problems {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Slug), query) &&
			!strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		if pattern != "" && p.Pattern != pattern {
			continue
		}
		if solved != nil && p.Solved != *solved {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

// Settings возвращает локальные настройки
func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	return s.projection.GetSettings(ctx)
}

// getOrNew возвращает задачу или заводит новую запись проекции
func (s *Service) getOrNew(ctx context.Context, slug string) (*models.Problem, error) {
	problem, err := s.projection.GetProblem(ctx, slug)
	if errors.Is(err, storage.ErrProblemNotFound) {
		return &models.Problem{Slug: slug}, nil
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}

// mutate выполняет фазу 1: постановка в очередь, затем обновление
// проекции. Очередь первой - если полезная нагрузка невалидна,
// проекция остается нетронутой.
func (s *Service) mutate(ctx context.Context, problem *models.Problem, opType models.OpType, entityID string, payload queue.Payload) error {
	if _, err := s.queue.Add(ctx, opType, entityID, payload); err != nil {
		return err
	}
	if err := s.projection.SaveProblem(ctx, problem); err != nil {
		return fmt.Errorf("failed to update projection for %s: %w", entityID, err)
	}

	s.onMutation()
	return nil
}
