package models

import (
	"errors"
	"fmt"

	"github.com/iudanet/probtrack/internal/validation"
)

// ErrEmptyPayload отсутствующая полезная нагрузка операции
var ErrEmptyPayload = errors.New("operation payload is empty")

// Validate семантическая проверка MARK_SOLVED
func (p *MarkSolvedPayload) Validate() error {
	return validation.ValidateSlug(p.Slug)
}

// Validate семантическая проверка UPDATE_REVIEW_DATE
func (p *UpdateReviewDatePayload) Validate() error {
	if err := validation.ValidateSlug(p.Slug); err != nil {
		return err
	}
	if p.ReviewAt < 0 {
		return fmt.Errorf("review_at must not be negative, got %d", p.ReviewAt)
	}
	return nil
}

// Validate семантическая проверка UPDATE_DIFFICULTY
func (p *UpdateDifficultyPayload) Validate() error {
	if err := validation.ValidateSlug(p.Slug); err != nil {
		return err
	}
	return validation.ValidateDifficulty(p.Difficulty)
}

// Validate семантическая проверка ADD_NOTE
func (p *AddNotePayload) Validate() error {
	if err := validation.ValidateSlug(p.Slug); err != nil {
		return err
	}
	if p.Note == "" {
		return errors.New("note must not be empty")
	}
	return nil
}

// Validate семантическая проверка ADD_CUSTOM_PROBLEM
func (p *AddCustomProblemPayload) Validate() error {
	if err := validation.ValidateSlug(p.Slug); err != nil {
		return err
	}
	if p.Title == "" {
		return errors.New("title must not be empty")
	}
	if p.Difficulty != 0 {
		return validation.ValidateDifficulty(p.Difficulty)
	}
	return nil
}

// Validate семантическая проверка DELETE_PROBLEM
func (p *DeleteProblemPayload) Validate() error {
	return validation.ValidateSlug(p.Slug)
}

// Validate семантическая проверка UPDATE_SETTINGS
func (p *UpdateSettingsPayload) Validate() error {
	if len(p.Settings) == 0 {
		return errors.New("settings must not be empty")
	}
	for k := range p.Settings {
		if k == "" {
			return errors.New("settings key must not be empty")
		}
	}
	return nil
}
