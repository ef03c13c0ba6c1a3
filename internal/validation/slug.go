package validation

import (
	"fmt"
	"regexp"
)

// SlugPattern определяет допустимый формат slug задачи
// Только строчные латинские буквы (a-z), цифры (0-9) и дефис (-)
// Длина: 2-64 символа, не начинается и не заканчивается дефисом
var SlugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

const (
	// MinSlugLen минимальная длина slug
	MinSlugLen = 2
	// MaxSlugLen максимальная длина slug
	MaxSlugLen = 64
)

// ValidateSlug проверяет, что slug задачи соответствует требованиям
// Формат: строчные латинские буквы (a-z), цифры (0-9), дефис (-)
// Длина: 2-64 символа
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	if len(slug) < MinSlugLen {
		return fmt.Errorf("slug must be at least %d characters long", MinSlugLen)
	}

	if len(slug) > MaxSlugLen {
		return fmt.Errorf("slug must not exceed %d characters", MaxSlugLen)
	}

	if !SlugPattern.MatchString(slug) {
		return fmt.Errorf("slug can only contain lowercase letters (a-z), numbers (0-9), and hyphens (-)")
	}

	return nil
}

// ValidateDifficulty проверяет, что оценка сложности находится в шкале 1-5
func ValidateDifficulty(difficulty int) error {
	if difficulty < 1 || difficulty > 5 {
		return fmt.Errorf("difficulty must be between 1 and 5, got %d", difficulty)
	}
	return nil
}
