package storage

import (
	"context"
	"time"
)

// AuthData представляет сохраненную запись токена.
// Хранится в отдельном durable хранилище под фиксированными ключами,
// чтобы фоновый контекст мог читать её независимо от foreground.
type AuthData struct {
	TokenExpiresAt time.Time `json:"token_expires_at"`
	Token          string    `json:"token"`         // access token (Bearer)
	RefreshToken   string    `json:"refresh_token"` // опционален
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
}

//go:generate go tool moq -out auth_mock.go . AuthStorage

// AuthStorage defines interface for the shared token store.
// The background context treats a missing or expired record as
// "auth required", never as a network error.
type AuthStorage interface {
	// SaveAuth stores the token record, overwriting any previous one
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves the stored token record
	// Returns ErrTokenNotFound if nothing is stored
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes the token record in full (sign-out)
	// Deleting when nothing is stored is not an error
	DeleteAuth(ctx context.Context) error
}
