// Package auth реализует Auth Token Bridge: запись токена сессии
// в durable хранилище, доступное фоновому контексту. Фоновый контекст
// не может читать in-memory состояние foreground, поэтому токен всегда
// читается из хранилища под фиксированными ключами.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	httpClient "github.com/iudanet/probtrack/internal/client/api"
	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/pkg/api"
)

// ErrAuthRequired отсутствующий или истекший токен.
// Фоновый контекст трактует это как "нужна аутентификация",
// никогда как сетевую ошибку.
var ErrAuthRequired = errors.New("authentication required")

//go:generate go tool moq -out bridge_mock.go . Bridge

// Bridge определяет интерфейс токенного моста между контекстами
type Bridge interface {
	// Login выполняет аутентификацию и сохраняет запись токена
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)

	// Token возвращает действующий access token.
	// Истекший токен прозрачно обновляется по refresh token;
	// при невозможности - ErrAuthRequired.
	Token(ctx context.Context) (string, error)

	// Clear полностью удаляет запись токена (sign-out).
	// Идемпотентен: очистка пустого хранилища не является ошибкой.
	Clear(ctx context.Context) error

	// IsAuthenticated проверяет наличие неистекшего токена
	IsAuthenticated(ctx context.Context) (bool, error)

	// Current возвращает сохраненную запись токена без проверок срока
	Current(ctx context.Context) (*storage.AuthData, error)
}

// Service implements Bridge over the shared token store
type Service struct {
	apiClient httpClient.ClientAPI
	storage   storage.AuthStorage
	logger    *slog.Logger
}

// Compile-time check that Service implements Bridge
var _ Bridge = (*Service)(nil)

// NewService creates a new token bridge service
func NewService(apiClient httpClient.ClientAPI, authStorage storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		storage:   authStorage,
		logger:    logger,
	}
}

// Login выполняет аутентификацию и сохраняет запись токена
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	resp, err := s.apiClient.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	auth := &storage.AuthData{
		Token:          resp.AccessToken,
		TokenExpiresAt: expiresAt(resp),
		RefreshToken:   resp.RefreshToken,
		UserID:         resp.UserID,
		Username:       username,
	}

	if err := s.storage.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Info("Signed in", "username", username, "expires_at", auth.TokenExpiresAt)
	return auth, nil
}

// Token возвращает действующий access token
func (s *Service) Token(ctx context.Context) (string, error) {
	auth, err := s.storage.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return "", ErrAuthRequired
		}
		return "", fmt.Errorf("failed to read auth data: %w", err)
	}

	if time.Now().Before(auth.TokenExpiresAt) {
		return auth.Token, nil
	}

	// Токен истек - пробуем обновить по refresh token
	if auth.RefreshToken == "" {
		return "", ErrAuthRequired
	}

	refreshed, err := s.refresh(ctx, auth)
	if err != nil {
		return "", err
	}

	return refreshed.Token, nil
}

// refresh обновляет access token и перезаписывает запись в хранилище
func (s *Service) refresh(ctx context.Context, auth *storage.AuthData) (*storage.AuthData, error) {
	resp, err := s.apiClient.Refresh(ctx, api.RefreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		if errors.Is(err, httpClient.ErrUnauthorized) {
			// Refresh token тоже недействителен
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	updated := &storage.AuthData{
		Token:          resp.AccessToken,
		TokenExpiresAt: expiresAt(resp),
		RefreshToken:   resp.RefreshToken,
		UserID:         auth.UserID,
		Username:       auth.Username,
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = auth.RefreshToken
	}

	if err := s.storage.SaveAuth(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save refreshed auth data: %w", err)
	}

	s.logger.Debug("Access token refreshed", "expires_at", updated.TokenExpiresAt)
	return updated, nil
}

// Clear полностью удаляет запись токена
func (s *Service) Clear(ctx context.Context) error {
	if err := s.storage.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}
	return nil
}

// IsAuthenticated проверяет наличие неистекшего токена
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	auth, err := s.storage.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}

	return time.Now().Before(auth.TokenExpiresAt), nil
}

// Current возвращает сохраненную запись токена без проверок срока
func (s *Service) Current(ctx context.Context) (*storage.AuthData, error) {
	return s.storage.GetAuth(ctx)
}

// expiresAt вычисляет срок действия access token.
// Приоритет: expires_in из ответа, затем exp claim из самого JWT.
// Подпись не проверяется - клиент не владеет ключом сервера, срок
// действия нужен только для локального планирования refresh.
func expiresAt(resp *api.TokenResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	// Без информации о сроке считаем токен короткоживущим
	return time.Now().Add(15 * time.Minute)
}
