package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/probtrack/internal/client/storage"
)

// Фиксированные ключи записи токена. Раздельные ключи, а не один JSON
// blob: фоновый контекст проверяет наличие и срок действия токена
// дешевым чтением двух ключей, не разбирая всю запись.
var (
	keyToken          = []byte("token")
	keyTokenExpiresAt = []byte("token_expires_at")
	keyRefreshToken   = []byte("refresh_token")
	keyAuthUserID     = []byte("user_id")
	keyAuthUsername   = []byte("username")
)

// SaveAuth stores the token record, overwriting any previous one
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		expiresAt := make([]byte, 8)
		binary.BigEndian.PutUint64(expiresAt, uint64(auth.TokenExpiresAt.Unix()))

		pairs := map[string][]byte{
			string(keyToken):          []byte(auth.Token),
			string(keyTokenExpiresAt): expiresAt,
			string(keyRefreshToken):   []byte(auth.RefreshToken),
			string(keyAuthUserID):     []byte(auth.UserID),
			string(keyAuthUsername):   []byte(auth.Username),
		}

		for k, v := range pairs {
			if err := bucket.Put([]byte(k), v); err != nil {
				return fmt.Errorf("failed to save auth key %s: %w", k, err)
			}
		}

		return nil
	})
}

// GetAuth retrieves the stored token record
// Returns storage.ErrTokenNotFound if nothing is stored
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		token := bucket.Get(keyToken)
		if token == nil {
			return storage.ErrTokenNotFound
		}

		auth = &storage.AuthData{
			Token:        string(token),
			RefreshToken: string(bucket.Get(keyRefreshToken)),
			UserID:       string(bucket.Get(keyAuthUserID)),
			Username:     string(bucket.Get(keyAuthUsername)),
		}

		if raw := bucket.Get(keyTokenExpiresAt); len(raw) == 8 {
			auth.TokenExpiresAt = time.Unix(int64(binary.BigEndian.Uint64(raw)), 0)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return auth, nil
}

// DeleteAuth removes the token record in full (sign-out).
// Удаление при отсутствии записи не является ошибкой - logout должен
// быть идемпотентным.
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		for _, key := range [][]byte{keyToken, keyTokenExpiresAt, keyRefreshToken, keyAuthUserID, keyAuthUsername} {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete auth key %s: %w", key, err)
			}
		}

		return nil
	})
}
