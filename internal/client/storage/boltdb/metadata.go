package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

const (
	keyLastSyncAt  = "last_sync_at"
	keySession     = "session"
	keyBundleState = "bundle_state"
	keySettings    = "settings"
)

// SaveLastSyncAt saves the time of the last clean drain pass
func (s *Storage) SaveLastSyncAt(ctx context.Context, t time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем unix seconds в bytes
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, uint64(t.Unix()))

		if err := bucket.Put([]byte(keyLastSyncAt), raw); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}

		return nil
	})
}

// GetLastSyncAt returns zero time if no sync has completed yet
func (s *Storage) GetLastSyncAt(ctx context.Context) (time.Time, error) {
	var t time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		raw := bucket.Get([]byte(keyLastSyncAt))
		if len(raw) != 8 {
			// Синхронизация еще не выполнялась
			return nil
		}

		t = time.Unix(int64(binary.BigEndian.Uint64(raw)), 0)
		return nil
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return t, nil
}

// SaveSession stores local session identity fields
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := bucket.Put([]byte(keySession), data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		return nil
	})
}

// GetSession returns the stored session. На первом обращении создается
// локальная сессия с новым node id - клиент работает offline-first
// и до sign-in остается типом "local".
func (s *Storage) GetSession(ctx context.Context) (*models.Session, error) {
	var session *models.Session

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keySession))
		if data != nil {
			session = &models.Session{}
			if err := json.Unmarshal(data, session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			return nil
		}

		// Первый запуск - генерируем node id
		session = &models.Session{
			NodeID:   uuid.New().String(),
			UserType: models.UserTypeLocal,
		}

		created, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		if err := bucket.Put([]byte(keySession), created); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession clears identity fields but keeps the node id
func (s *Storage) DeleteSession(ctx context.Context) error {
	session, err := s.GetSession(ctx)
	if err != nil {
		return err
	}

	session.UserID = ""
	session.Username = ""
	session.UserType = models.UserTypeLocal

	return s.SaveSession(ctx, session)
}

// SaveBundleState persists bundle download state
func (s *Storage) SaveBundleState(ctx context.Context, state *storage.BundleState) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal bundle state: %w", err)
		}

		if err := bucket.Put([]byte(keyBundleState), data); err != nil {
			return fmt.Errorf("failed to save bundle state: %w", err)
		}

		return nil
	})
}

// GetBundleState returns the stored state, or an idle zero state
func (s *Storage) GetBundleState(ctx context.Context) (*storage.BundleState, error) {
	state := &storage.BundleState{Status: "idle"}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keyBundleState))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal bundle state: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}
