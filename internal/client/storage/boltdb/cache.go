package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/probtrack/internal/client/storage"
)

// createTierBuckets создает вложенные buckets для всех cache tiers
func createTierBuckets(cache *bbolt.Bucket) error {
	for _, tier := range storage.Tiers {
		if _, err := cache.CreateBucketIfNotExists([]byte(tier)); err != nil {
			return fmt.Errorf("failed to create tier bucket %s: %w", tier, err)
		}
	}
	return nil
}

// tierBucket возвращает bucket конкретного tier
func tierBucket(tx *bbolt.Tx, tier storage.Tier) (*bbolt.Bucket, error) {
	cache := tx.Bucket(bucketCache)
	if cache == nil {
		return nil, fmt.Errorf("cache bucket not found")
	}

	bucket := cache.Bucket([]byte(tier))
	if bucket == nil {
		return nil, storage.ErrTierNotFound
	}

	return bucket, nil
}

// HasEntry reports whether key exists in the tier
func (s *Storage) HasEntry(ctx context.Context, tier storage.Tier, key string) (bool, error) {
	exists := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}
		exists = bucket.Get([]byte(key)) != nil
		return nil
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

// GetEntry retrieves an entry; storage.ErrEntryNotFound if absent
func (s *Storage) GetEntry(ctx context.Context, tier storage.Tier, key string) (*storage.CacheEntry, error) {
	var entry *storage.CacheEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrEntryNotFound
		}

		entry = &storage.CacheEntry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("failed to unmarshal cache entry: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entry, nil
}

// PutEntry stores an entry, overwriting any previous one
func (s *Storage) PutEntry(ctx context.Context, tier storage.Tier, key string, entry *storage.CacheEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}

		if err := bucket.Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to save cache entry: %w", err)
		}

		return nil
	})
}

// EvictEntry removes a single entry; evicting an absent key is not an error
func (s *Storage) EvictEntry(ctx context.Context, tier storage.Tier, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(key))
	})
}

// EvictPrefix removes every entry whose key starts with prefix
func (s *Storage) EvictPrefix(ctx context.Context, tier storage.Tier, prefix string) (int, error) {
	count := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}

		// Собираем ключи до удаления, чтобы не мутировать под cursor
		var keys [][]byte
		cursor := bucket.Cursor()
		p := []byte(prefix)
		for k, _ := cursor.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = cursor.Next() {
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			keys = append(keys, keyCopy)
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to evict entry: %w", err)
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

// ClearAllTiers removes every tier atomically in one transaction.
// Для наблюдателя нет окна, в котором часть tiers очищена, а часть нет.
func (s *Storage) ClearAllTiers(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		cache := tx.Bucket(bucketCache)
		if cache == nil {
			return fmt.Errorf("cache bucket not found")
		}

		for _, tier := range storage.Tiers {
			if err := cache.DeleteBucket([]byte(tier)); err != nil {
				return fmt.Errorf("failed to drop tier %s: %w", tier, err)
			}
		}

		return createTierBuckets(cache)
	})
}

// CountEntries returns the number of entries in the tier
func (s *Storage) CountEntries(ctx context.Context, tier storage.Tier) (int, error) {
	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := tierBucket(tx, tier)
		if err != nil {
			return err
		}
		count = bucket.Stats().KeyN
		return nil
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}
