package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketAuth       = []byte("auth")
	bucketQueue      = []byte("queue")
	bucketQueueIndex = []byte("queue_index")
	bucketDeadLetter = []byte("dead_letter")
	bucketCache      = []byte("cache")
	bucketMetadata   = []byte("metadata")
	bucketProblems   = []byte("problems")
)

// Storage represents BoltDB storage implementation for client.
// A single bolt file backs every durable concern: operation queue,
// cache tiers, token record, metadata/session and the local projection.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketAuth,
			bucketQueue,
			bucketQueueIndex,
			bucketDeadLetter,
			bucketMetadata,
			bucketProblems,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		// Cache tiers живут вложенными buckets внутри родительского cache
		cache, err := tx.CreateBucketIfNotExists(bucketCache)
		if err != nil {
			return fmt.Errorf("failed to create cache bucket: %w", err)
		}
		return createTierBuckets(cache)
	})
}
