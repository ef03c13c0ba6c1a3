package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/models"
)

// SaveProblem stores or overwrites a problem state
func (s *Storage) SaveProblem(ctx context.Context, p *models.Problem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProblems)
		if bucket == nil {
			return fmt.Errorf("problems bucket not found")
		}

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal problem: %w", err)
		}

		if err := bucket.Put([]byte(p.Slug), data); err != nil {
			return fmt.Errorf("failed to save problem: %w", err)
		}

		return nil
	})
}

// GetProblem returns storage.ErrProblemNotFound if the slug is unknown
func (s *Storage) GetProblem(ctx context.Context, slug string) (*models.Problem, error) {
	var p *models.Problem

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProblems)
		if bucket == nil {
			return fmt.Errorf("problems bucket not found")
		}

		data := bucket.Get([]byte(slug))
		if data == nil {
			return storage.ErrProblemNotFound
		}

		p = &models.Problem{}
		if err := json.Unmarshal(data, p); err != nil {
			return fmt.Errorf("failed to unmarshal problem: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return p, nil
}

// DeleteProblem removes a problem from the projection
func (s *Storage) DeleteProblem(ctx context.Context, slug string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProblems)
		if bucket == nil {
			return fmt.Errorf("problems bucket not found")
		}

		if bucket.Get([]byte(slug)) == nil {
			return storage.ErrProblemNotFound
		}

		return bucket.Delete([]byte(slug))
	})
}

// ListProblems returns all problems sorted by slug
func (s *Storage) ListProblems(ctx context.Context) ([]*models.Problem, error) {
	var problems []*models.Problem

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProblems)
		if bucket == nil {
			return fmt.Errorf("problems bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			p := &models.Problem{}
			if err := json.Unmarshal(v, p); err != nil {
				return fmt.Errorf("failed to unmarshal problem: %w", err)
			}
			problems = append(problems, p)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	// Ключи bolt уже отсортированы, но сортируем явно для ясности контракта
	sort.Slice(problems, func(i, j int) bool { return problems[i].Slug < problems[j].Slug })
	return problems, nil
}

// SaveSettings stores the local settings map
func (s *Storage) SaveSettings(ctx context.Context, settings map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}

		if err := bucket.Put([]byte(keySettings), data); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}

		return nil
	})
}

// GetSettings returns an empty map if nothing is stored
func (s *Storage) GetSettings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keySettings))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("failed to unmarshal settings: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return settings, nil
}
