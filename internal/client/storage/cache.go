package storage

import (
	"context"
	"time"
)

// Tier именованный раздел кеша со своей политикой свежести
type Tier string

const (
	// TierStatic статические ассеты, write-once-per-deploy,
	// ключи включают content hash
	TierStatic Tier = "static-assets"
	// TierContent контент задач/паттернов, кешируется при первом
	// успешном fetch и не вытесняется (корпус ограничен)
	TierContent Tier = "content"
	// TierAPIResponses кеш ответов read-эндпоинтов, инвалидируется
	// при успешной записи того же ресурса
	TierAPIResponses Tier = "api-responses"
	// TierBundle файлы, извлеченные из offline bundle
	TierBundle Tier = "bundle"
)

// Tiers полный список tier-ов в фиксированном порядке
var Tiers = []Tier{TierStatic, TierContent, TierAPIResponses, TierBundle}

// KnownTier проверяет, что tier входит в фиксированный набор
func KnownTier(t Tier) bool {
	switch t {
	case TierStatic, TierContent, TierAPIResponses, TierBundle:
		return true
	}
	return false
}

// CacheEntry одна запись кеша
type CacheEntry struct {
	StoredAt time.Time `json:"stored_at"`
	Hash     string    `json:"hash,omitempty"` // blake2b content hash
	Content  []byte    `json:"content"`
}

// CacheStorage defines the durable store behind the Cache Tier Manager
type CacheStorage interface {
	// HasEntry reports whether key exists in the tier
	HasEntry(ctx context.Context, tier Tier, key string) (bool, error)

	// GetEntry retrieves an entry; ErrEntryNotFound if absent
	GetEntry(ctx context.Context, tier Tier, key string) (*CacheEntry, error)

	// PutEntry stores an entry, overwriting any previous one
	PutEntry(ctx context.Context, tier Tier, key string, entry *CacheEntry) error

	// EvictEntry removes a single entry; evicting an absent key is not an error
	EvictEntry(ctx context.Context, tier Tier, key string) error

	// EvictPrefix removes every entry whose key starts with prefix
	EvictPrefix(ctx context.Context, tier Tier, prefix string) (int, error)

	// ClearAllTiers removes every tier atomically in one transaction
	ClearAllTiers(ctx context.Context) error

	// CountEntries returns the number of entries in the tier
	CountEntries(ctx context.Context, tier Tier) (int, error)
}
