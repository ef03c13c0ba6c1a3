// Package cache реализует менеджер tier-ов кеша поверх устойчивого
// хранилища. Каждый tier несет свою политику свежести; менеджер кодирует
// политики, хранилище остается тупым KV.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/crypto"
)

// Capability отчет о способности работать offline
type Capability struct {
	BundleDownloadedAt time.Time      `json:"bundle_downloaded_at,omitzero"`
	TierCounts         map[string]int `json:"tier_counts"`
	BundleVersion      int64          `json:"bundle_version"`
	HasBundle          bool           `json:"has_bundle"`
}

// Manager управляет tier-ами кеша
type Manager struct {
	storage  storage.CacheStorage
	metadata storage.MetadataStorage
	logger   *slog.Logger
}

// NewManager создает менеджер tier-ов кеша
func NewManager(cacheStorage storage.CacheStorage, metadata storage.MetadataStorage, logger *slog.Logger) *Manager {
	return &Manager{
		storage:  cacheStorage,
		metadata: metadata,
		logger:   logger,
	}
}

// Has проверяет наличие записи в tier
func (m *Manager) Has(ctx context.Context, tier storage.Tier, key string) (bool, error) {
	if !storage.KnownTier(tier) {
		return false, fmt.Errorf("%w: %s", storage.ErrTierNotFound, tier)
	}
	return m.storage.HasEntry(ctx, tier, key)
}

// Get возвращает запись из tier; storage.ErrEntryNotFound при отсутствии
func (m *Manager) Get(ctx context.Context, tier storage.Tier, key string) (*storage.CacheEntry, error) {
	if !storage.KnownTier(tier) {
		return nil, fmt.Errorf("%w: %s", storage.ErrTierNotFound, tier)
	}
	return m.storage.GetEntry(ctx, tier, key)
}

// Put сохраняет содержимое в tier. Хеш считается здесь, чтобы
// вызывающий код не мог положить запись с расходящимся хешем.
func (m *Manager) Put(ctx context.Context, tier storage.Tier, key string, content []byte) error {
	if !storage.KnownTier(tier) {
		return fmt.Errorf("%w: %s", storage.ErrTierNotFound, tier)
	}
	entry := &storage.CacheEntry{
		Content:  content,
		StoredAt: time.Now(),
		Hash:     crypto.ContentHash(content),
	}
	return m.storage.PutEntry(ctx, tier, key, entry)
}

// Evict удаляет одну запись; отсутствие записи не ошибка
func (m *Manager) Evict(ctx context.Context, tier storage.Tier, key string) error {
	if !storage.KnownTier(tier) {
		return fmt.Errorf("%w: %s", storage.ErrTierNotFound, tier)
	}
	return m.storage.EvictEntry(ctx, tier, key)
}

// GetContent отдает контент задачи или паттерна. Источника два:
// tier живого контента и tier извлеченного bundle; побеждает более
// свежая запись.
func (m *Manager) GetContent(ctx context.Context, key string) (*storage.CacheEntry, error) {
	content, contentErr := m.storage.GetEntry(ctx, storage.TierContent, key)
	if contentErr != nil && !errors.Is(contentErr, storage.ErrEntryNotFound) {
		return nil, contentErr
	}

	bundled, bundleErr := m.storage.GetEntry(ctx, storage.TierBundle, key)
	if bundleErr != nil && !errors.Is(bundleErr, storage.ErrEntryNotFound) {
		return nil, bundleErr
	}

	switch {
	case content != nil && bundled != nil:
		if bundled.StoredAt.After(content.StoredAt) {
			return bundled, nil
		}
		return content, nil
	case content != nil:
		return content, nil
	case bundled != nil:
		return bundled, nil
	default:
		return nil, storage.ErrEntryNotFound
	}
}

// InvalidateResource вытесняет кешированные ответы API для сущности.
// Координатор вызывает после каждого подтвержденного commit: следующее
// чтение того же ресурса пойдет на сервер.
func (m *Manager) InvalidateResource(ctx context.Context, entityID string) error {
	n, err := m.storage.EvictPrefix(ctx, storage.TierAPIResponses, entityID)
	if err != nil {
		return fmt.Errorf("failed to invalidate api responses for %q: %w", entityID, err)
	}
	if n > 0 {
		m.logger.Debug("Cached responses invalidated", "entity_id", entityID, "count", n)
	}
	return nil
}

// ClearAll атомарно очищает все tier-ы в одной транзакции:
// наблюдатель видит либо все записи, либо ни одной
func (m *Manager) ClearAll(ctx context.Context) error {
	if err := m.storage.ClearAllTiers(ctx); err != nil {
		return fmt.Errorf("failed to clear cache tiers: %w", err)
	}
	m.logger.Info("All cache tiers cleared")
	return nil
}

// CanServeOffline проверяет, обслужится ли запрошенный ключ без сети
func (m *Manager) CanServeOffline(ctx context.Context, key string) (bool, error) {
	for _, tier := range []storage.Tier{storage.TierStatic, storage.TierContent, storage.TierAPIResponses, storage.TierBundle} {
		ok, err := m.storage.HasEntry(ctx, tier, key)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Capability собирает отчет о готовности к offline работе
func (m *Manager) Capability(ctx context.Context) (*Capability, error) {
	report := &Capability{
		TierCounts: make(map[string]int, len(storage.Tiers)),
	}

	for _, tier := range storage.Tiers {
		n, err := m.storage.CountEntries(ctx, tier)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s entries: %w", tier, err)
		}
		report.TierCounts[string(tier)] = n
	}

	state, err := m.metadata.GetBundleState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle state: %w", err)
	}
	if state.Status == "complete" {
		report.HasBundle = true
		report.BundleVersion = state.Version
		report.BundleDownloadedAt = state.DownloadedAt
	}
	return report, nil
}
