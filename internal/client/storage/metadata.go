package storage

import (
	"context"
	"time"

	"github.com/iudanet/probtrack/internal/models"
)

// BundleState сохраненное состояние последней загрузки bundle.
// Переживает перезапуск, чтобы Status() отвечал без повторной загрузки.
type BundleState struct {
	DownloadedAt   time.Time `json:"downloaded_at,omitzero"`
	Status         string    `json:"status"` // idle|downloading|extracting|complete|error
	LastError      string    `json:"last_error,omitempty"`
	Version        int64     `json:"version"`
	TotalFiles     int       `json:"total_files"`
	ExtractedFiles int       `json:"extracted_files"`
}

// MetadataStorage defines the local key-value area: sync bookkeeping,
// session identity fields and bundle download state. Kept separate from
// the token store (AuthStorage).
type MetadataStorage interface {
	// SaveLastSyncAt saves the time of the last clean drain pass
	SaveLastSyncAt(ctx context.Context, t time.Time) error

	// GetLastSyncAt returns zero time if no sync has completed yet
	GetLastSyncAt(ctx context.Context) (time.Time, error)

	// SaveSession stores local session identity fields
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession returns the stored session; a default local session
	// (generated node id, UserTypeLocal) is created on first access
	GetSession(ctx context.Context) (*models.Session, error)

	// DeleteSession clears identity fields (keeps node id)
	DeleteSession(ctx context.Context) error

	// SaveBundleState persists bundle download state
	SaveBundleState(ctx context.Context, state *BundleState) error

	// GetBundleState returns the stored state, or an idle zero state
	GetBundleState(ctx context.Context) (*BundleState, error)
}
