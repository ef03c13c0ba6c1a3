package models

import "time"

// SyncState состояние Sync Coordinator
type SyncState string

const (
	SyncIdle         SyncState = "idle"
	SyncDraining     SyncState = "draining"
	SyncAuthRequired SyncState = "auth-required"
	SyncError        SyncState = "error"
)

// SyncStatus агрегированный статус синхронизации для UI.
// IsSyncing взаимоисключающе с Idle/Error: true только пока идет drain.
type SyncStatus struct {
	LastSyncAt      time.Time `json:"last_sync_at,omitzero"`
	State           SyncState `json:"state"`
	LastError       string    `json:"last_error,omitempty"`
	PendingCount    int       `json:"pending_count"`
	DeadLetterCount int       `json:"dead_letter_count"`
	IsSyncing       bool      `json:"is_syncing"`
}
