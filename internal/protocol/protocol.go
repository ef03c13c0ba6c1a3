// Package protocol определяет проводной формат границы управления:
// команды, приходящие агенту извне, и события, которые агент публикует
// подписчикам. Граница недоверенная: байты декодируются строго,
// неизвестный или искаженный ввод отклоняется целиком до любых действий.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/probtrack/internal/models"
)

// CommandType тип входящей команды
type CommandType string

// Закрытый набор команд. Имена команд и событий никогда не пересекаются.
const (
	CmdSyncOperations       CommandType = "SYNC_OPERATIONS"
	CmdForceSync            CommandType = "FORCE_SYNC"
	CmdGetSyncStatus        CommandType = "GET_SYNC_STATUS"
	CmdClearAllCaches       CommandType = "CLEAR_ALL_CACHES"
	CmdDownloadBundle       CommandType = "DOWNLOAD_BUNDLE"
	CmdGetBundleStatus      CommandType = "GET_BUNDLE_STATUS"
	CmdCheckOfflineReload   CommandType = "CHECK_OFFLINE_RELOAD"
	CmdGetOfflineCapability CommandType = "GET_OFFLINE_CAPABILITY"
)

// EventType тип исходящего события
type EventType string

const (
	EventSyncStatus          EventType = "SYNC_STATUS"
	EventSyncAuthRequired    EventType = "SYNC_AUTH_REQUIRED"
	EventSyncConflictManual  EventType = "SYNC_CONFLICT_REQUIRES_MANUAL"
	EventSyncDeadLetter      EventType = "SYNC_DEAD_LETTER"
	EventBundleProgress      EventType = "BUNDLE_PROGRESS"
	EventBundleComplete      EventType = "BUNDLE_COMPLETE"
	EventBundleError         EventType = "BUNDLE_ERROR"
	EventOfflineReloadStatus EventType = "OFFLINE_RELOAD_STATUS"
	EventOfflineCapability   EventType = "OFFLINE_CAPABILITY"
)

// ErrUnknownCommand команда с типом вне закрытого набора
var ErrUnknownCommand = errors.New("unknown command type")

// ErrMalformedCommand структурно некорректная команда
var ErrMalformedCommand = errors.New("malformed command")

// Command разобранная входящая команда
type Command struct {
	Type       CommandType         `json:"type"`
	Key        string              `json:"key,omitempty"`        // CHECK_OFFLINE_RELOAD
	Operations []*models.Operation `json:"operations,omitempty"` // SYNC_OPERATIONS
}

// Event исходящее событие для подписчиков
type Event struct {
	Payload any       `json:"payload,omitempty"`
	Type    EventType `json:"type"`
}

// knownCommand проверяет тип команды по закрытому набору
func knownCommand(t CommandType) bool {
	switch t {
	case CmdSyncOperations, CmdForceSync, CmdGetSyncStatus,
		CmdClearAllCaches, CmdDownloadBundle, CmdGetBundleStatus,
		CmdCheckOfflineReload, CmdGetOfflineCapability:
		return true
	}
	return false
}

// rawCommand промежуточная форма для структурной проверки элементов
// до привязки к типизированным структурам
type rawCommand struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	Operations []json.RawMessage `json:"operations"`
}

// rawOperation структурная форма элемента SYNC_OPERATIONS: тип должен
// быть известной строкой, timestamp числом
type rawOperation struct {
	Type      string          `json:"type"`
	EntityID  string          `json:"entity_id"`
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp json.Number     `json:"timestamp"`
}

// DecodeCommand строго разбирает байты команды. Любая ошибка означает,
// что команда не обработана даже частично.
func DecodeCommand(data []byte) (*Command, error) {
	var raw rawCommand
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	if raw.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedCommand)
	}
	if !knownCommand(CommandType(raw.Type)) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, raw.Type)
	}

	cmd := &Command{
		Type: CommandType(raw.Type),
		Key:  raw.Key,
	}

	if cmd.Type == CmdSyncOperations {
		ops, err := decodeOperations(raw.Operations)
		if err != nil {
			return nil, err
		}
		cmd.Operations = ops
	}
	return cmd, nil
}

// decodeOperations структурно проверяет каждый элемент; семантическая
// проверка полезной нагрузки остается за очередью
func decodeOperations(items []json.RawMessage) ([]*models.Operation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: SYNC_OPERATIONS without operations", ErrMalformedCommand)
	}

	ops := make([]*models.Operation, 0, len(items))
	for i, item := range items {
		var raw rawOperation
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", ErrMalformedCommand, i, err)
		}
		if !models.KnownOpType(raw.Type) {
			return nil, fmt.Errorf("%w: operation %d has unknown type %q", ErrMalformedCommand, i, raw.Type)
		}

		ts, err := raw.Timestamp.Int64()
		if raw.Timestamp == "" || err != nil {
			return nil, fmt.Errorf("%w: operation %d has non-numeric timestamp", ErrMalformedCommand, i)
		}

		ops = append(ops, &models.Operation{
			ID:        raw.ID,
			Type:      models.OpType(raw.Type),
			EntityID:  raw.EntityID,
			Payload:   raw.Payload,
			Timestamp: ts,
		})
	}
	return ops, nil
}

// EncodeEvent сериализует событие для подписчика
func EncodeEvent(event *Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return data, nil
}
