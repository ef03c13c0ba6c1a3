// Package conflict реализует политику разрешения конфликтов синхронизации.
//
// Конфликт возникает, когда сервер сообщает, что сущность была изменена
// более поздней записью, чем timestamp операции клиента. Структурные поля
// (статус решения, дата повторения, сложность, паттерн) разрешаются
// автоматически по правилу Last-Write-Wins. Содержательные поля (заметки,
// тело пользовательской задачи, значения настроек) никогда не мержатся
// автоматически — такие расхождения эскалируются пользователю.
package conflict

import (
	"github.com/iudanet/probtrack/internal/models"
)

// Resolution результат применения политики к конфликту
type Resolution string

const (
	// ResolutionRemoteWins серверная версия новее, операция отбрасывается
	ResolutionRemoteWins Resolution = "remote-wins"
	// ResolutionLocalWins локальная операция новее, отправляется повторно
	ResolutionLocalWins Resolution = "local-wins"
	// ResolutionManual расходятся содержательные поля, нужен пользователь
	ResolutionManual Resolution = "manual"
)

// структурные поля, безопасные для автоматического LWW
var structuralFields = map[string]bool{
	"solved":     true,
	"solved_at":  true,
	"review_at":  true,
	"difficulty": true,
	"pattern":    true,
	"title":      true,
}

// типы операций, всегда несущие содержательные данные
var contentOps = map[models.OpType]bool{
	models.OpAddNote:        true,
	models.OpUpdateSettings: true,
}

// Resolve применяет политику к конфликту между локальной операцией и
// серверной версией сущности.
//
// Правила:
//  1. Если операция несет содержательные данные (ADD_NOTE, UPDATE_SETTINGS)
//     или среди разошедшихся полей есть хоть одно нестуктурное — manual.
//  2. Иначе сравниваем timestamps: побеждает более поздняя запись
//     (при равенстве — серверная, она уже применена).
func Resolve(op *models.Operation, changedFields []string, remoteTimestamp int64) Resolution {
	if contentOps[op.Type] {
		return ResolutionManual
	}

	for _, field := range changedFields {
		if !structuralFields[field] {
			return ResolutionManual
		}
	}

	// Только структурные поля - решаем по LWW
	if op.Timestamp > remoteTimestamp {
		return ResolutionLocalWins
	}
	return ResolutionRemoteWins
}

// NewerThan сравнивает две версии по (timestamp, nodeID).
// При равных timestamps используется лексикографическое сравнение nodeID
// для детерминированного выбора победителя на всех клиентах.
func NewerThan(timestamp int64, nodeID string, otherTimestamp int64, otherNodeID string) bool {
	if timestamp != otherTimestamp {
		return timestamp > otherTimestamp
	}
	return nodeID > otherNodeID
}
