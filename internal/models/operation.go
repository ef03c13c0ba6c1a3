package models

import (
	"encoding/json"
	"time"
)

// OpType тип мутации в очереди операций
type OpType string

// Закрытый набор типов операций. Операция с типом вне этого набора
// отклоняется на границе Control Protocol.
const (
	OpMarkSolved       OpType = "MARK_SOLVED"
	OpUpdateReviewDate OpType = "UPDATE_REVIEW_DATE"
	OpUpdateDifficulty OpType = "UPDATE_DIFFICULTY"
	OpAddNote          OpType = "ADD_NOTE"
	OpAddCustomProblem OpType = "ADD_CUSTOM_PROBLEM"
	OpDeleteProblem    OpType = "DELETE_PROBLEM"
	OpUpdateSettings   OpType = "UPDATE_SETTINGS"
)

// KnownOpType проверяет, входит ли тип в закрытый набор
func KnownOpType(t string) bool {
	switch OpType(t) {
	case OpMarkSolved, OpUpdateReviewDate, OpUpdateDifficulty,
		OpAddNote, OpAddCustomProblem, OpDeleteProblem, OpUpdateSettings:
		return true
	}
	return false
}

// OpStatus статус операции в очереди
type OpStatus string

const (
	StatusPending    OpStatus = "pending"     // ожидает отправки
	StatusInFlight   OpStatus = "in-flight"   // взята в текущий drain pass
	StatusCommitted  OpStatus = "committed"   // подтверждена сервером
	StatusFailed     OpStatus = "failed"      // последняя попытка завершилась ошибкой
	StatusDeadLetter OpStatus = "dead-letter" // исчерпала retry, требует внимания пользователя
)

// Operation представляет одну отложенную мутацию пользователя.
// Операция удаляется из очереди только после подтверждения сервером,
// никогда оптимистично.
type Operation struct {
	CreatedAt   time.Time       `json:"created_at"`             // время постановки в очередь
	AttemptedAt time.Time       `json:"attempted_at,omitzero"`  // время последней попытки отправки
	ID          string          `json:"id"`                     // UUID, присваивается при enqueue если не задан
	Type        OpType          `json:"type"`                   // тип мутации
	EntityID    string          `json:"entity_id"`              // slug задачи или "settings"
	Status      OpStatus        `json:"status"`                 // текущий статус
	LastError   string          `json:"last_error,omitempty"`   // текст последней ошибки
	DeadReason  string          `json:"dead_reason,omitempty"`  // причина попадания в dead-letter
	Payload     json.RawMessage `json:"payload"`                // данные, специфичные для типа
	Timestamp   int64           `json:"timestamp"`              // unix millis, порядок и LWW tie-break
	RetryCount  int             `json:"retry_count"`            // количество неудачных попыток
}

// Clone создает глубокую копию операции
func (o *Operation) Clone() *Operation {
	cp := *o
	cp.Payload = make(json.RawMessage, len(o.Payload))
	copy(cp.Payload, o.Payload)
	return &cp
}

// MarkSolvedPayload полезная нагрузка MARK_SOLVED
type MarkSolvedPayload struct {
	Slug     string `json:"slug"`
	Solved   bool   `json:"solved"`
	SolvedAt int64  `json:"solved_at,omitempty"`
}

// UpdateReviewDatePayload полезная нагрузка UPDATE_REVIEW_DATE
type UpdateReviewDatePayload struct {
	Slug     string `json:"slug"`
	ReviewAt int64  `json:"review_at"`
}

// UpdateDifficultyPayload полезная нагрузка UPDATE_DIFFICULTY
type UpdateDifficultyPayload struct {
	Slug       string `json:"slug"`
	Difficulty int    `json:"difficulty"`
}

// AddNotePayload полезная нагрузка ADD_NOTE
type AddNotePayload struct {
	Slug string `json:"slug"`
	Note string `json:"note"`
}

// AddCustomProblemPayload полезная нагрузка ADD_CUSTOM_PROBLEM
type AddCustomProblemPayload struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Pattern    string `json:"pattern,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

// DeleteProblemPayload полезная нагрузка DELETE_PROBLEM
type DeleteProblemPayload struct {
	Slug string `json:"slug"`
}

// UpdateSettingsPayload полезная нагрузка UPDATE_SETTINGS
type UpdateSettingsPayload struct {
	Settings map[string]string `json:"settings"`
}
