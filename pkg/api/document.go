package api

import "encoding/json"

// PushOperationRequest представляет одну мутацию, отправляемую на сервер.
// Сервер дедуплицирует операции по ID, поэтому повторная отправка
// уже принятой операции безопасна.
type PushOperationRequest struct {
	ID        string          `json:"id"`        // UUID операции (присвоен клиентом)
	Type      string          `json:"type"`      // тип операции (MARK_SOLVED и т.д.)
	EntityID  string          `json:"entity_id"` // slug задачи или "settings"
	Payload   json.RawMessage `json:"payload"`   // данные, специфичные для типа
	Timestamp int64           `json:"timestamp"` // unix millis создания операции
}

// PushOperationResponse представляет ответ сервера на принятую операцию
type PushOperationResponse struct {
	Applied          bool  `json:"applied"`           // была ли операция применена
	CurrentTimestamp int64 `json:"current_timestamp"` // серверное время последней записи
}

// ConflictResponse возвращается со статусом 409, когда сущность была
// изменена более поздней записью, чем timestamp операции клиента.
type ConflictResponse struct {
	Entity          RemoteProblem `json:"entity"`           // актуальное состояние на сервере
	ChangedFields   []string      `json:"changed_fields"`   // поля, разошедшиеся с операцией
	RemoteTimestamp int64         `json:"remote_timestamp"` // unix millis серверной версии
}

// RemoteProblem представляет состояние одной задачи в документе пользователя
type RemoteProblem struct {
	Slug       string `json:"slug"`
	Title      string `json:"title,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
	Solved     bool   `json:"solved"`
	SolvedAt   int64  `json:"solved_at,omitempty"`
	ReviewAt   int64  `json:"review_at,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Custom     bool   `json:"custom,omitempty"`
	UpdatedAt  int64  `json:"updated_at"`
}

// DocumentResponse представляет полный документ пользователя
type DocumentResponse struct {
	Problems         map[string]RemoteProblem `json:"problems"`
	Settings         map[string]string        `json:"settings,omitempty"`
	CurrentTimestamp int64                    `json:"current_timestamp"`
}
