package models

import "time"

// Problem представляет локальную проекцию состояния одной задачи.
// Проекция обновляется синхронно при постановке операции в очередь
// (оптимистичное обновление) и корректируется только через явный
// rollback при окончательном отказе сервера.
type Problem struct {
	UpdatedAt  time.Time `json:"updated_at"`
	SolvedAt   time.Time `json:"solved_at,omitzero"`
	ReviewAt   time.Time `json:"review_at,omitzero"`
	Slug       string    `json:"slug"`    // уникальный идентификатор задачи, например "two-sum"
	Title      string    `json:"title,omitempty"`
	Pattern    string    `json:"pattern,omitempty"` // алгоритмический паттерн задачи
	Notes      string    `json:"notes,omitempty"`
	Difficulty int       `json:"difficulty,omitempty"` // субъективная сложность 1-5
	Solved     bool      `json:"solved"`
	Custom     bool      `json:"custom"` // true для задач, добавленных пользователем
}

// UserType тип пользователя в локальной сессии
type UserType string

const (
	UserTypeLocal    UserType = "local"     // работает только с локальными данными
	UserTypeSignedIn UserType = "signed-in" // синхронизируется с сервером
)

// Session локальные идентификационные данные (отдельно от токенов)
type Session struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	NodeID   string   `json:"node_id"` // идентификатор этого клиента
	UserType UserType `json:"user_type"`
}
