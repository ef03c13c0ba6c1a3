package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iudanet/probtrack/pkg/api"
)

// Классификация ответов сервера. Sync Coordinator различает только этот
// фиксированный набор: 401 останавливает drain, 409 включает политику
// конфликтов, 5xx и сетевые ошибки ретраятся, остальные 4xx фатальны.
var (
	// ErrUnauthorized сервер отклонил токен (401)
	ErrUnauthorized = errors.New("authentication required")

	// ErrNotFound данных нет (404)
	ErrNotFound = errors.New("not found")
)

// ConflictError возвращается на 409: сущность изменена более поздней
// записью, чем timestamp операции клиента
type ConflictError struct {
	Response *api.ConflictResponse
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: entity modified at %d, changed fields %v",
		e.Response.RemoteTimestamp, e.Response.ChangedFields)
}

// StatusError любой другой неуспешный HTTP статус
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// IsTransient сообщает, стоит ли повторять запрос.
// Transient: сетевые ошибки (не доехали до сервера) и 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}

	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return false
	}

	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return false
	}

	// Ошибка без HTTP статуса - сетевая, повторяем
	return true
}
