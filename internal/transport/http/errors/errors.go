// errors стандартизирует ответы об ошибках HTTP-слоя notify-service.
// На вход принимает ошибку обработки изменения, на выход даёт HTTP-статус
// и краткое безопасное message без утечки деталей.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fraternet/notify-service/internal/triggers"
)

// ErrUnauthenticated: нет или неверный Bearer-токен на push-эндпоинте.
var ErrUnauthenticated = errors.New("unauthenticated")

// APIError: единый формат ошибки.
// Code - короткий стабильный код, Message - безопасное описание,
// RequestID: из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse: корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа:
//   - ErrBadChange -> 400 invalid_argument;
//   - ErrUnauthenticated -> 401 unauthenticated;
//   - nil и всё остальное -> 500 internal.
func ToHTTP(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, triggers.ErrBadChange):
		return http.StatusBadRequest, ErrorResponse{Error: APIError{
			Code:    "invalid_argument",
			Message: "invalid change payload",
		}}
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: APIError{
			Code:    "unauthenticated",
			Message: "unauthenticated",
		}}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: APIError{
			Code:    "internal",
			Message: "internal error",
		}}
	}
}

// WriteError пишет статус и тело ошибки, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
