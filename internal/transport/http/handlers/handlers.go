package handlers

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/fraternet/notify-service/internal/triggers"
)

// maxBodyBytes: предел тела push-запроса. Документы users/posts/events заметно меньше.
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости HTTP-эндпоинтов.
type Handlers struct {
	handle triggers.Handler
	ready  *atomic.Bool
}

// New создаёт обработчики. ready - флаг готовности для /healthz, nil означает «всегда готов».
func New(h triggers.Handler, ready *atomic.Bool) *Handlers {
	if ready == nil {
		ready = &atomic.Bool{}
		ready.Store(true)
	}

	return &Handlers{handle: h, ready: ready}
}

// writeJSON: единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
