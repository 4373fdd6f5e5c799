package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/fraternet/notify-service/internal/triggers"
	apierrors "github.com/fraternet/notify-service/internal/transport/http/errors"
	logctx "github.com/fraternet/notify-service/pkg/log"
)

// Recover перехватывает panic HTTP-слоя (декодеры конвертов, обработчики) и отвечает
// 500/internal, если ответ ещё не начат. Детали паники клиенту не уходят.
// http.ErrAbortHandler пробрасывается дальше: это штатный обрыв ответа.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				route := r.URL.Path
				if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
					slog.String("method", r.Method),
					slog.String("route", route),
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if !rw.written() {
					apierrors.WriteError(rw, r, fmt.Errorf("%w: %v", triggers.ErrPanic, rec))
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
