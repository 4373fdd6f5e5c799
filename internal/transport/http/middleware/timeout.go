package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/fraternet/notify-service/internal/transport/http/errors"
	logctx "github.com/fraternet/notify-service/pkg/log"
)

// Timeout ограничивает обработку изменения, пришедшего по HTTP.
// Дедлайн вызывающей стороны не продлевается. Если обработчик не успел ответить
// до дедлайна, клиент получает 500, чтобы мост триггеров повторил доставку.
// Значение <=0 делает мидлвар no-op.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			rw := wrap(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if rw.written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("change deadline exceeded without response",
				slog.String("path", r.URL.Path),
			)
			apierrors.WriteError(rw, r, ctx.Err())
		})
	}
}
