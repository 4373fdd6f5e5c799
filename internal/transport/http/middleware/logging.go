package middleware

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/fraternet/notify-service/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id) и пишет итоговую запись msg="http".
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get("X-Request-Id"); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			ctx := logctx.Into(r.Context(), reqLogger)
			r = r.WithContext(ctx)

			rw := wrap(w)
			start := time.Now()
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if rw.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logctx.From(ctx).LogAttrs(ctx, level, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", rw.bytes),
			)
		})
	}
}
