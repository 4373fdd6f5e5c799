package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/fraternet/notify-service/pkg/log"
)

// Handler обрабатывает одно изменение документа.
type Handler func(ctx context.Context, ch Change) error

// Middleware оборачивает Handler (логирование, таймаут, дедупликация, метрики).
type Middleware func(Handler) Handler

// Chain применяет мидлвары к обработчику в порядке их перечисления.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover перехватывает panic обработчика, логирует её со стеком и возвращает ErrPanic.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ch Change) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.From(ctx).Error("panic_recovered",
						slog.String("collection", ch.Collection),
						slog.String("document_id", ch.DocumentID),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()

			return next(ctx, ch)
		}
	}
}

// Logging кладёт в контекст логгер изменения и пишет итоговую запись msg="change".
// Для изменения без ID в логах используется сгенерированный UUID, сам Change не меняется.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, ch Change) error {
			start := time.Now()

			changeID := ch.ID
			if changeID == "" {
				changeID = uuid.NewString()
			}

			l := base.With(
				slog.String("change_id", changeID),
				slog.String("source", ch.Source),
				slog.String("collection", ch.Collection),
				slog.String("kind", string(ch.Kind)),
				slog.String("document_id", ch.DocumentID),
			)
			ctx = log.Into(ctx, l)

			err := next(ctx, ch)

			attrs := []slog.Attr{
				slog.String("result", Result(err)),
				slog.Duration("dur", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			}

			l.LogAttrs(ctx, levelFor(err), "change", attrs...)

			return err
		}
	}
}

// Timeout навешивает дедлайн на обработку изменения, если его ещё нет.
// Значение <=0 делает мидлвар no-op.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		if d <= 0 {
			return next
		}

		return func(ctx context.Context, ch Change) error {
			if _, ok := ctx.Deadline(); ok {
				return next(ctx, ch)
			}

			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next(ctx, ch)
		}
	}
}

// Deduper запоминает уже обработанные изменения (реализует storage/redis.Dedup).
type Deduper interface {
	FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, id string) error
}

// forgetTimeout: время на снятие отметки после отмены контекста обработки.
const forgetTimeout = 2 * time.Second

// Dedup пропускает изменение, ID которого уже встречался в пределах ttl.
// Изменения без ID и ошибки хранилища отметок не блокируют обработку.
// Если контекст отменён до конца обработки, отметка снимается: повторная доставка
// (NATS nak при остановке) должна дойти до обработчика.
func Dedup(d Deduper, ttl time.Duration) Middleware {
	return func(next Handler) Handler {
		if d == nil {
			return next
		}

		return func(ctx context.Context, ch Change) error {
			if ch.ID == "" {
				return next(ctx, ch)
			}

			key := ch.Source + ":" + ch.ID

			first, err := d.FirstSeen(ctx, key, ttl)
			if err != nil {
				log.From(ctx).Warn("dedup unavailable, handling anyway", slog.String("err", err.Error()))
				return next(ctx, ch)
			}

			if !first {
				log.From(ctx).Info("duplicate change skipped")
				return nil
			}

			err = next(ctx, ch)
			if ctx.Err() != nil {
				fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forgetTimeout)
				defer cancel()

				if ferr := d.Forget(fctx, key); ferr != nil {
					log.From(ctx).Warn("dedup forget failed", slog.String("err", ferr.Error()))
				}
			}

			return err
		}
	}
}

// Result: короткая метка исхода обработки для логов и метрик.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadChange):
		return "bad_change"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

func levelFor(err error) slog.Level {
	switch Result(err) {
	case "ok":
		return slog.LevelInfo
	case "bad_change":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
