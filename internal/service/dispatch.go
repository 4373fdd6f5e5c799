package service

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/pkg/log"
	"github.com/fraternet/notify-service/pkg/redact"
)

// send отправляет одно сообщение. Ошибка логируется со стеком и не возвращается.
func (s *Service) send(ctx context.Context, msg messaging.Message) {
	const op = "service/dispatch/send"

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("kind", string(msg.Kind)),
	)

	id, err := s.gateway.Send(ctx, msg)
	if err != nil {
		lg.Error("push dispatch failed",
			slog.String("err", err.Error()),
			slog.String("stack", string(debug.Stack())),
		)
		return
	}

	lg.Info("push sent", slog.String("message_id", id))
}

// multicast отправляет одно уведомление на набор токенов одним пакетным вызовом.
func (s *Service) multicast(ctx context.Context, msg messaging.MulticastMessage) {
	const op = "service/dispatch/multicast"

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("kind", string(msg.Kind)),
		slog.Int("tokens", len(msg.Tokens)),
	)

	res, err := s.gateway.SendMulticast(ctx, msg)
	if err != nil {
		attrs := []any{
			slog.String("err", err.Error()),
			slog.String("stack", string(debug.Stack())),
		}
		// Шлюз мог успеть отправить первые пачки до ошибки.
		if res != nil {
			attrs = append(attrs,
				slog.Int("success", res.SuccessCount),
				slog.Int("failure", res.FailureCount),
				slog.Any("failed_tokens", redact.Tokens(res.FailedTokens)),
			)
		}
		lg.Error("push multicast failed", attrs...)
		return
	}

	if res == nil {
		res = &messaging.BatchResult{}
	}

	if res.FailureCount > 0 {
		lg.Warn("push multicast partially failed",
			slog.Int("success", res.SuccessCount),
			slog.Int("failure", res.FailureCount),
			slog.Any("failed_tokens", redact.Tokens(res.FailedTokens)),
		)
		return
	}

	lg.Info("push multicast sent", slog.Int("success", res.SuccessCount))
}
