package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	logctx "github.com/fraternet/notify-service/pkg/log"
	"github.com/fraternet/notify-service/pkg/redact"
)

// LogGateway не доставляет уведомления, а пишет их в лог.
// Используется драйвером "log" для локальной разработки.
type LogGateway struct {
	limit int
	seq   atomic.Int64
}

// NewLogGateway создаёт шлюз-логгер; limit имитирует нативный лимит multicast.
func NewLogGateway(limit int) *LogGateway {
	return &LogGateway{limit: limit}
}

func (g *LogGateway) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := "log-" + strconv.FormatInt(g.seq.Add(1), 10)

	logctx.From(ctx).Info("push_send",
		slog.String("message_id", id),
		slog.String("kind", string(msg.Kind)),
		slog.String("token", redact.Token(msg.Token)),
		slog.String("topic", msg.Topic),
		slog.String("title", msg.Notification.Title),
		slog.String("body", msg.Notification.Body),
		slog.Any("data", msg.Data),
	)

	return id, nil
}

func (g *LogGateway) SendMulticast(ctx context.Context, msg MulticastMessage) (*BatchResult, error) {
	if len(msg.Tokens) == 0 {
		return nil, ErrNoRecipients
	}

	res := &BatchResult{}
	for i, batch := range Chunk(msg.Tokens, g.limit) {
		logctx.From(ctx).Info("push_multicast",
			slog.String("kind", string(msg.Kind)),
			slog.Int("batch", i),
			slog.Int("tokens", len(batch)),
			slog.String("title", msg.Notification.Title),
			slog.String("body", msg.Notification.Body),
			slog.Any("data", msg.Data),
		)
		res.SuccessCount += len(batch)
	}

	return res, nil
}
