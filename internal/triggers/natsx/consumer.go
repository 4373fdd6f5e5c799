// Package natsx - источник изменений на JetStream. Мост из внешнего хранилища
// публикует JSON-конверты изменений в subject, сервис читает их durable push-подпиской.
package natsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/triggers"
)

// action: что сделать с сообщением после обработки.
type action int

const (
	actAck action = iota
	actNak
	actTerm
)

func (a action) String() string {
	switch a {
	case actAck:
		return "ack"
	case actNak:
		return "nak"
	default:
		return "term"
	}
}

// Consumer: durable push-подписка JetStream с ручным подтверждением.
type Consumer struct {
	cfg     config.NATSConfig
	nc      *nats.Conn
	js      nats.JetStreamContext
	handler triggers.Handler
	log     *slog.Logger
}

// New подключается к NATS и инициализирует JetStream-контекст.
func New(cfg config.NATSConfig, h triggers.Handler, log *slog.Logger) (*Consumer, error) {
	const op = "triggers/natsx/New"

	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("source", config.SourceNATS))

	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: empty nats url", op)
	}

	opts := []nats.Option{
		nats.Name("notify-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", slog.Any("err", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%s: jetstream: %w", op, err)
	}

	return &Consumer{cfg: cfg, nc: nc, js: js, handler: h, log: log}, nil
}

// Start подписывается на subject. ctx - контекст жизни сервиса, он же базовый для обработчика.
// Если задан Queue, несколько реплик делят сообщения между собой.
func (c *Consumer) Start(ctx context.Context) error {
	const op = "triggers/natsx/Start"

	opts := []nats.SubOpt{
		nats.ManualAck(),
		nats.AckWait(c.cfg.AckWait),
		nats.DeliverNew(),
	}
	if c.cfg.Durable != "" {
		opts = append(opts, nats.Durable(c.cfg.Durable))
	}

	cb := func(m *nats.Msg) {
		act := c.process(ctx, m.Data, m.Header, metadataID(m))

		var err error
		switch act {
		case actAck:
			err = m.Ack()
		case actNak:
			err = m.Nak()
		case actTerm:
			err = m.Term()
		}
		if err != nil {
			c.log.Warn("nats ack failed", slog.String("action", act.String()), slog.Any("err", err))
		}
	}

	var err error
	if c.cfg.Queue == "" {
		_, err = c.js.Subscribe(c.cfg.Subject, cb, opts...)
	} else {
		_, err = c.js.QueueSubscribe(c.cfg.Subject, c.cfg.Queue, cb, opts...)
	}
	if err != nil {
		return fmt.Errorf("%s: subscribe %s: %w", op, c.cfg.Subject, err)
	}

	c.log.Info("nats consumer started",
		slog.String("subject", c.cfg.Subject),
		slog.String("durable", c.cfg.Durable),
		slog.String("queue", c.cfg.Queue),
	)

	return nil
}

// process разбирает конверт и вызывает обработчик.
//   - битый конверт, ErrBadChange, panic: term (повтор не поможет);
//   - сервис останавливается: nak, сообщение получит другая реплика или следующий запуск;
//   - иначе ack: ошибки доставки push уже залогированы и не повторяются.
func (c *Consumer) process(ctx context.Context, data []byte, hdr nats.Header, fallbackID string) action {
	ch, err := triggers.DecodeEnvelope(data)
	if err != nil {
		c.log.Warn("nats envelope rejected", slog.Any("err", err))
		return actTerm
	}

	ch.Source = config.SourceNATS
	if ch.ID == "" {
		ch.ID = strings.TrimSpace(hdr.Get(nats.MsgIdHdr))
	}
	if ch.ID == "" {
		ch.ID = fallbackID
	}

	err = c.handler(ctx, ch)

	switch {
	case ctx.Err() != nil:
		return actNak
	case errors.Is(err, triggers.ErrBadChange), errors.Is(err, triggers.ErrPanic):
		return actTerm
	default:
		return actAck
	}
}

// metadataID: «stream:seq» из метаданных JetStream; для сообщений вне JetStream пусто.
func metadataID(m *nats.Msg) string {
	meta, err := m.Metadata()
	if err != nil || meta == nil {
		return ""
	}

	return meta.Stream + ":" + strconv.FormatUint(meta.Sequence.Stream, 10)
}

// Close закрывает соединение, дождавшись обработки полученных сообщений.
// Подписка не снимается явно: durable consumer остаётся на сервере до следующего запуска.
func (c *Consumer) Close() error {
	if c.nc != nil {
		return c.nc.Drain()
	}

	return nil
}
