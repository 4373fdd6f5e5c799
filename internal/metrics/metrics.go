// Package metrics: Prometheus-метрики обработки изменений и отправки push-уведомлений.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/triggers"
)

const namespace = "notify"

// Metrics: набор коллекторов сервиса.
type Metrics struct {
	changes        *prometheus.CounterVec
	changeDuration *prometheus.HistogramVec
	sends          *prometheus.CounterVec
	tokens         *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы в reg (nil: prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Document changes handled, by source, collection, kind and result.",
		}, []string{"source", "collection", "kind", "result"}),
		changeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "change_duration_seconds",
			Help:      "Time spent handling one document change.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_sends_total",
			Help:      "Gateway calls, by method, notification kind and result.",
		}, []string{"method", "kind", "result"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_tokens_total",
			Help:      "Multicast tokens, by notification kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(m.changes, m.changeDuration, m.sends, m.tokens)

	return m
}

// Middleware считает изменения и время их обработки.
func (m *Metrics) Middleware() triggers.Middleware {
	return func(next triggers.Handler) triggers.Handler {
		return func(ctx context.Context, ch triggers.Change) error {
			start := time.Now()
			err := next(ctx, ch)

			m.changes.WithLabelValues(ch.Source, ch.Collection, string(ch.Kind), triggers.Result(err)).Inc()
			m.changeDuration.WithLabelValues(ch.Collection).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Gateway оборачивает шлюз счётчиками вызовов и токенов.
func (m *Metrics) Gateway(g messaging.Gateway) messaging.Gateway {
	return &gateway{next: g, m: m}
}

type gateway struct {
	next messaging.Gateway
	m    *Metrics
}

func (g *gateway) Send(ctx context.Context, msg messaging.Message) (string, error) {
	id, err := g.next.Send(ctx, msg)
	g.m.sends.WithLabelValues("send", string(msg.Kind), result(err)).Inc()

	return id, err
}

func (g *gateway) SendMulticast(ctx context.Context, msg messaging.MulticastMessage) (*messaging.BatchResult, error) {
	res, err := g.next.SendMulticast(ctx, msg)
	g.m.sends.WithLabelValues("multicast", string(msg.Kind), result(err)).Inc()

	if res != nil {
		g.m.tokens.WithLabelValues(string(msg.Kind), "success").Add(float64(res.SuccessCount))
		g.m.tokens.WithLabelValues(string(msg.Kind), "failure").Add(float64(res.FailureCount))
	}

	return res, err
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
