package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fraternet/notify-service/internal/transport/http/handlers"
	"github.com/fraternet/notify-service/internal/transport/http/middleware"
	"github.com/fraternet/notify-service/internal/triggers"
)

// Options: параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Push: монтировать ли push-эндпоинты /v1 (источник триггеров "http").
	Push bool
	// Secret/Issuer: проверка Bearer JWT на /v1; пустой Secret отключает проверку.
	Secret string
	Issuer string
	// Ready: флаг готовности для /healthz.
	Ready *atomic.Bool
	// Gatherer - источник метрик для /metrics, по умолчанию prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// NewRouter собирает http.Handler: пробы и метрики на корне, push-эндпоинты триггеров под /v1
// (только при opts.Push).
func NewRouter(h triggers.Handler, opts Options) http.Handler {
	root := chi.NewRouter()

	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
	)

	hs := handlers.New(h, opts.Ready)

	root.Get("/livez", hs.Livez)
	root.Get("/healthz", hs.Healthz)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	root.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if !opts.Push {
		return root
	}

	root.Route("/v1", func(r chi.Router) {
		r.Use(
			middleware.Logging(opts.Logger),
			middleware.BearerJWT(opts.Secret, opts.Issuer),
		)
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}

		registerRoutes(r, hs)
	})

	return root
}

// registerRoutes: единая точка регистрации push-эндпоинтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Post("/changes", h.PostChange)
	r.Post("/firestore/{collection}", h.PostFirestore)
}
