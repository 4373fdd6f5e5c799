package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/messaging/fcm"
	"github.com/fraternet/notify-service/internal/metrics"
	"github.com/fraternet/notify-service/internal/service"
	"github.com/fraternet/notify-service/internal/storage/mongo"
	"github.com/fraternet/notify-service/internal/storage/redis"
	httptransport "github.com/fraternet/notify-service/internal/transport/http"
	"github.com/fraternet/notify-service/internal/triggers"
	"github.com/fraternet/notify-service/internal/triggers/changestream"
	"github.com/fraternet/notify-service/internal/triggers/natsx"
	"github.com/fraternet/notify-service/pkg/interceptors"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting notify-service", "env", cfg.Env, "sources", cfg.Triggers.Sources)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Хранилище документов.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	store, err := mongo.New(dbCtx, cfg)
	dbCancel()
	if err != nil {
		log.Error("mongo_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("mongo_connected")

	// closers закрываются в обратном порядке при остановке.
	closers := []func(){func() { _ = store.Close(context.Background()) }}
	fail := func(msg string, err error) {
		log.Error(msg, slog.String("err", err.Error()))
		rootCancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		os.Exit(1)
	}

	if cfg.Triggers.Enabled(config.SourceChangeStream) {
		preCtx, preCancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := store.EnsurePreImages(preCtx, mongo.WatchedCollections...); err != nil {
			log.Warn("mongo_preimages_unavailable", slog.String("err", err.Error()))
		}
		preCancel()
	}

	// Метрики и шлюз push-уведомлений.
	m := metrics.New(prometheus.DefaultRegisterer)

	var gw messaging.Gateway
	switch cfg.Messaging.Driver {
	case config.DriverFCM:
		fcmCtx, fcmCancel := context.WithTimeout(rootCtx, 10*time.Second)
		g, err := fcm.New(fcmCtx, cfg.Messaging.ProjectID, cfg.Messaging.CredentialsFile, cfg.Messaging.MulticastLimit)
		fcmCancel()
		if err != nil {
			fail("fcm_init_failed", err)
		}
		gw = g
	default:
		gw = messaging.NewLogGateway(cfg.Messaging.MulticastLimit)
	}
	log.Info("messaging_initialized", slog.String("driver", cfg.Messaging.Driver))

	svc := service.New(store, m.Gateway(gw), *cfg)
	router := triggers.NewRouter(svc)

	mws := []triggers.Middleware{
		triggers.Recover(),
		triggers.Logging(log),
		m.Middleware(),
		triggers.Timeout(cfg.Timeouts.Service),
	}

	if cfg.Redis.URL != "" {
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		dedup, err := redis.New(redisCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		redisCancel()
		if err != nil {
			fail("redis_connect_failed", err)
		}
		closers = append(closers, func() { _ = dedup.Close() })
		mws = append(mws, triggers.Dedup(dedup, cfg.Redis.TTL))
		log.Info("redis_connected")
	}

	handle := triggers.Chain(router.Handle, mws...)
	log.Info("service_initialized")

	// HTTP: пробы, метрики, push-эндпоинты.
	var ready atomic.Bool
	httpAddr := cfg.HTTP.Addr()

	httpSrv := &http.Server{
		Addr: httpAddr,
		Handler: httptransport.NewRouter(handle, httptransport.Options{
			Logger:   log,
			Timeout:  cfg.Timeouts.Service,
			Push:     cfg.Triggers.Enabled(config.SourceHTTP),
			Secret:   cfg.Push.Secret,
			Issuer:   cfg.Push.Issuer,
			Ready:    &ready,
			Gatherer: prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	// Источники изменений.
	var sources sync.WaitGroup

	if cfg.Triggers.Enabled(config.SourceChangeStream) {
		w := changestream.New(store.Database(), mongo.WatchedCollections, store, handle, cfg.Triggers.ReconnectBackoff, log)
		sources.Add(1)
		go func() {
			defer sources.Done()
			_ = w.Run(rootCtx)
		}()
	}

	if cfg.Triggers.Enabled(config.SourceNATS) {
		consumer, err := natsx.New(cfg.NATS, handle, log)
		if err != nil {
			fail("nats_connect_failed", err)
		}
		if err := consumer.Start(rootCtx); err != nil {
			_ = consumer.Close()
			fail("nats_subscribe_failed", err)
		}
		closers = append(closers, func() { _ = consumer.Close() })
	}

	// gRPC: стандартный health-сервис.
	grpc_prometheus.EnableHandlingTimeHistogram()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLogging(log),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	addr := cfg.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		_ = httpSrv.Shutdown(context.Background())
		fail("grpc_listen_failed", err)
	}
	log.Info("grpc_listen_start", slog.String("addr", addr))

	grpc_prometheus.Register(grpcServer)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)

	serveErrCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	ready.Store(false)

	// Останавливаем приём изменений: change stream по отмене контекста, HTTP через Shutdown.
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	sourcesDone := make(chan struct{})
	go func() {
		sources.Wait()
		close(sourcesDone)
	}()

	select {
	case <-sourcesDone:
	case <-shutdownCtx.Done():
		log.Warn("sources_stop_timeout")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
