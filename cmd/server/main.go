package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/broadcast-review/internal/api"
	"github.com/Priya8975/broadcast-review/internal/config"
	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/metrics"
	"github.com/Priya8975/broadcast-review/internal/store"
	ws "github.com/Priya8975/broadcast-review/internal/websocket"
	"github.com/Priya8975/broadcast-review/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	sources, closeSources, err := engine.OpenSources(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open data sources", "error", err)
		os.Exit(1)
	}
	defer closeSources()

	m := metrics.New()

	breaker := engine.NewCircuitBreaker(redisStore.Client(), logger)
	breaker.OnStateChange(m.SetBreakerState)
	limiter := engine.NewRateLimiter(redisStore.Client(), logger)

	fetcher := engine.NewFetcher(sources, redisStore, breaker, limiter, m, engine.FetcherOptions{
		CacheTTL:  cfg.CacheTTL,
		RateLimit: cfg.SourceRateLimit,
	}, logger)
	configs := store.NewConfigLoader(cfg.BroadcastConfigURL, redisStore, cfg.CacheTTL)
	fanout := engine.NewFanOutEngine(redisStore, logger)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	var notifiers worker.Notifiers
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, worker.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := worker.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		notifiers = append(notifiers, kafka)
	}

	runner := worker.NewRunner(worker.RunnerDeps{
		Fetcher:    fetcher,
		Configs:    configs,
		Saver:      pgStore,
		Retrier:    fanout,
		Events:     hub,
		Notifier:   notifiers,
		Metrics:    m,
		ReportsDir: cfg.ReportsDir,
	}, logger)

	pool := worker.NewPool(cfg.NumWorkers, runner, logger)
	pool.Start(ctx)

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	dispatcherDone := make(chan struct{})
	dispatcher := worker.NewDispatcher(redisStore.Client(), pool, m, logger)
	go func() {
		dispatcher.Start(dispatchCtx)
		close(dispatcherDone)
	}()

	scheduler := worker.NewScheduler(pgStore, fanout, configs, cfg.ReportSchedule, logger)
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("scheduler failed", "error", err)
		}
	}()

	router := api.NewRouter(api.RouterDeps{
		Runs:     pgStore,
		Stats:    pgStore,
		Queue:    fanout,
		Configs:  configs,
		Breakers: breaker,
		Hub:      hub,
		Health: map[string]api.Pinger{
			"postgres": pgStore,
			"redis":    redisStore,
		},
		Metrics: m.Handler(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port, "workers", cfg.NumWorkers)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Stop dispatching, then let queued and in-flight countries finish.
	stopDispatch()
	<-dispatcherDone
	pool.Stop()
	cancel()

	logger.Info("server stopped")
}
