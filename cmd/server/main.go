package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/api"
	"github.com/Priya8975/email-event-ingestion/internal/config"
	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/engine"
	"github.com/Priya8975/email-event-ingestion/internal/notify"
	"github.com/Priya8975/email-event-ingestion/internal/signature"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	ws "github.com/Priya8975/email-event-ingestion/internal/websocket"
	"github.com/Priya8975/email-event-ingestion/internal/worker"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	var st store.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		st = store.NewMemory()
		logger.Warn("using in-memory store, data will not survive a restart")
	default:
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		logger.Info("connected to PostgreSQL")

		if cfg.MigrateOnStart {
			if err := pgStore.RunMigrations(); err != nil {
				return err
			}
			logger.Info("database migrations applied")
		}
		st = pgStore
	}

	// Redis is optional; without it dedup falls back to the store, the
	// breaker is disabled and the webhook endpoint is not rate limited.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
		logger.Info("connected to Redis")
	}

	hub := ws.NewHub(logger)

	// Notification sinks
	var (
		sinks []notify.Sink
		kafka *notify.KafkaSink
	)
	for _, name := range cfg.Sinks() {
		switch name {
		case config.SinkRedis:
			sinks = append(sinks, notify.NewRedisSink(rdb, cfg.NotifyRedisQueue))
		case config.SinkKafka:
			kafka = notify.NewKafkaSink(cfg.Brokers(), cfg.KafkaTopic, logger)
			sinks = append(sinks, kafka)
		case config.SinkWebsocket:
			sinks = append(sinks, hub)
		case config.SinkWebhook:
			sinks = append(sinks, notify.NewWebhookSink(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret))
		}
	}

	var breaker *notify.Breaker
	if rdb != nil {
		breaker = notify.NewBreaker(rdb, logger)
	}
	fanout := notify.NewFanout(sinks, breaker, logger)
	logger.Info("notification sinks configured", "sinks", fanout.Sinks())

	// Workers get their own context so queued changes are still delivered
	// while the pool drains at shutdown.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	pool := worker.NewPool(cfg.NumWorkers, cfg.NotifyQueueSize, func(ctx context.Context, change domain.StatusChange) {
		fanout.Dispatch(ctx, change)
	}, logger)
	pool.Start(workCtx)

	// Ingestion
	keys := cfg.SigningKeys()
	if len(keys) == 0 {
		logger.Warn("WEBHOOK_SIGNING_KEY is not set, every webhook will be rejected")
	}
	verifier := signature.NewVerifier(signature.StaticKeys(keys), signature.WithWindow(cfg.FreshnessWindow))

	opts := []engine.IngesterOption{
		engine.WithEnabled(cfg.EmailEventsEnabled),
		engine.WithNotifier(pool),
	}
	if rdb != nil {
		opts = append(opts, engine.WithDedup(store.NewDedupFilter(rdb, cfg.DedupTTL)))
	}
	ingester := engine.NewIngester(verifier, st, logger, opts...)
	if !cfg.EmailEventsEnabled {
		logger.Warn("email event ingestion is disabled, webhooks will be refused")
	}

	deps := api.Deps{
		Store:    st,
		Ingester: ingester,
		Logger:   logger,
		Hub:      hub,
		Fanout:   fanout,
		Breaker:  breaker,
		Redis:    rdb,
	}
	if rdb != nil && cfg.RateLimitPerSecond > 0 {
		deps.Limiter = engine.NewRateLimiter(rdb, logger)
		deps.RateLimit = cfg.RateLimitPerSecond
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}

		pool.Stop()
		cancelWork()

		if kafka != nil {
			if err := kafka.Close(); err != nil {
				logger.Error("closing kafka writer", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
