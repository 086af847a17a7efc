package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/layer-3/questor/adapters/events"
	"github.com/layer-3/questor/adapters/metrics"
	"github.com/layer-3/questor/adapters/signature"
	"github.com/layer-3/questor/adapters/store"
	"github.com/layer-3/questor/adapters/tokenizer"
	"github.com/layer-3/questor/catalog"
	"github.com/layer-3/questor/config"
	"github.com/layer-3/questor/connmgr"
	"github.com/layer-3/questor/ports"
	"github.com/layer-3/questor/service"
	transport "github.com/layer-3/questor/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tok, err := tokenizer.NewJWTTokenizer(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}

	ledger, closeLedger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	eventPub, closeEvents, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	services := transport.Services{
		Auth: service.NewAuthService(
			signature.NewEthVerifier(), tok, ledger, eventPub, recorder, logger,
			service.WithSessionTTL(cfg.SessionTTL),
		),
		Progress: service.NewProgressService(catalog.Default(), ledger, eventPub, recorder, logger),
		Users:    service.NewUserService(ledger, logger),
	}

	gin.SetMode(cfg.GinMode)
	router := transport.SetupRouter(services, logger, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	logger.Info("Service gracefully stopped")
	return nil
}

// openLedger builds the configured store behind a lazily dialed connection manager
func openLedger(cfg config.Config) (ports.Ledger, func(), error) {
	opts := connmgr.Options{DialTimeout: cfg.StoreDialTimeout}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil

	case config.StoreRedis:
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		conns := connmgr.New(
			func(ctx context.Context) (*redis.Client, error) {
				client := redis.NewClient(redisOpts)
				if err := client.Ping(ctx).Err(); err != nil {
					_ = client.Close()
					return nil, err
				}
				return client, nil
			},
			func(ctx context.Context, c *redis.Client) error { return c.Ping(ctx).Err() },
			func(c *redis.Client) error { return c.Close() },
			opts,
		)
		return store.NewRedisStore(conns), func() { _ = conns.Close() }, nil

	case config.StorePostgres, config.StoreSQLite:
		driver := store.DriverPostgres
		if cfg.StoreDriver == config.StoreSQLite {
			driver = store.DriverSQLite
		}
		conns := connmgr.New(
			func(ctx context.Context) (*sqlx.DB, error) { return store.OpenSQL(ctx, driver, cfg.DatabaseURL) },
			func(ctx context.Context, db *sqlx.DB) error { return db.PingContext(ctx) },
			func(db *sqlx.DB) error { return db.Close() },
			opts,
		)
		return store.NewSQLStore(conns), func() { _ = conns.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openPublisher streams domain events to Redis, or drops them when disabled
func openPublisher(cfg config.Config, logger *slog.Logger) (ports.EventPublisher, func(), error) {
	if !cfg.EventsEnabled {
		return events.NopPublisher{}, func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	return events.NewWatermillPublisher(publisher), func() {
		_ = publisher.Close()
		_ = client.Close()
	}, nil
}
