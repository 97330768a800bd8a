package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/api"
	"github.com/Priya8975/hr-event-ledger/internal/broker"
	"github.com/Priya8975/hr-event-ledger/internal/config"
	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/Priya8975/hr-event-ledger/internal/engine"
	"github.com/Priya8975/hr-event-ledger/internal/store"
	"github.com/Priya8975/hr-event-ledger/internal/store/migrations"
	"github.com/Priya8975/hr-event-ledger/internal/telemetry"
	ws "github.com/Priya8975/hr-event-ledger/internal/websocket"
	"github.com/Priya8975/hr-event-ledger/internal/worker"
	"github.com/google/uuid"
)

const serviceName = "hr-ledger"

// eventStore is what the server needs from either backend.
type eventStore interface {
	engine.EventLog
	api.StatsReader
	api.Pinger
	RecordSystemEvent(ctx context.Context, kind domain.SystemEventKind, data map[string]any) error
	io.Closer
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	events, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open event log", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer events.Close()
	logger.Info("event log ready", "driver", cfg.StoreDriver)

	checks := map[string]api.Pinger{"store": events}
	ledgerOpts := []engine.LedgerOption{engine.WithStoreTimeout(cfg.StoreTimeout)}

	// Redis is optional unless it allocates ids.
	var (
		limiter *engine.RateLimiter
		breaker *engine.CircuitBreaker
	)
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")

		checks["redis"] = redisStore
		limiter = engine.NewRateLimiter(redisStore.Client(), logger)
		breaker = engine.NewCircuitBreaker(redisStore.Client(), logger)
		if cfg.IDAllocator == config.AllocatorRedis {
			ledgerOpts = append(ledgerOpts, engine.WithIDAllocator(engine.NewRedisIDAllocator(redisStore.Client(), events)))
			logger.Info("employee ids allocated by redis")
		}
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := ws.NewHub(logger)
	go hub.Run(hubCtx)

	fanout := engine.NewFanOut(logger, hub)
	sinks := []string{hub.Name()}
	if kafka := broker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger); kafka != nil {
		defer kafka.Close()
		fanout.Add(kafka)
		sinks = append(sinks, kafka.Name())
	}
	if breaker != nil {
		fanout.WithBreaker(breaker)
	}

	var (
		notifier engine.Notifier = fanout
		pool     *worker.Pool
	)
	if cfg.SinkWorkers > 0 {
		pool = worker.NewPool(cfg.SinkWorkers, fanout.Deliver, logger)
		pool.Start(context.Background())
		notifier = pool
	}
	logger.Info("sink delivery configured", "sinks", sinks, "workers", cfg.SinkWorkers)

	ledgerOpts = append(ledgerOpts, engine.WithNotifier(notifier))
	ledger := engine.NewLedger(events, logger, ledgerOpts...)

	bootID := uuid.NewString()
	if err := events.RecordSystemEvent(ctx, domain.SystemServerStarted, map[string]any{
		"message": "Server is online",
		"boot_id": bootID,
		"driver":  cfg.StoreDriver,
	}); err != nil {
		logger.Warn("failed to record server start", "error", err)
	}

	router := api.NewRouter(api.Dependencies{
		Ledger:         ledger,
		Stats:          events,
		Hub:            hub,
		Breaker:        breaker,
		Sinks:          sinks,
		Limiter:        limiter,
		WriteRateLimit: cfg.WriteRateLimit,
		Checks:         checks,
		Logger:         logger,
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
		logger.Info("server starting", "port", cfg.Port, "boot_id", bootID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down server...", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Drain queued sink deliveries before the sinks go away.
	if pool != nil {
		pool.Stop()
	}
	stopHub()

	if err := events.RecordSystemEvent(shutdownCtx, domain.SystemServerStopped, map[string]any{
		"boot_id": bootID,
		"signal":  sig.String(),
	}); err != nil {
		logger.Warn("failed to record server stop", "error", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (eventStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.RunMigrations(ctx, migrations.Postgres, "postgres"); err != nil {
			pg.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return pg, nil
	case config.DriverSQLite:
		lite, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
