package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eaglebank/ledger-service/internal/audit"
	"github.com/eaglebank/ledger-service/internal/command"
	"github.com/eaglebank/ledger-service/internal/handler"
	"github.com/eaglebank/ledger-service/internal/query"
	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/config"
	"github.com/eaglebank/ledger-service/shared/database"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/logging"
	"github.com/eaglebank/ledger-service/shared/middleware"
	redisClient "github.com/eaglebank/ledger-service/shared/redis"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.SlogLevel(), cfg.LogFormat)
	gin.SetMode(cfg.GinMode)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("ledger service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	checks := map[string]handler.HealthCheck{}

	ledger, closeLedger, err := openLedger(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeLedger()

	// Redis backs the account view cache, idempotency keys and the event
	// streams. Without it those features are switched off.
	var (
		rdb         goredis.Cmdable
		publisher   *events.Publisher
		idempotency command.IdempotencyStore
		eventSink   command.EventPublisher
	)
	if cfg.RedisEnabled {
		client, err := redisClient.Connect(ctx, redisClient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		checks["redis"] = client.Healthy

		rdb = client.Client
		publisher = events.NewPublisher(rdb)
		eventSink = publisher
		idempotency = repository.NewIdempotencyRepository(rdb, cfg.IdempotencyTTL)
	} else {
		slog.Warn("redis disabled: account cache, idempotency keys and events are off")
	}

	// --- CQRS wiring ---
	readRepo := repository.NewAccountReadRepository(ledger, rdb, cfg.AccountCacheTTL)

	accountCommands := command.NewAccountCommandService(ledger, readRepo, eventSink)
	transactionCommands := command.NewTransactionCommandService(ledger, readRepo, eventSink, idempotency)
	accountQueries := query.NewAccountQueryService(ledger, readRepo)
	transactionQueries := query.NewTransactionQueryService(ledger)

	accountHandler := handler.NewAccountHandler(accountCommands, accountQueries)
	transactionHandler := handler.NewTransactionHandler(transactionCommands, transactionQueries)

	auditor := audit.NewAuditor(ledger, eventSink)
	scheduler := cron.New()
	if _, err := auditor.Schedule(scheduler, cfg.AuditSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if publisher != nil {
		go runAuditConsumer(ctx, rdb, auditor)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	router.GET("/health", handler.NewHealthHandler(checks).Health)

	api := router.Group("/api", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	handler.RegisterAccountRoutes(api, accountHandler)
	handler.RegisterTransactionRoutes(api, transactionHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ledger service starting", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openLedger returns the configured ledger store and a func releasing it. A
// database-backed store registers its health check in checks.
func openLedger(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck) (repository.Ledger, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		slog.Warn("using in-memory ledger; data is lost on restart")
		return repository.NewMemoryLedger(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, err
	}
	checks["postgres"] = db.PingContext
	return repository.NewPostgresLedger(db), func() { closeDB(db) }, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

func runAuditConsumer(ctx context.Context, rdb goredis.Cmdable, auditor *audit.Auditor) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "ledger"
	}
	subscriber := events.NewSubscriber(rdb, events.SubscriberConfig{
		Group:    audit.ConsumerGroup,
		Consumer: "audit-" + hostname,
		Stream:   events.TransactionEventsStream,
		Handler:  auditor.HandleTransactionEvent,
	})
	if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("audit consumer stopped", "error", err)
	}
}
