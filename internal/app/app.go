// Package app wires the sync service together: catalog database, search
// server client, sync engine, catalog event consumers, and the dashboard
// HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marco-pm/zencart-typesense/internal/builder"
	"github.com/marco-pm/zencart-typesense/internal/collection"
	"github.com/marco-pm/zencart-typesense/internal/config"
	"github.com/marco-pm/zencart-typesense/internal/event"
	httphandler "github.com/marco-pm/zencart-typesense/internal/handler/http"
	"github.com/marco-pm/zencart-typesense/internal/repository/postgres"
	"github.com/marco-pm/zencart-typesense/internal/repository/postgres/migrations"
	"github.com/marco-pm/zencart-typesense/internal/search"
	"github.com/marco-pm/zencart-typesense/internal/service"
	"github.com/marco-pm/zencart-typesense/internal/sync"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
	"github.com/marco-pm/zencart-typesense/pkg/database"
	"github.com/marco-pm/zencart-typesense/pkg/health"
	"github.com/marco-pm/zencart-typesense/pkg/httpclient"
	"github.com/marco-pm/zencart-typesense/pkg/kafka"
	"github.com/marco-pm/zencart-typesense/pkg/tracing"
)

// App holds the running components of the sync service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool           *pgxpool.Pool
	engine         *sync.Engine
	producer       *kafka.Producer
	dlq            *kafka.DLQProducer
	consumers      []*kafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp builds the application from configuration. It connects to the
// catalog database, runs the sync state migrations, and constructs the
// engine, the dashboard service, and the Kafka consumers.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "search-sync",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	database.RegisterPoolMetrics(pool, "search-sync")

	// The Typesense client talks through a retrying HTTP client behind a
	// circuit breaker, so a dead search server degrades fast instead of
	// piling up blocked syncs.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	cbClient := httpclient.NewCircuitBreakerClient(
		httpClient,
		httpclient.DefaultCircuitBreakerConfig("typesense"),
		logger,
	)
	tsClient := typesense.NewClient(cfg.Typesense(), cbClient)

	stateRepo := postgres.NewSyncStateRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	docBuilder := builder.New(catalogRepo, logger, cfg.SyncLog)
	manager := collection.NewManager(tsClient, logger, cfg.SyncLog)

	var (
		producer  *kafka.Producer
		dlq       *kafka.DLQProducer
		publisher sync.EventPublisher
	)
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg.KafkaBrokers, logger)
		dlq = kafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		publisher = producer
	}

	engine := sync.NewEngine(stateRepo, catalogRepo, docBuilder, manager, publisher, logger, cfg.Sync())

	dashboard := service.NewDashboard(stateRepo, tsClient, cfg.CollectionPrefix, logger)

	provider, err := search.NewProvider(cfg.SearchProvider, tsClient, cfg.CollectionPrefix)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var consumers []*kafka.Consumer
	if cfg.KafkaEnabled {
		handlers := event.NewHandlers(stateRepo, logger, cfg.FullSyncOnCategoryChange)
		consumers = newConsumers(cfg, handlers, dlq, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pool.Ping)
	healthHandler.Register("typesense", func(ctx context.Context) error {
		ok, err := tsClient.Health(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("typesense reports not ok")
		}
		return nil
	})
	if cfg.KafkaEnabled {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return kafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	router := httphandler.NewRouter(dashboard, provider, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		engine:         engine,
		producer:       producer,
		dlq:            dlq,
		consumers:      consumers,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newConsumers builds one consumer per catalog change topic, all sharing the
// configured group id and the DLQ producer.
func newConsumers(cfg *config.Config, handlers *event.Handlers, dlq *kafka.DLQProducer, logger *slog.Logger) []*kafka.Consumer {
	subscriptions := []struct {
		topic   string
		handler kafka.Handler
	}{
		{kafka.Topic("product", "deleted"), handlers.HandleProductDeleted},
		{kafka.Topic("category", "created"), handlers.HandleCategoryChanged},
		{kafka.Topic("category", "updated"), handlers.HandleCategoryChanged},
		{kafka.Topic("category", "deleted"), handlers.HandleCategoryChanged},
		{kafka.Topic("language", "created"), handlers.HandleLanguageChanged},
		{kafka.Topic("language", "deleted"), handlers.HandleLanguageChanged},
	}

	consumers := make([]*kafka.Consumer, 0, len(subscriptions))
	for _, sub := range subscriptions {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   sub.topic,
		}, sub.handler, logger)
		consumers = append(consumers, consumer.WithDLQ(dlq))
	}
	return consumers
}

// Run starts the consumers, the optional scheduler, and the HTTP server, and
// blocks until the context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, len(a.consumers)+1)

	for _, consumer := range a.consumers {
		go func(c *kafka.Consumer) {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}(consumer)
	}

	if a.cfg.SchedulerEnabled {
		go a.runScheduler(ctx)
	}

	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runScheduler invokes the sync engine on a fixed interval. Skips are normal
// operation; only hard failures are logged as errors.
func (a *App) runScheduler(ctx context.Context) {
	interval := time.Duration(a.cfg.SchedulerIntervalMinutes) * time.Minute
	a.logger.Info("sync scheduler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := a.engine.Run(ctx)
			if err != nil {
				a.logger.Error("scheduled sync failed", slog.String("error", err.Error()))
				continue
			}
			if result.Skipped {
				a.logger.Debug("scheduled sync skipped", slog.String("reason", result.SkipReason))
			}
		}
	}
}

// Shutdown gracefully stops all components in order: HTTP server first so
// in-flight requests drain, then the tracer so their spans flush, then the
// Kafka clients, then the database pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer: %w", err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq producer: %w", err))
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
