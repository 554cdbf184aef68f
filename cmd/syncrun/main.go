// Command syncrun executes a single sync pass and exits. It is meant to be
// invoked from cron; the persisted sync status serializes concurrent
// invocations, so overlapping schedules are safe.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marco-pm/zencart-typesense/internal/builder"
	"github.com/marco-pm/zencart-typesense/internal/collection"
	"github.com/marco-pm/zencart-typesense/internal/config"
	"github.com/marco-pm/zencart-typesense/internal/repository/postgres"
	"github.com/marco-pm/zencart-typesense/internal/repository/postgres/migrations"
	"github.com/marco-pm/zencart-typesense/internal/sync"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
	"github.com/marco-pm/zencart-typesense/pkg/database"
	"github.com/marco-pm/zencart-typesense/pkg/httpclient"
	"github.com/marco-pm/zencart-typesense/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sync run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("search-sync-run", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	httpClient := httpclient.New(httpclient.DefaultConfig())
	cbClient := httpclient.NewCircuitBreakerClient(
		httpClient,
		httpclient.DefaultCircuitBreakerConfig("typesense"),
		log,
	)
	tsClient := typesense.NewClient(cfg.Typesense(), cbClient)

	stateRepo := postgres.NewSyncStateRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	engine := sync.NewEngine(
		stateRepo,
		catalogRepo,
		builder.New(catalogRepo, log, cfg.SyncLog),
		collection.NewManager(tsClient, log, cfg.SyncLog),
		nil, // cron runs publish no events
		log,
		cfg.Sync(),
	)

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if result.Skipped {
		log.Info("sync skipped", slog.String("reason", result.SkipReason))
		return nil
	}

	log.Info("sync completed",
		slog.String("kind", string(result.Kind)),
		slog.Int("documents_indexed", result.DocumentsIndexed),
		slog.Int64("documents_deleted", result.DocumentsDeleted),
	)
	return nil
}
