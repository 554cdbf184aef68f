// Package sync implements the synchronization orchestrator: a single-flight,
// crash-recoverable job that decides between a full and an incremental
// re-index, sequences the builder and the collection manager, and records
// progress in the persisted sync state.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marco-pm/zencart-typesense/internal/collection"
	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/repository"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
	"github.com/marco-pm/zencart-typesense/pkg/kafka"
	"github.com/marco-pm/zencart-typesense/pkg/tracing"
)

var (
	// ErrNoPriorSync is returned when an incremental sync has no prior
	// successful sync timestamp to diff against.
	ErrNoPriorSync = errors.New("incremental sync requires a prior successful sync")

	// ErrNoProductsAlias is returned when an incremental sync finds no live
	// products collection. The operator must run a full sync first.
	ErrNoProductsAlias = errors.New("products alias not found, run a full sync first")
)

// Config holds the orchestrator's tuning knobs.
type Config struct {
	FullSyncFrequencyHours int
	SyncTimeoutMinutes     int
	RetryAfterFailed       bool
	CollectionPrefix       string
	SyncLog                bool
}

// Alias returns the namespaced alias for one of the three logical
// collections (products, categories, brands).
func (c Config) Alias(base string) string {
	if c.CollectionPrefix == "" {
		return base
	}
	return c.CollectionPrefix + "_" + base
}

// DocumentBuilder produces the document streams. *builder.Builder satisfies it.
type DocumentBuilder interface {
	ProductDocuments(ctx context.Context, since *time.Time, languages []domain.Language, currencies []domain.Currency) ([]domain.Document, error)
	CategoryDocuments(ctx context.Context, languages []domain.Language) ([]domain.Document, error)
	BrandDocuments(ctx context.Context) ([]domain.Document, error)
}

// CollectionManager drives the search-server side of a sync.
// *collection.Manager satisfies it.
type CollectionManager interface {
	CreateIncarnation(ctx context.Context, alias string, fields []typesense.Field) (string, error)
	ImportBatches(ctx context.Context, collection string, docs []domain.Document, action typesense.ImportAction) (int, error)
	CopySynonyms(ctx context.Context, alias, newCollection string) error
	SwapAlias(ctx context.Context, alias, newCollection string) error
	ResolveAlias(ctx context.Context, alias string) (string, error)
	DeleteDocuments(ctx context.Context, collection string, ids []int64) (int64, error)
}

// Catalog is the slice of the catalog repository the engine reads directly.
type Catalog interface {
	Languages(ctx context.Context) ([]domain.Language, error)
	Currencies(ctx context.Context) ([]domain.Currency, error)
}

// EventPublisher announces completed syncs. *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Result describes what a Run invocation did.
type Result struct {
	Kind             domain.SyncKind
	Skipped          bool
	SkipReason       string
	DocumentsIndexed int
	DocumentsDeleted int64
}

// Engine is the sync orchestrator.
type Engine struct {
	state       repository.SyncStateRepository
	catalog     Catalog
	builder     DocumentBuilder
	collections CollectionManager
	publisher   EventPublisher
	logger      *slog.Logger
	cfg         Config
}

// NewEngine creates a sync engine. publisher may be nil when no broker is
// configured (the cron binary runs without Kafka).
func NewEngine(
	state repository.SyncStateRepository,
	catalog Catalog,
	builder DocumentBuilder,
	collections CollectionManager,
	publisher EventPublisher,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	return &Engine{
		state:       state,
		catalog:     catalog,
		builder:     builder,
		collections: collections,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
	}
}

// Run executes one orchestrator invocation: mutual exclusion check, timeout
// self-heal, full-vs-incremental decision, sync body, state bookkeeping. It
// is safe to invoke periodically; overlapping invocations are serialized
// through the persisted status field.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	tracer := tracing.Tracer("sync")
	ctx, span := tracer.Start(ctx, "sync.run")
	defer span.End()

	state, err := e.state.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}

	if state.Status == domain.SyncStatusRunning {
		if !e.runTimedOut(state) {
			e.logger.InfoContext(ctx, "sync already running, skipping")
			syncRunsTotal.WithLabelValues("none", "skipped").Inc()
			return &Result{Skipped: true, SkipReason: "already running"}, nil
		}

		// The previous run died without completing. Self-heal by marking it
		// failed and continue evaluating this invocation.
		e.logger.WarnContext(ctx, "previous sync exceeded timeout, marking failed",
			slog.Int("timeout_minutes", e.cfg.SyncTimeoutMinutes),
		)
		if err := e.state.MarkFailed(ctx); err != nil {
			return nil, fmt.Errorf("self-heal stale running state: %w", err)
		}
		state.Status = domain.SyncStatusFailed
	}

	if state.Status == domain.SyncStatusFailed && !e.cfg.RetryAfterFailed {
		e.logger.InfoContext(ctx, "previous sync failed and retry is disabled, skipping")
		syncRunsTotal.WithLabelValues("none", "skipped").Inc()
		return &Result{Skipped: true, SkipReason: "failed and retry disabled"}, nil
	}

	kind := e.decideKind(state)
	span.SetAttributes(attribute.String("sync.kind", string(kind)))

	var since *time.Time
	var liveProducts string

	if kind == domain.SyncKindIncremental {
		// Both preconditions are checked before the running transition so a
		// hopeless run never mutates state.
		since = state.LastIncrementalSyncStartTime
		if since == nil {
			since = state.LastFullSyncStartTime
		}
		if since == nil {
			e.logger.ErrorContext(ctx, "incremental sync has no prior sync timestamp")
			if stateErr := e.state.MarkFailed(ctx); stateErr != nil {
				e.logger.ErrorContext(ctx, "failed to record sync failure",
					slog.String("error", stateErr.Error()),
				)
			}
			syncRunsTotal.WithLabelValues(string(kind), "failed").Inc()
			return nil, ErrNoPriorSync
		}

		liveProducts, err = e.collections.ResolveAlias(ctx, e.cfg.Alias("products"))
		if err != nil {
			if errors.Is(err, typesense.ErrAliasNotFound) {
				e.logger.ErrorContext(ctx, "products alias missing, run a full sync first")
				return nil, ErrNoProductsAlias
			}
			return nil, fmt.Errorf("resolve products alias: %w", err)
		}
	}

	if _, err := e.state.MarkRunning(ctx); err != nil {
		return nil, fmt.Errorf("mark sync running: %w", err)
	}

	e.logger.InfoContext(ctx, "sync started", slog.String("kind", string(kind)))
	began := time.Now()

	result := &Result{Kind: kind}
	switch kind {
	case domain.SyncKindFull:
		err = e.runFull(ctx, tracer, result)
	case domain.SyncKindIncremental:
		err = e.runIncremental(ctx, tracer, since, liveProducts, result)
	}

	if err != nil {
		if stateErr := e.state.MarkFailed(ctx); stateErr != nil {
			e.logger.ErrorContext(ctx, "failed to record sync failure",
				slog.String("error", stateErr.Error()),
			)
		}
		syncRunsTotal.WithLabelValues(string(kind), "failed").Inc()
		return nil, fmt.Errorf("%s sync: %w", kind, err)
	}

	clearNextRunFull := kind == domain.SyncKindFull && state.IsNextRunFull
	if err := e.state.MarkCompleted(ctx, kind, clearNextRunFull); err != nil {
		return nil, fmt.Errorf("mark sync completed: %w", err)
	}

	duration := time.Since(began)
	syncRunsTotal.WithLabelValues(string(kind), "completed").Inc()
	syncRunDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())

	e.logger.InfoContext(ctx, "sync completed",
		slog.String("kind", string(kind)),
		slog.Duration("duration", duration),
		slog.Int("documents_indexed", result.DocumentsIndexed),
		slog.Int64("documents_deleted", result.DocumentsDeleted),
	)

	e.publishCompleted(ctx, result, duration)

	return result, nil
}

// runTimedOut reports whether a persisted running state is stale. A missing
// start time is treated as inconsistent and therefore stale.
func (e *Engine) runTimedOut(state *domain.SyncState) bool {
	if state.StartTime == nil || state.MinutesSinceStart == nil {
		return true
	}
	return *state.MinutesSinceStart > float64(e.cfg.SyncTimeoutMinutes)
}

// decideKind picks full when the operator or an event requested one, when no
// full sync ever completed, or when the configured frequency has elapsed.
func (e *Engine) decideKind(state *domain.SyncState) domain.SyncKind {
	if state.IsNextRunFull {
		return domain.SyncKindFull
	}
	if state.LastFullSyncEndTime == nil || state.HoursSinceLastFullSync == nil {
		return domain.SyncKindFull
	}
	if *state.HoursSinceLastFullSync >= float64(e.cfg.FullSyncFrequencyHours) {
		return domain.SyncKindFull
	}
	return domain.SyncKindIncremental
}

func (e *Engine) publishCompleted(ctx context.Context, result *Result, duration time.Duration) {
	if e.publisher == nil {
		return
	}

	event, err := kafka.NewEvent("search.sync.completed", string(result.Kind), "sync", "zencart-typesense", map[string]any{
		"kind":              string(result.Kind),
		"documents_indexed": result.DocumentsIndexed,
		"documents_deleted": result.DocumentsDeleted,
		"duration_ms":       duration.Milliseconds(),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "failed to build sync completed event", slog.String("error", err.Error()))
		return
	}

	if err := e.publisher.Publish(ctx, kafka.Topic("search", "synced"), event); err != nil {
		// Announcing completion is best effort; the sync itself succeeded.
		e.logger.WarnContext(ctx, "failed to publish sync completed event", slog.String("error", err.Error()))
	}
}

// runFull rebuilds all three collections and swaps their aliases. The
// pending-deletion queue is cleared without issuing deletes because the
// rebuild supersedes them.
func (e *Engine) runFull(ctx context.Context, tracer trace.Tracer, result *Result) error {
	languages, err := e.catalog.Languages(ctx)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	currencies, err := e.catalog.Currencies(ctx)
	if err != nil {
		return fmt.Errorf("load currencies: %w", err)
	}

	type target struct {
		alias  string
		fields []typesense.Field
		build  func(context.Context) ([]domain.Document, error)
		action typesense.ImportAction
	}

	targets := []target{
		{
			alias:  e.cfg.Alias("products"),
			fields: collection.ProductFields(languages, currencies),
			build: func(ctx context.Context) ([]domain.Document, error) {
				return e.builder.ProductDocuments(ctx, nil, languages, currencies)
			},
			action: typesense.ImportActionCreate,
		},
		{
			alias:  e.cfg.Alias("categories"),
			fields: collection.CategoryFields(languages),
			build: func(ctx context.Context) ([]domain.Document, error) {
				return e.builder.CategoryDocuments(ctx, languages)
			},
			action: typesense.ImportActionCreate,
		},
		{
			alias:  e.cfg.Alias("brands"),
			fields: collection.BrandFields(),
			build:  e.builder.BrandDocuments,
			// Brand ids are not unique across shops sharing a server, so
			// brands always import with upsert semantics.
			action: typesense.ImportActionUpsert,
		},
	}

	for _, t := range targets {
		if err := e.syncCollection(ctx, tracer, t.alias, t.fields, t.build, t.action, result); err != nil {
			return err
		}
	}

	// Full rebuild supersedes queued surgical deletes.
	if _, err := e.state.DrainPendingDeletions(ctx); err != nil {
		return fmt.Errorf("clear pending deletions: %w", err)
	}

	return nil
}

func (e *Engine) syncCollection(
	ctx context.Context,
	tracer trace.Tracer,
	alias string,
	fields []typesense.Field,
	build func(context.Context) ([]domain.Document, error),
	action typesense.ImportAction,
	result *Result,
) error {
	ctx, span := tracer.Start(ctx, "sync.collection",
		trace.WithAttributes(attribute.String("sync.alias", alias)),
	)
	defer span.End()

	incarnation, err := e.collections.CreateIncarnation(ctx, alias, fields)
	if err != nil {
		return err
	}

	docs, err := build(ctx)
	if err != nil {
		return err
	}

	imported, err := e.collections.ImportBatches(ctx, incarnation, docs, action)
	if err != nil {
		return err
	}
	result.DocumentsIndexed += imported
	syncDocumentsIndexed.WithLabelValues(alias).Add(float64(imported))

	if err := e.collections.CopySynonyms(ctx, alias, incarnation); err != nil {
		return err
	}

	return e.collections.SwapAlias(ctx, alias, incarnation)
}

// runIncremental upserts changed products into the live collection, issues
// the queued deletes, and clears the queue only once the deletes succeed.
func (e *Engine) runIncremental(
	ctx context.Context,
	tracer trace.Tracer,
	since *time.Time,
	liveProducts string,
	result *Result,
) error {
	ctx, span := tracer.Start(ctx, "sync.incremental",
		trace.WithAttributes(attribute.String("sync.collection", liveProducts)),
	)
	defer span.End()

	languages, err := e.catalog.Languages(ctx)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	currencies, err := e.catalog.Currencies(ctx)
	if err != nil {
		return fmt.Errorf("load currencies: %w", err)
	}

	docs, err := e.builder.ProductDocuments(ctx, since, languages, currencies)
	if err != nil {
		return err
	}

	imported, err := e.collections.ImportBatches(ctx, liveProducts, docs, typesense.ImportActionUpsert)
	if err != nil {
		return err
	}
	result.DocumentsIndexed += imported
	syncDocumentsIndexed.WithLabelValues(e.cfg.Alias("products")).Add(float64(imported))

	ids, err := e.state.PendingDeletions(ctx)
	if err != nil {
		return fmt.Errorf("read pending deletions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	deleted, err := e.collections.DeleteDocuments(ctx, liveProducts, ids)
	if err != nil {
		// The queue is untouched; a failed delete is retried next run.
		return err
	}
	result.DocumentsDeleted = deleted
	syncDocumentsDeleted.Add(float64(deleted))

	if err := e.state.RemovePendingDeletions(ctx, ids); err != nil {
		return fmt.Errorf("remove pending deletions: %w", err)
	}

	return nil
}
