package repository

import (
	"context"
	"time"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// SyncStateRepository manages the single persisted sync state row. All
// timestamp stamping happens on the database clock so that concurrent
// callers never disagree about elapsed time.
type SyncStateRepository interface {
	// Read returns the sync state including the SQL-derived age fields.
	Read(ctx context.Context) (*domain.SyncState, error)

	// MarkRunning transitions to running and stamps start_time with the
	// database's now(). It returns the stamped start time.
	MarkRunning(ctx context.Context) (time.Time, error)

	// MarkCompleted transitions to completed, stamps end_time, and copies
	// the run's start/end into the kind-specific last-sync columns. When
	// clearNextRunFull is set the is_next_run_full flag is consumed.
	MarkCompleted(ctx context.Context, kind domain.SyncKind, clearNextRunFull bool) error

	// MarkFailed transitions to failed and stamps end_time.
	MarkFailed(ctx context.Context) error

	// SetNextRunFull requests a full sync on the next run. A forced request
	// additionally resets status to completed so the next scheduler tick
	// runs regardless of a previous failure.
	SetNextRunFull(ctx context.Context, forced bool) error

	// EnqueueProductDeletion appends a product id to the pending-deletion
	// queue. Duplicate ids are kept out; concurrent appenders must not
	// lose each other's writes.
	EnqueueProductDeletion(ctx context.Context, productID int64) error

	// PendingDeletions returns the queued product ids without clearing them.
	PendingDeletions(ctx context.Context) ([]int64, error)

	// RemovePendingDeletions removes the given ids from the queue, leaving
	// ids enqueued concurrently in place. Called only after the index has
	// confirmed the corresponding deletes.
	RemovePendingDeletions(ctx context.Context, ids []int64) error

	// DrainPendingDeletions returns the queued product ids and clears the
	// queue in the same transaction. Used by full syncs, where the rebuild
	// supersedes the queued deletes.
	DrainPendingDeletions(ctx context.Context) ([]int64, error)
}

// CatalogRepository reads the relational catalog that documents are built
// from. All queries are read-only; the catalog is owned by the shop.
type CatalogRepository interface {
	// ActiveProducts returns every product with active status.
	ActiveProducts(ctx context.Context) ([]domain.ProductRow, error)

	// ProductsChangedSince returns active products created or modified at
	// or after the given cut-off.
	ProductsChangedSince(ctx context.Context, since time.Time) ([]domain.ProductRow, error)

	// ProductI18nByLanguage returns per-product language data (name,
	// description, meta keywords, view count) keyed by product id.
	ProductI18nByLanguage(ctx context.Context, languageID int32) (map[int64]domain.ProductI18n, error)

	// Categories returns every active category node.
	Categories(ctx context.Context) ([]domain.CategoryRow, error)

	// CategoryNamesByLanguage returns category names keyed by category id.
	CategoryNamesByLanguage(ctx context.Context, languageID int32) (map[int64]string, error)

	// CategoryDirectProductCounts returns the number of directly linked
	// active products per category id.
	CategoryDirectProductCounts(ctx context.Context) (map[int64]int32, error)

	// Brands returns every manufacturer.
	Brands(ctx context.Context) ([]domain.BrandRow, error)

	// BrandProductCounts returns the number of active products per
	// manufacturer id.
	BrandProductCounts(ctx context.Context) (map[int64]int32, error)

	// ProductRatings returns the mean approved review rating per product id.
	ProductRatings(ctx context.Context) (map[int64]float64, error)

	// Languages returns the configured storefront languages.
	Languages(ctx context.Context) ([]domain.Language, error)

	// Currencies returns the configured storefront currencies.
	Currencies(ctx context.Context) ([]domain.Currency, error)
}
