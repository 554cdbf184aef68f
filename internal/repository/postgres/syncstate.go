package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/pkg/database"
)

// SyncStateRepository persists the single sync state row (id = 1) in
// PostgreSQL. Timestamps are stamped with the database's now() so elapsed-
// time math is immune to clock skew between callers.
type SyncStateRepository struct {
	db database.DBTX
}

// NewSyncStateRepository creates a new PostgreSQL-backed sync state repository.
func NewSyncStateRepository(db database.DBTX) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Read returns the sync state with the derived ages computed in SQL against
// the database clock.
func (r *SyncStateRepository) Read(ctx context.Context) (*domain.SyncState, error) {
	query := `
		SELECT status, is_next_run_full, start_time, end_time,
		       last_incremental_sync_start_time, last_incremental_sync_end_time,
		       last_full_sync_start_time, last_full_sync_end_time,
		       product_ids_to_delete,
		       EXTRACT(EPOCH FROM (now() - start_time))::float8 AS seconds_since_start,
		       (EXTRACT(EPOCH FROM (now() - start_time)) / 60)::float8 AS minutes_since_start,
		       (EXTRACT(EPOCH FROM (now() - last_full_sync_end_time)) / 3600)::float8 AS hours_since_last_full_sync
		FROM search_sync_status
		WHERE id = 1`

	var s domain.SyncState

	if err := r.db.QueryRow(ctx, query).Scan(
		&s.Status,
		&s.IsNextRunFull,
		&s.StartTime,
		&s.EndTime,
		&s.LastIncrementalSyncStartTime,
		&s.LastIncrementalSyncEndTime,
		&s.LastFullSyncStartTime,
		&s.LastFullSyncEndTime,
		&s.ProductIDsToDelete,
		&s.SecondsSinceStart,
		&s.MinutesSinceStart,
		&s.HoursSinceLastFullSync,
	); err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}

	return &s, nil
}

// MarkRunning transitions to running and stamps start_time on the database
// clock, returning the stamped value.
func (r *SyncStateRepository) MarkRunning(ctx context.Context) (time.Time, error) {
	query := `
		UPDATE search_sync_status
		SET status = 'running', start_time = now(), end_time = NULL
		WHERE id = 1
		RETURNING start_time`

	var start time.Time
	if err := r.db.QueryRow(ctx, query).Scan(&start); err != nil {
		return time.Time{}, fmt.Errorf("mark sync running: %w", err)
	}
	return start, nil
}

// MarkCompleted transitions to completed, stamps end_time, and copies the
// run's timestamps into the kind-specific last-sync columns in one statement.
func (r *SyncStateRepository) MarkCompleted(ctx context.Context, kind domain.SyncKind, clearNextRunFull bool) error {
	var query string
	switch kind {
	case domain.SyncKindFull:
		query = `
			UPDATE search_sync_status
			SET status = 'completed', end_time = now(),
			    last_full_sync_start_time = start_time,
			    last_full_sync_end_time = now(),
			    is_next_run_full = CASE WHEN $1 THEN false ELSE is_next_run_full END
			WHERE id = 1`
	case domain.SyncKindIncremental:
		query = `
			UPDATE search_sync_status
			SET status = 'completed', end_time = now(),
			    last_incremental_sync_start_time = start_time,
			    last_incremental_sync_end_time = now(),
			    is_next_run_full = CASE WHEN $1 THEN false ELSE is_next_run_full END
			WHERE id = 1`
	default:
		return fmt.Errorf("mark sync completed: unknown kind %q", kind)
	}

	if _, err := r.db.Exec(ctx, query, clearNextRunFull); err != nil {
		return fmt.Errorf("mark sync completed: %w", err)
	}
	return nil
}

// MarkFailed transitions to failed and stamps end_time.
func (r *SyncStateRepository) MarkFailed(ctx context.Context) error {
	query := `
		UPDATE search_sync_status
		SET status = 'failed', end_time = now()
		WHERE id = 1`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	return nil
}

// SetNextRunFull requests a full sync on the next run. A forced request also
// resets status to completed so the next invocation is not blocked by a
// previous failure.
func (r *SyncStateRepository) SetNextRunFull(ctx context.Context, forced bool) error {
	query := `
		UPDATE search_sync_status
		SET is_next_run_full = true,
		    status = CASE WHEN $1 THEN 'completed' ELSE status END
		WHERE id = 1`

	if _, err := r.db.Exec(ctx, query, forced); err != nil {
		return fmt.Errorf("set next run full: %w", err)
	}
	return nil
}

// EnqueueProductDeletion appends a product id to the pending-deletion queue.
// The single UPDATE serializes concurrent appenders on the row lock, and the
// containment check keeps the queue duplicate-free.
func (r *SyncStateRepository) EnqueueProductDeletion(ctx context.Context, productID int64) error {
	query := `
		UPDATE search_sync_status
		SET product_ids_to_delete = array_append(product_ids_to_delete, $1::bigint)
		WHERE id = 1
		  AND NOT product_ids_to_delete @> ARRAY[$1::bigint]`

	if _, err := r.db.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("enqueue product deletion %d: %w", productID, err)
	}
	return nil
}

// PendingDeletions returns the queued product ids without clearing them.
func (r *SyncStateRepository) PendingDeletions(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.QueryRow(ctx,
		`SELECT product_ids_to_delete FROM search_sync_status WHERE id = 1`,
	).Scan(&ids); err != nil {
		return nil, fmt.Errorf("read pending deletions: %w", err)
	}
	return ids, nil
}

// RemovePendingDeletions removes the given ids from the queue. Ids enqueued
// after the caller read the queue are kept for the next run.
func (r *SyncStateRepository) RemovePendingDeletions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE search_sync_status
		SET product_ids_to_delete = (
			SELECT COALESCE(array_agg(pid), '{}')
			FROM unnest(product_ids_to_delete) AS pid
			WHERE pid <> ALL($1::bigint[])
		)
		WHERE id = 1`

	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("remove pending deletions: %w", err)
	}
	return nil
}

// DrainPendingDeletions returns the queued product ids and clears the queue
// in one transaction, locking the row so concurrent enqueuers wait.
func (r *SyncStateRepository) DrainPendingDeletions(ctx context.Context) ([]int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("drain pending deletions: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ids []int64
	if err := tx.QueryRow(ctx,
		`SELECT product_ids_to_delete FROM search_sync_status WHERE id = 1 FOR UPDATE`,
	).Scan(&ids); err != nil {
		return nil, fmt.Errorf("drain pending deletions: read: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE search_sync_status SET product_ids_to_delete = '{}'::bigint[] WHERE id = 1`,
	); err != nil {
		return nil, fmt.Errorf("drain pending deletions: clear: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("drain pending deletions: commit: %w", err)
	}

	return ids, nil
}
