package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func timePtr(t time.Time) *time.Time { return &t }
func floatPtr(f float64) *float64    { return &f }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var syncStateColumns = []string{
	"status", "is_next_run_full", "start_time", "end_time",
	"last_incremental_sync_start_time", "last_incremental_sync_end_time",
	"last_full_sync_start_time", "last_full_sync_end_time",
	"product_ids_to_delete",
	"seconds_since_start", "minutes_since_start", "hours_since_last_full_sync",
}

func TestSyncStateRepository_Read(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	start := now.Add(-10 * time.Minute)
	fullStart := now.Add(-3 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM search_sync_status").
		WillReturnRows(pgxmock.NewRows(syncStateColumns).AddRow(
			domain.SyncStatusRunning, true,
			timePtr(start), (*time.Time)(nil),
			(*time.Time)(nil), (*time.Time)(nil),
			timePtr(fullStart), timePtr(fullStart.Add(5*time.Minute)),
			[]int64{7, 9},
			floatPtr(600), floatPtr(10), floatPtr(2.9),
		))

	state, err := repo.Read(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusRunning, state.Status)
	assert.True(t, state.IsNextRunFull)
	assert.Equal(t, start, *state.StartTime)
	assert.Nil(t, state.EndTime)
	assert.Equal(t, []int64{7, 9}, state.ProductIDsToDelete)
	assert.InDelta(t, 10, *state.MinutesSinceStart, 0.001)
	assert.InDelta(t, 2.9, *state.HoursSinceLastFullSync, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_MarkRunning(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectQuery("UPDATE search_sync_status").
		WillReturnRows(pgxmock.NewRows([]string{"start_time"}).AddRow(now))

	start, err := repo.MarkRunning(context.Background())

	require.NoError(t, err)
	assert.Equal(t, now, start)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_MarkCompleted_Full(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs(true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkCompleted(context.Background(), domain.SyncKindFull, true)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_MarkCompleted_Incremental(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs(false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkCompleted(context.Background(), domain.SyncKindIncremental, false)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_MarkCompleted_UnknownKind(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	err := repo.MarkCompleted(context.Background(), domain.SyncKind("weekly"), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestSyncStateRepository_MarkFailed(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkFailed(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_SetNextRunFull(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs(true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetNextRunFull(context.Background(), true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_EnqueueProductDeletion(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.EnqueueProductDeletion(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_EnqueueProductDeletion_DuplicateIsNoop(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	// The containment guard makes the UPDATE match zero rows; that is still
	// a success for the caller.
	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.EnqueueProductDeletion(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_PendingDeletions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectQuery("SELECT product_ids_to_delete FROM search_sync_status").
		WillReturnRows(pgxmock.NewRows([]string{"product_ids_to_delete"}).AddRow([]int64{3, 5, 8}))

	ids, err := repo.PendingDeletions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 8}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_RemovePendingDeletions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectExec("UPDATE search_sync_status").
		WithArgs([]int64{3, 5}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.RemovePendingDeletions(context.Background(), []int64{3, 5}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_RemovePendingDeletions_EmptyIsNoop(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	// No statement is issued for an empty id list.
	require.NoError(t, repo.RemovePendingDeletions(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_DrainPendingDeletions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT product_ids_to_delete FROM search_sync_status").
		WillReturnRows(pgxmock.NewRows([]string{"product_ids_to_delete"}).AddRow([]int64{3, 5, 8}))
	mock.ExpectExec("UPDATE search_sync_status").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ids, err := repo.DrainPendingDeletions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 8}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_DrainPendingDeletions_ClearFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewSyncStateRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT product_ids_to_delete FROM search_sync_status").
		WillReturnRows(pgxmock.NewRows([]string{"product_ids_to_delete"}).AddRow([]int64{3}))
	mock.ExpectExec("UPDATE search_sync_status").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.DrainPendingDeletions(context.Background())

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
