package domain

import "time"

// SyncStatus is the lifecycle state of the last or ongoing sync run.
type SyncStatus string

const (
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncKind distinguishes a full rebuild from an incremental update. It is
// decided fresh on every run and never persisted.
type SyncKind string

const (
	SyncKindFull        SyncKind = "full"
	SyncKindIncremental SyncKind = "incremental"
)

// SyncState is the single persisted sync record (row id = 1). The derived
// age fields are computed in SQL against the database clock so that every
// caller reasons about elapsed time consistently, regardless of its own
// clock.
type SyncState struct {
	Status        SyncStatus `json:"status"`
	IsNextRunFull bool       `json:"is_next_run_full"`

	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	LastIncrementalSyncStartTime *time.Time `json:"last_incremental_sync_start_time"`
	LastIncrementalSyncEndTime   *time.Time `json:"last_incremental_sync_end_time"`
	LastFullSyncStartTime        *time.Time `json:"last_full_sync_start_time"`
	LastFullSyncEndTime          *time.Time `json:"last_full_sync_end_time"`

	ProductIDsToDelete []int64 `json:"product_ids_to_delete"`

	// Derived from the database's now() at read time.
	SecondsSinceStart      *float64 `json:"seconds_since_start"`
	MinutesSinceStart      *float64 `json:"minutes_since_start"`
	HoursSinceLastFullSync *float64 `json:"hours_since_last_full_sync"`
}
