// Package store defines the durable-store contract of §4.1: atomic
// claim, serializable transactions over jobs/DLQ/workers/config, and
// the indexed accessors the Queue Manager, Worker Runtime, and
// Recovery Sweeper are built on. The sqlite subpackage is the
// reference implementation over bun + modernc.org/sqlite; any backend
// satisfying this interface is acceptable per spec.
package store

import (
	"context"
	"time"

	"github.com/queuectl/queuectl/job"
)

// SortKey selects the ordering applied by List.
type SortKey int

const (
	// SortCreatedDesc orders by created_at DESC (the default).
	SortCreatedDesc SortKey = iota
	// SortUpdatedDesc orders by updated_at DESC.
	SortUpdatedDesc
	// SortPriority orders by priority DESC, created_at ASC.
	SortPriority
	// SortNone applies no ordering (unknown sort keys fall back here).
	SortNone
)

// ListFilter constrains ListJobs.
type ListFilter struct {
	Status job.Status // zero value (job.Unknown) means "no filter"
	Since  *time.Time // lower bound on created_at
	Sort   SortKey
	Limit  int
}

// FailureRetry is the write the state machine asks the store to apply
// when a failed job still has retries remaining: state goes back to
// Pending with a computed NextRunAt.
type FailureRetry struct {
	JobID     string
	Attempts  uint32
	LastError string
	NextRunAt time.Time
	UpdatedAt time.Time
	// Observe, when true, additionally writes job.Failed instead of
	// job.Pending — used for the narrow non-retryable classification
	// decided in SPEC_FULL.md §4.2. The job is still not retried in
	// that case; it is a terminal leaf, not a scheduled retry.
	Observe bool
}

// FailureDLQ is the write the state machine asks the store to apply
// when a failed job has exhausted its retries: the Job row is deleted
// and a DLQEntry is written, atomically.
type FailureDLQ struct {
	Job       *job.Job
	Entry     *job.DLQEntry
	LastError string
	UpdatedAt time.Time
}

// Store is the durable persistence contract required by the Queue
// Manager, Worker Runtime, and Recovery Sweeper.
type Store interface {
	// Enqueue inserts a new Job in Pending state. Fails with
	// ErrDuplicateID if j.ID already exists.
	Enqueue(ctx context.Context, j *job.Job) error

	// GetJob hydrates a job by id, or returns (nil, nil) if absent.
	GetJob(ctx context.Context, id string) (*job.Job, error)

	// ListJobs returns jobs matching filter.
	ListJobs(ctx context.Context, filter ListFilter) ([]*job.Job, error)

	// CountsByStatus returns the count of jobs in each Status. DLQ rows
	// are not included (see DLQCount); the queue package's Counts
	// combines both into the §4.3 contract including the dlq key.
	CountsByStatus(ctx context.Context) (map[job.Status]int64, error)

	// DLQCount returns the number of rows currently in the DLQ.
	DLQCount(ctx context.Context) (int64, error)

	// RecentFailures returns up to limit jobs with state=Failed and a
	// non-empty LastError, newest updated_at first.
	RecentFailures(ctx context.Context, limit int) ([]*job.Job, error)

	// Claim is the atomic claim primitive of §4.1: it selects the
	// highest-priority, oldest eligible Pending job, transitions it to
	// Processing owned by workerID, and returns the hydrated row. It
	// returns (nil, nil) if no eligible job exists.
	Claim(ctx context.Context, workerID string) (*job.Job, error)

	// CompleteJob applies the success transition of §4.2: Processing ->
	// Completed, worker_id cleared, attempts unchanged.
	CompleteJob(ctx context.Context, id string, updatedAt time.Time) error

	// ApplyFailureRetry applies a FailureRetry write.
	ApplyFailureRetry(ctx context.Context, w FailureRetry) error

	// ApplyFailureDLQ applies a FailureDLQ write: deletes the Job row
	// and inserts the DLQEntry in one transaction.
	ApplyFailureDLQ(ctx context.Context, w FailureDLQ) error

	// StaleProcessingJobs returns every Job in Processing state whose
	// worker is missing from the Workers table or whose heartbeat is
	// older than staleTimeout, for the Recovery Sweeper.
	StaleProcessingJobs(ctx context.Context, staleTimeout time.Duration) ([]*job.Job, error)

	// ListDLQ returns up to limit DLQ entries, newest moved_at first.
	ListDLQ(ctx context.Context, limit int) ([]*job.DLQEntry, error)

	// GetDLQEntry hydrates a DLQ entry by id, or (nil, nil) if absent.
	GetDLQEntry(ctx context.Context, id string) (*job.DLQEntry, error)

	// RetryFromDLQ inserts a fresh Pending Job derived from the named
	// DLQ entry and deletes that entry, atomically. Fails with
	// ErrNotFound if the entry is missing, ErrDuplicateID if newJob.ID
	// already names an existing Job.
	RetryFromDLQ(ctx context.Context, dlqID string, newJob *job.Job) error

	// PurgeDLQ deletes DLQ rows with moved_at < *olderThan, or all rows
	// if olderThan is nil. Returns the number of rows deleted.
	PurgeDLQ(ctx context.Context, olderThan *time.Time) (int64, error)

	// RegisterWorker upserts a Worker row (insert-or-replace, keyed by
	// WorkerID).
	RegisterWorker(ctx context.Context, w *job.Worker) error

	// Heartbeat refreshes a worker's last_heartbeat_at to now.
	Heartbeat(ctx context.Context, workerID string, now time.Time) error

	// UnregisterWorker deletes a Worker row.
	UnregisterWorker(ctx context.Context, workerID string) error

	// ActiveWorkers returns every Worker whose heartbeat age is within
	// staleTimeout.
	ActiveWorkers(ctx context.Context, staleTimeout time.Duration) ([]*job.Worker, error)

	// GetConfig returns the stored value for key, or ("", false, nil)
	// if unset (callers apply the recognized-key defaults of §3).
	GetConfig(ctx context.Context, key string) (string, bool, error)

	// SetConfig upserts a (key, value) row, last-writer-wins.
	SetConfig(ctx context.Context, key, value string) error

	// ListConfig returns every explicitly set (key, value) row.
	ListConfig(ctx context.Context) (map[string]string, error)

	// Close releases underlying resources (connections, file handles).
	Close() error
}
