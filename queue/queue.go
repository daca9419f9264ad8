// Package queue implements the Queue Manager of §4.3: the
// job-lifecycle façade used by enqueuers and workers. It is the only
// caller of the statemachine package, and applies every statemachine
// outcome to the store inside the transaction the store implementation
// chooses for that outcome.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queuectl/queuectl/backoff"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/statemachine"
	"github.com/queuectl/queuectl/store"
)

// Counts mirrors §4.3's counts() contract.
type Counts struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
	DLQ        int64
}

// Manager is the Queue Manager façade.
type Manager struct {
	store store.Store
}

// New wraps a Store.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// ValidateAndEnqueue parses and validates specText, assigns an id if
// absent, and inserts the resulting Job in Pending state.
func (m *Manager) ValidateAndEnqueue(ctx context.Context, specText string, defaultMaxRetries uint32) (string, error) {
	j, err := parseSpec(specText, defaultMaxRetries, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := m.store.Enqueue(ctx, j); err != nil {
		return "", err
	}
	return j.ID, nil
}

// Get hydrates a Job by id, or returns nil if absent.
func (m *Manager) Get(ctx context.Context, id string) (*job.Job, error) {
	return m.store.GetJob(ctx, id)
}

// List returns jobs matching filter.
func (m *Manager) List(ctx context.Context, filter store.ListFilter) ([]*job.Job, error) {
	return m.store.ListJobs(ctx, filter)
}

// Counts returns the per-status job counts plus the DLQ row count.
func (m *Manager) Counts(ctx context.Context) (Counts, error) {
	byStatus, err := m.store.CountsByStatus(ctx)
	if err != nil {
		return Counts{}, err
	}
	dlq, err := m.store.DLQCount(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Counts{
		Pending:    byStatus[job.Pending],
		Processing: byStatus[job.Processing],
		Completed:  byStatus[job.Completed],
		Failed:     byStatus[job.Failed],
		DLQ:        dlq,
	}, nil
}

// RecentFailures returns up to limit jobs with a recorded failure.
func (m *Manager) RecentFailures(ctx context.Context, limit int) ([]*job.Job, error) {
	return m.store.RecentFailures(ctx, limit)
}

// HandleSuccess applies the Processing -> Completed transition of
// §4.2 for a job the caller has just executed successfully.
func (m *Manager) HandleSuccess(ctx context.Context, j *job.Job) error {
	id, updatedAt := statemachine.Success(j, time.Now().UTC())
	return m.store.CompleteJob(ctx, id, updatedAt)
}

// HandleFailure applies the §4.2 retry/DLQ transition for a job that
// failed execution with message. observeAsFailed requests the narrow
// non-retryable classification of SPEC_FULL.md §4.2 (marks the job
// job.Failed instead of rescheduling it) when the job is not yet at
// its retry boundary; it has no effect once retries are exhausted.
func (m *Manager) HandleFailure(ctx context.Context, j *job.Job, message string, backoffBase uint32, observeAsFailed bool) error {
	cfg := backoff.Config{Base: backoffBase}
	outcome := statemachine.Failure(j, message, cfg, time.Now().UTC(), observeAsFailed)
	if outcome.DLQ != nil {
		outcome.DLQ.Entry.ID = uuid.NewString()
		return m.store.ApplyFailureDLQ(ctx, *outcome.DLQ)
	}
	return m.store.ApplyFailureRetry(ctx, *outcome.Retry)
}

// ListDLQ returns up to limit DLQ entries, newest moved_at first.
func (m *Manager) ListDLQ(ctx context.Context, limit int) ([]*job.DLQEntry, error) {
	return m.store.ListDLQ(ctx, limit)
}

// RetryFromDLQ reads the named DLQ entry and atomically re-enqueues it
// as a fresh Pending Job, reusing the original job id when sameID is
// true.
func (m *Manager) RetryFromDLQ(ctx context.Context, dlqID string, sameID bool, defaultMaxRetries uint32) (string, error) {
	entry, err := m.store.GetDLQEntry(ctx, dlqID)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", fmt.Errorf("queue: retry from dlq %s: %w", dlqID, store.ErrNotFound)
	}

	id := entry.OriginalJobID
	if !sameID {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	newJob := &job.Job{
		ID:         id,
		Command:    entry.Command,
		Status:     job.Pending,
		Attempts:   0,
		MaxRetries: defaultMaxRetries,
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  now,
		NextRunAt:  now,
	}
	if err := m.store.RetryFromDLQ(ctx, dlqID, newJob); err != nil {
		return "", err
	}
	return newJob.ID, nil
}

// PurgeDLQ deletes DLQ rows with moved_at older than olderThanDays
// days, or all rows if olderThanDays is nil. Returns the number
// deleted.
func (m *Manager) PurgeDLQ(ctx context.Context, olderThanDays *int) (int64, error) {
	if olderThanDays == nil {
		return m.store.PurgeDLQ(ctx, nil)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -*olderThanDays)
	return m.store.PurgeDLQ(ctx, &cutoff)
}
