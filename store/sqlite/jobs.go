package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	driver "modernc.org/sqlite"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

// isUniqueViolation reports whether err is a primary-key/unique
// constraint failure raised by modernc.org/sqlite.
func isUniqueViolation(err error) bool {
	var sqliteErr *driver.Error
	if errors.As(err, &sqliteErr) {
		// SQLITE_CONSTRAINT_PRIMARYKEY / SQLITE_CONSTRAINT_UNIQUE share
		// the low-order SQLITE_CONSTRAINT (19) result code.
		return sqliteErr.Code()&0xff == 19
	}
	return false
}

// checkJobInvariants reports store.ErrCorrupted if m violates an
// invariant that should be unreachable through the normal transition
// paths: an out-of-range status value, or Processing without an
// owning worker_id.
func checkJobInvariants(m *jobModel) error {
	switch m.Status {
	case job.Pending, job.Processing, job.Completed, job.Failed:
	default:
		return fmt.Errorf("sqlite: job %s: status %d: %w", m.ID, m.Status, store.ErrCorrupted)
	}
	if m.Status == job.Processing && m.WorkerID == nil {
		return fmt.Errorf("sqlite: job %s: processing with no worker_id: %w", m.ID, store.ErrCorrupted)
	}
	return nil
}

// Enqueue inserts a new Job in Pending state.
func (s *Store) Enqueue(ctx context.Context, j *job.Job) error {
	_, err := s.db.NewInsert().Model(fromJob(j)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlite: enqueue %s: %w", j.ID, store.ErrDuplicateID)
		}
		return fmt.Errorf("sqlite: enqueue %s: %w", j.ID, classify(err))
	}
	return nil
}

// GetJob hydrates a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get job %s: %w", id, classify(err))
	}
	if err := checkJobInvariants(m); err != nil {
		return nil, err
	}
	return m.toJob(), nil
}

// ListJobs returns jobs matching filter.
func (s *Store) ListJobs(ctx context.Context, filter store.ListFilter) ([]*job.Job, error) {
	q := s.db.NewSelect().Model((*jobModel)(nil))
	if filter.Status != job.Unknown {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	switch filter.Sort {
	case store.SortCreatedDesc:
		q = q.Order("created_at DESC")
	case store.SortUpdatedDesc:
		q = q.Order("updated_at DESC")
	case store.SortPriority:
		q = q.Order("priority DESC", "created_at ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var models []*jobModel
	if err := q.Scan(ctx, &models); err != nil {
		return nil, fmt.Errorf("sqlite: list jobs: %w", classify(err))
	}
	jobs := make([]*job.Job, len(models))
	for i, m := range models {
		if err := checkJobInvariants(m); err != nil {
			return nil, err
		}
		jobs[i] = m.toJob()
	}
	return jobs, nil
}

// CountsByStatus returns the count of jobs in each Status.
func (s *Store) CountsByStatus(ctx context.Context) (map[job.Status]int64, error) {
	var rows []struct {
		Status job.Status `bun:"status"`
		Count  int64       `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counts by status: %w", classify(err))
	}
	out := make(map[job.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// DLQCount returns the number of rows currently in the DLQ.
func (s *Store) DLQCount(ctx context.Context) (int64, error) {
	n, err := s.db.NewSelect().Model((*dlqModel)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: dlq count: %w", classify(err))
	}
	return int64(n), nil
}

// RecentFailures returns up to limit jobs with status=Failed and a
// non-empty last_error, newest updated_at first.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]*job.Job, error) {
	var models []*jobModel
	q := s.db.NewSelect().
		Model(&models).
		Where("status = ?", job.Failed).
		Where("last_error != ''").
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: recent failures: %w", classify(err))
	}
	jobs := make([]*job.Job, len(models))
	for i, m := range models {
		jobs[i] = m.toJob()
	}
	return jobs, nil
}

// Claim is the atomic claim primitive of §4.1: select the single
// highest-priority, oldest eligible Pending job and transition it to
// Processing in one UPDATE ... WHERE id IN (subquery) RETURNING
// statement, so the selection and the transition can never be
// observed or interleaved separately by a second, concurrent claimer.
func (s *Store) Claim(ctx context.Context, workerID string) (*job.Job, error) {
	now := time.Now().UTC()
	subQuery := s.db.NewSelect().
		Model((*jobModel)(nil)).
		Column("id").
		Where("status = ?", job.Pending).
		Where("next_run_at <= ?", now).
		Order("priority DESC", "created_at ASC").
		Limit(1)
	var models []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Processing).
		Set("worker_id = ?", workerID).
		Set("updated_at = ?", now).
		Where("id IN (?)", subQuery).
		Returning("*").
		Scan(ctx, &models)
	if err != nil {
		return nil, fmt.Errorf("sqlite: claim: %w", classify(err))
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toJob(), nil
}

// CompleteJob applies the success transition: Processing -> Completed.
func (s *Store) CompleteJob(ctx context.Context, id string, updatedAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Completed).
		Set("worker_id = NULL").
		Set("updated_at = ?", updatedAt).
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: complete job %s: %w", id, classify(err))
	}
	if !isAffected(res) {
		return fmt.Errorf("sqlite: complete job %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ApplyFailureRetry reschedules a Processing job back to Pending (or
// Failed, if w.Observe), clearing worker_id.
func (s *Store) ApplyFailureRetry(ctx context.Context, w store.FailureRetry) error {
	status := job.Pending
	if w.Observe {
		status = job.Failed
	}
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", status).
		Set("attempts = ?", w.Attempts).
		Set("last_error = ?", w.LastError).
		Set("next_run_at = ?", w.NextRunAt).
		Set("worker_id = NULL").
		Set("updated_at = ?", w.UpdatedAt).
		Where("id = ?", w.JobID).
		Where("status = ?", job.Processing).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: apply failure retry %s: %w", w.JobID, classify(err))
	}
	if !isAffected(res) {
		return fmt.Errorf("sqlite: apply failure retry %s: %w", w.JobID, store.ErrNotFound)
	}
	return nil
}

// ApplyFailureDLQ deletes the Job row and inserts the DLQ entry
// atomically: a transition must never be observable as both present,
// or as neither present.
func (s *Store) ApplyFailureDLQ(ctx context.Context, w store.FailureDLQ) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*jobModel)(nil)).
			Where("id = ?", w.Job.ID).
			Where("status = ?", job.Processing).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlite: dlq transition %s: delete job: %w", w.Job.ID, classify(err))
		}
		if !isAffected(res) {
			return fmt.Errorf("sqlite: dlq transition %s: %w", w.Job.ID, store.ErrNotFound)
		}
		if _, err := tx.NewInsert().Model(fromEntry(w.Entry)).Exec(ctx); err != nil {
			return fmt.Errorf("sqlite: dlq transition %s: insert dlq row: %w", w.Job.ID, classify(err))
		}
		return nil
	})
}

// StaleProcessingJobs returns every Job in Processing state whose
// claiming worker is missing from the workers table or whose
// heartbeat is older than staleTimeout.
func (s *Store) StaleProcessingJobs(ctx context.Context, staleTimeout time.Duration) ([]*job.Job, error) {
	cutoff := time.Now().UTC().Add(-staleTimeout)
	var models []*jobModel
	liveWorkers := s.db.NewSelect().
		Model((*workerModel)(nil)).
		Column("worker_id").
		Where("last_heartbeat_at >= ?", cutoff)
	err := s.db.NewSelect().
		Model(&models).
		Where("status = ?", job.Processing).
		WhereGroup("AND", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("worker_id IS NULL").
				WhereOr("worker_id NOT IN (?)", liveWorkers)
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: stale processing jobs: %w", classify(err))
	}
	jobs := make([]*job.Job, len(models))
	for i, m := range models {
		jobs[i] = m.toJob()
	}
	return jobs, nil
}
