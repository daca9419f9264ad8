package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

// ListDLQ returns up to limit DLQ entries, newest moved_at first.
func (s *Store) ListDLQ(ctx context.Context, limit int) ([]*job.DLQEntry, error) {
	var models []*dlqModel
	q := s.db.NewSelect().Model(&models).Order("moved_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: list dlq: %w", classify(err))
	}
	entries := make([]*job.DLQEntry, len(models))
	for i, m := range models {
		entries[i] = m.toEntry()
	}
	return entries, nil
}

// GetDLQEntry hydrates a DLQ entry by id.
func (s *Store) GetDLQEntry(ctx context.Context, id string) (*job.DLQEntry, error) {
	m := new(dlqModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get dlq entry %s: %w", id, classify(err))
	}
	return m.toEntry(), nil
}

// RetryFromDLQ inserts newJob as a fresh Pending Job and deletes the
// named DLQ entry, atomically: a retry must never be observable as
// both the DLQ entry and the new Job present, or neither.
func (s *Store) RetryFromDLQ(ctx context.Context, dlqID string, newJob *job.Job) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*dlqModel)(nil)).Where("id = ?", dlqID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlite: retry from dlq %s: delete entry: %w", dlqID, classify(err))
		}
		if !isAffected(res) {
			return fmt.Errorf("sqlite: retry from dlq %s: %w", dlqID, store.ErrNotFound)
		}
		if _, err := tx.NewInsert().Model(fromJob(newJob)).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("sqlite: retry from dlq %s: new job %s: %w", dlqID, newJob.ID, store.ErrDuplicateID)
			}
			return fmt.Errorf("sqlite: retry from dlq %s: insert job: %w", dlqID, classify(err))
		}
		return nil
	})
}

// PurgeDLQ deletes DLQ rows with moved_at < *olderThan, or all rows if
// olderThan is nil.
func (s *Store) PurgeDLQ(ctx context.Context, olderThan *time.Time) (int64, error) {
	q := s.db.NewDelete().Model((*dlqModel)(nil))
	if olderThan != nil {
		q = q.Where("moved_at < ?", *olderThan)
	} else {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge dlq: %w", classify(err))
	}
	return getAffected(res), nil
}
