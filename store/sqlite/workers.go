package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/job"
)

// RegisterWorker upserts a Worker row, keyed by WorkerID.
func (s *Store) RegisterWorker(ctx context.Context, w *job.Worker) error {
	_, err := s.db.NewInsert().
		Model(fromWorker(w)).
		On("CONFLICT (worker_id) DO UPDATE").
		Set("pid = EXCLUDED.pid").
		Set("started_at = EXCLUDED.started_at").
		Set("last_heartbeat_at = EXCLUDED.last_heartbeat_at").
		Set("hostname = EXCLUDED.hostname").
		Set("version = EXCLUDED.version").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: register worker %s: %w", w.WorkerID, classify(err))
	}
	return nil
}

// Heartbeat refreshes a worker's last_heartbeat_at to now.
func (s *Store) Heartbeat(ctx context.Context, workerID string, now time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*workerModel)(nil)).
		Set("last_heartbeat_at = ?", now).
		Where("worker_id = ?", workerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: heartbeat %s: %w", workerID, classify(err))
	}
	return nil
}

// UnregisterWorker deletes a Worker row.
func (s *Store) UnregisterWorker(ctx context.Context, workerID string) error {
	_, err := s.db.NewDelete().
		Model((*workerModel)(nil)).
		Where("worker_id = ?", workerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: unregister worker %s: %w", workerID, classify(err))
	}
	return nil
}

// ActiveWorkers returns every Worker whose heartbeat age is within
// staleTimeout.
func (s *Store) ActiveWorkers(ctx context.Context, staleTimeout time.Duration) ([]*job.Worker, error) {
	cutoff := time.Now().UTC().Add(-staleTimeout)
	var models []*workerModel
	err := s.db.NewSelect().
		Model(&models).
		Where("last_heartbeat_at >= ?", cutoff).
		Order("worker_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: active workers: %w", classify(err))
	}
	workers := make([]*job.Worker, len(models))
	for i, m := range models {
		workers[i] = m.toWorker()
	}
	return workers, nil
}
