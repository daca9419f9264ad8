// Package sweeper implements the Recovery Sweeper of §4.5: it selects
// every stale Processing job and feeds it through the State Machine as
// a failure, so stale work re-enters the pending queue with a proper
// backoff and respects the same max-retries boundary as ordinary
// failures. Grounded in the teacher's CleanWorker/Cleaner/TimerTask
// trio, generalized from "periodically delete terminal jobs" to
// "periodically detect and requeue stale in-flight jobs".
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/queuectl/queuectl/internal"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store"
)

// Config controls one Sweeper's behavior.
type Config struct {
	// StaleTimeout is the heartbeat age beyond which a Processing job's
	// worker is considered gone.
	StaleTimeout time.Duration
	// BackoffBase feeds the State Machine's retry delay computation for
	// recovered jobs.
	BackoffBase uint32
	// Interval is the period between periodic sweeps when run via
	// StartPeriodic; unused by Run.
	Interval time.Duration
	// Concurrency bounds how many recovered jobs are fed through the
	// State Machine at once; <=0 is treated as 4.
	Concurrency int
}

// Sweeper detects and recovers stale Processing jobs.
type Sweeper struct {
	internal.Lifecycle

	store store.Store
	queue *queue.Manager
	cfg   Config
	log   *slog.Logger

	task internal.TimerTask
}

// New creates a Sweeper over s.
func New(s store.Store, cfg Config, log *slog.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Sweeper{
		store: s,
		queue: queue.New(s),
		cfg:   cfg,
		log:   log,
	}
}

// Run performs one sweep: it finds every stale Processing job and
// feeds each through the State Machine as a failure with message
// "Job recovered from stale worker <worker_id>", returning the number
// recovered. Run is safe to invoke at any time, including before a
// fresh batch of workers begins claiming.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	stale, err := s.store.StaleProcessingJobs(ctx, s.cfg.StaleTimeout)
	if err != nil {
		return 0, fmt.Errorf("sweeper: list stale jobs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var recovered atomic.Int64
	var wg sync.WaitGroup
	pool := internal.NewWorkerPool[*job.Job](s.cfg.Concurrency, len(stale), s.log)
	pool.Start(ctx, func(ctx context.Context, j *job.Job) {
		defer wg.Done()
		workerID := "unknown"
		if j.WorkerID != nil {
			workerID = *j.WorkerID
		}
		message := fmt.Sprintf("Job recovered from stale worker %s", workerID)
		if err := s.queue.HandleFailure(ctx, j, message, s.cfg.BackoffBase, false); err != nil {
			s.log.Error("sweeper: cannot recover job", "job_id", j.ID, "err", err)
			return
		}
		recovered.Add(1)
	})
	for _, j := range stale {
		wg.Add(1)
		pool.Push(j)
	}
	wg.Wait()
	<-pool.Stop()

	n := int(recovered.Load())
	s.log.Info("sweep complete", "stale", len(stale), "recovered", n)
	return n, nil
}

// StartPeriodic runs Run once immediately and then every Interval
// until Stop is called.
func (s *Sweeper) StartPeriodic(ctx context.Context) error {
	if err := s.TryStart(); err != nil {
		return err
	}
	s.task.Start(ctx, func(ctx context.Context) {
		if _, err := s.Run(ctx); err != nil {
			s.log.Error("periodic sweep failed", "err", err)
		}
	}, s.cfg.Interval)
	return nil
}

// Stop terminates the periodic sweep task.
func (s *Sweeper) Stop(timeout time.Duration) error {
	return s.TryStop(timeout, s.task.Stop)
}
