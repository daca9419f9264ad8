// Package workerruntime implements the Worker Runtime of §4.4: one
// process operating a cooperative claim -> execute -> report ->
// heartbeat loop, with up to Config.MaxConcurrentProcesses in-flight
// child commands bounded by a weighted semaphore. Grounded in the
// teacher's Worker.pull/handle split and lc_base.go's start/stop
// guard, generalized from "pull a batch, push into a channel-backed
// pool" to "claim one eligible job at a time, dispatch it the moment a
// concurrency slot is free".
package workerruntime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/queuectl/queuectl/internal"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store"
)

// Config controls one Runtime's behavior.
type Config struct {
	// PollInterval is slept between two claim attempts that both find
	// nothing eligible.
	PollInterval time.Duration
	// HeartbeatInterval is the minimum gap between two heartbeat writes.
	HeartbeatInterval time.Duration
	// BackoffBase feeds the State Machine's retry delay computation.
	BackoffBase uint32
	// DefaultTimeout is applied to a Job whose own TimeoutSeconds is
	// nil; zero means unbounded.
	DefaultTimeout time.Duration
	// MaxConcurrentProcesses bounds in-flight child commands; <=0 is
	// treated as 1.
	MaxConcurrentProcesses int64
	// Hostname and Version populate the Worker registration row.
	Hostname string
	Version  string
}

// Runtime is one worker process's claim/execute/report loop.
type Runtime struct {
	internal.Lifecycle

	workerID string
	store    store.Store
	queue    *queue.Manager
	cfg      Config
	log      *slog.Logger

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a Runtime with a freshly generated worker id. The
// Runtime is not started automatically; call Start.
func New(s store.Store, cfg Config, log *slog.Logger) *Runtime {
	maxProcs := cfg.MaxConcurrentProcesses
	if maxProcs <= 0 {
		maxProcs = 1
	}
	return &Runtime{
		workerID: "worker-" + uuid.NewString()[:8],
		store:    s,
		queue:    queue.New(s),
		cfg:      cfg,
		log:      log,
		sem:      semaphore.NewWeighted(maxProcs),
	}
}

// WorkerID returns this runtime's generated worker id.
func (r *Runtime) WorkerID() string {
	return r.workerID
}

// Start registers the worker row and begins the background loop.
// Start returns internal.ErrDoubleStarted if already started.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.TryStart(); err != nil {
		return err
	}

	now := time.Now().UTC()
	hostname := r.cfg.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	w := &job.Worker{
		WorkerID:        r.workerID,
		PID:             os.Getpid(),
		StartedAt:       now,
		LastHeartbeatAt: now,
		Hostname:        hostname,
		Version:         r.cfg.Version,
	}
	if err := r.store.RegisterWorker(ctx, w); err != nil {
		return fmt.Errorf("workerruntime: register %s: %w", r.workerID, err)
	}
	r.log.Info("worker registered", "worker_id", r.workerID, "pid", w.PID)

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})
	go r.loop(runCtx)
	return nil
}

// Stop requests graceful shutdown: the loop stops claiming new work,
// waits (up to timeout) for in-flight commands to finish reporting,
// and unregisters the worker row.
func (r *Runtime) Stop(timeout time.Duration) error {
	return r.TryStop(timeout, func() internal.DoneChan {
		r.cancel()
		done := make(internal.DoneChan)
		go func() {
			<-r.stopped
			close(done)
		}()
		return done
	})
}

func (r *Runtime) loop(ctx context.Context) {
	defer close(r.stopped)
	lastHeartbeat := time.Now().UTC()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.cleanup(context.Background())
			return
		default:
		}

		if time.Since(lastHeartbeat) >= r.cfg.HeartbeatInterval {
			if err := r.store.Heartbeat(context.Background(), r.workerID, time.Now().UTC()); err != nil {
				r.log.Error("heartbeat failed", "worker_id", r.workerID, "err", err)
			}
			lastHeartbeat = time.Now().UTC()
		}

		if !r.sem.TryAcquire(1) {
			select {
			case <-ctx.Done():
				continue
			case <-time.After(r.cfg.PollInterval):
				continue
			}
		}

		claimed, err := r.store.Claim(ctx, r.workerID)
		if err != nil {
			r.sem.Release(1)
			r.log.Error("claim failed", "worker_id", r.workerID, "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.PollInterval):
			}
			continue
		}
		if claimed == nil {
			r.sem.Release(1)
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.PollInterval):
			}
			continue
		}

		r.wg.Add(1)
		go func(j *job.Job) {
			defer r.wg.Done()
			defer r.sem.Release(1)
			r.safeExecuteAndReport(ctx, j)
		}(claimed)
	}
}

// safeExecuteAndReport recovers a panic escaping execution and reports
// it the same way the teacher's WorkerPool.safeHandle recovers a
// handler panic — except here the job itself must also be reported,
// mirroring the original worker's cleanup path for a job left in
// flight when the process dies unexpectedly.
func (r *Runtime) safeExecuteAndReport(ctx context.Context, j *job.Job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job execution panicked", "worker_id", r.workerID, "job_id", j.ID, "panic", rec)
			if err := r.queue.HandleFailure(context.Background(), j, "Worker interrupted during execution", r.cfg.BackoffBase, false); err != nil {
				r.log.Error("cannot report panicked job", "job_id", j.ID, "err", err)
			}
		}
	}()
	r.executeAndReport(ctx, j)
}

func (r *Runtime) executeAndReport(ctx context.Context, j *job.Job) {
	// Defensive: the command is validated non-empty at enqueue time, so
	// this should be unreachable, but an empty command at execution
	// time is not safely retryable (it would loop forever producing
	// the identical outcome) and is classified Failed rather than
	// silently rescheduled.
	if j.Command == "" {
		r.log.Error("job has empty command at execution time", "worker_id", r.workerID, "job_id", j.ID)
		if err := r.queue.HandleFailure(context.Background(), j, "Command is empty", r.cfg.BackoffBase, true); err != nil {
			r.log.Error("cannot report empty-command failure", "job_id", j.ID, "err", err)
		}
		return
	}

	r.log.Info("executing job", "worker_id", r.workerID, "job_id", j.ID, "command", j.Command)
	start := time.Now()
	result := runCommand(ctx, j, r.cfg.DefaultTimeout)
	duration := time.Since(start)

	if ctx.Err() != nil {
		r.log.Warn("job interrupted by shutdown", "worker_id", r.workerID, "job_id", j.ID, "duration", duration)
		if err := r.queue.HandleFailure(context.Background(), j, "Worker interrupted during execution", r.cfg.BackoffBase, false); err != nil {
			r.log.Error("cannot report interrupted job", "job_id", j.ID, "err", err)
		}
		return
	}

	if !result.failed {
		r.log.Info("job completed", "worker_id", r.workerID, "job_id", j.ID, "duration", duration)
		if err := r.queue.HandleSuccess(ctx, j); err != nil {
			r.log.Error("cannot report success", "job_id", j.ID, "err", err)
		}
		return
	}

	r.log.Warn("job failed", "worker_id", r.workerID, "job_id", j.ID, "duration", duration, "message", result.message)
	if err := r.queue.HandleFailure(ctx, j, result.message, r.cfg.BackoffBase, false); err != nil {
		r.log.Error("cannot report failure", "job_id", j.ID, "err", err)
	}
}

// cleanup deletes the Worker row once every in-flight command has
// already been waited on and reported by the caller (r.wg.Wait()). A
// job that is still genuinely mid-flight when the process is killed
// outright (no graceful shutdown at all) is picked up later by the
// Recovery Sweeper instead, per §4.5.
func (r *Runtime) cleanup(ctx context.Context) {
	if err := r.store.UnregisterWorker(ctx, r.workerID); err != nil {
		r.log.Error("cannot unregister worker", "worker_id", r.workerID, "err", err)
		return
	}
	r.log.Info("worker shutdown complete", "worker_id", r.workerID)
}
