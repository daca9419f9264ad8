// Package statemachine computes the legal Job transitions of §4.2. It
// is pure decision logic: given a Job snapshot and an outcome, it
// returns the write the store should apply, but performs no I/O
// itself. The queue package is responsible for calling into the store
// with the computed write inside the appropriate transaction.
package statemachine

import (
	"time"

	"github.com/queuectl/queuectl/backoff"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

const lastErrorMaxLen = 1000

func truncate(msg string) string {
	if len(msg) <= lastErrorMaxLen {
		return msg
	}
	return msg[:lastErrorMaxLen]
}

// Success computes the write for a Processing -> Completed transition.
// attempts is intentionally left untouched: attempts counts failed
// tries only.
func Success(j *job.Job, now time.Time) (id string, updatedAt time.Time) {
	return j.ID, now
}

// Outcome describes what the store must do after a failed execution:
// either retry it later (possibly marked Failed for observability
// rather than Pending) or move it to the DLQ.
type Outcome struct {
	Retry *store.FailureRetry
	DLQ   *store.FailureDLQ
}

// Failure computes the transition for a Processing job that failed
// execution, applying the off-by-one retry boundary of §4.2: the job
// may run up to MaxRetries+1 times before it is moved to the DLQ.
//
// observeAsFailed requests that, when the job is retried rather than
// DLQ'd, the store additionally mark it job.Failed instead of
// job.Pending (the narrow, non-retryable classification decided in
// SPEC_FULL.md §4.2) rather than schedule a normal retry. It has no
// effect once retries are exhausted — that path always goes to the
// DLQ regardless.
func Failure(j *job.Job, message string, cfg backoff.Config, now time.Time, observeAsFailed bool) Outcome {
	attempts := j.Attempts + 1
	lastError := truncate(message)

	if backoff.Exceeded(attempts, j.MaxRetries) {
		entry := &job.DLQEntry{
			ID:            "", // assigned by the caller (random id)
			OriginalJobID: j.ID,
			Command:       j.Command,
			Attempts:      attempts,
			LastError:     lastError,
			CreatedAt:     j.CreatedAt,
			UpdatedAt:     now,
			MovedAt:       now,
		}
		return Outcome{
			DLQ: &store.FailureDLQ{
				Job:       j,
				Entry:     entry,
				LastError: lastError,
				UpdatedAt: now,
			},
		}
	}

	delay := backoff.Delay(cfg, attempts)
	return Outcome{
		Retry: &store.FailureRetry{
			JobID:     j.ID,
			Attempts:  attempts,
			LastError: lastError,
			NextRunAt: now.Add(delay),
			UpdatedAt: now,
			Observe:   observeAsFailed,
		},
	}
}
