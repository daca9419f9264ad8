package sweeper_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store/sqlite"
	"github.com/queuectl/queuectl/sweeper"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	require.NoError(t, sqlite.InitSchema(ctx, db))
	return sqlite.New(db)
}

func TestRunRecoversJobsWithMissingWorker(t *testing.T) {
	s := newTestStore(t)
	q := queue.New(s)
	ctx := context.Background()

	id, err := q.ValidateAndEnqueue(ctx, `{"command":"echo hi","id":"j1"}`, 3)
	require.NoError(t, err)

	_, err = s.Claim(ctx, "ghost-worker")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := sweeper.New(s, sweeper.Config{StaleTimeout: 30 * time.Second, BackoffBase: 2}, log)

	n, err := sw.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	require.Equal(t, job.Pending, got.Status)
	require.EqualValues(t, 1, got.Attempts)
}

func TestRunNoOpWhenNoneStale(t *testing.T) {
	s := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := sweeper.New(s, sweeper.Config{StaleTimeout: 30 * time.Second, BackoffBase: 2}, log)

	n, err := sw.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRunDLQsJobWithExhaustedRetries(t *testing.T) {
	s := newTestStore(t)
	q := queue.New(s)
	ctx := context.Background()

	_, err := q.ValidateAndEnqueue(ctx, `{"command":"echo hi","id":"j1","max_retries":0}`, 3)
	require.NoError(t, err)

	_, err = s.Claim(ctx, "ghost-worker")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := sweeper.New(s, sweeper.Config{StaleTimeout: 30 * time.Second, BackoffBase: 2}, log)

	n, err := sw.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	entries, err := s.ListDLQ(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "j1", entries[0].OriginalJobID)
}

func TestStartPeriodicAndStop(t *testing.T) {
	s := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := sweeper.New(s, sweeper.Config{StaleTimeout: 30 * time.Second, BackoffBase: 2, Interval: 10 * time.Millisecond}, log)

	ctx := context.Background()
	require.NoError(t, sw.StartPeriodic(ctx))
	require.NoError(t, sw.Stop(time.Second))
}
