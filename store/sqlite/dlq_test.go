package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

func seedDLQEntry(t *testing.T, s interface {
	ApplyFailureDLQ(ctx context.Context, w store.FailureDLQ) error
	Enqueue(ctx context.Context, j *job.Job) error
	Claim(ctx context.Context, workerID string) (*job.Job, error)
}, id string) {
	t.Helper()
	ctx := context.Background()
	if err := s.Enqueue(ctx, newPendingJob(id, 0)); err != nil {
		t.Fatal(err)
	}
	claimed, err := s.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	err = s.ApplyFailureDLQ(ctx, store.FailureDLQ{
		Job: claimed,
		Entry: &job.DLQEntry{
			ID:            id + "-dlq",
			OriginalJobID: claimed.ID,
			Command:       claimed.Command,
			Attempts:      2,
			LastError:     "exit 1",
			CreatedAt:     claimed.CreatedAt,
			UpdatedAt:     now,
			MovedAt:       now,
		},
		LastError: "exit 1",
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRetryFromDLQ(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDLQEntry(t, s, "j1")

	entry, err := s.GetDLQEntry(ctx, "j1-dlq")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Fatal("expected dlq entry")
	}

	newJob := newPendingJob(entry.OriginalJobID, 0)
	newJob.Command = entry.Command
	newJob.CreatedAt = entry.CreatedAt
	if err := s.RetryFromDLQ(ctx, entry.ID, newJob); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, newJob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != job.Pending {
		t.Fatalf("expected fresh pending job, got %v", got)
	}

	gone, err := s.GetDLQEntry(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Fatal("expected dlq entry deleted")
	}
}

func TestRetryFromDLQMissingEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.RetryFromDLQ(ctx, "missing", newPendingJob("new", 0))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeDLQ(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDLQEntry(t, s, "j1")
	seedDLQEntry(t, s, "j2")

	n, err := s.PurgeDLQ(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows purged, got %d", n)
	}

	count, err := s.DLQCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected dlq empty, got %d", count)
	}
}

func TestPurgeDLQOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDLQEntry(t, s, "j1")

	future := time.Now().UTC().Add(time.Hour)
	n, err := s.PurgeDLQ(ctx, &future)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row purged, got %d", n)
	}
}

func TestListDLQNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDLQEntry(t, s, "j1")
	time.Sleep(time.Millisecond)
	seedDLQEntry(t, s, "j2")

	entries, err := s.ListDLQ(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].OriginalJobID != "j2" {
		t.Fatalf("expected j2 first, got %v", entries)
	}
}
