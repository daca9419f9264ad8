package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/queuectl/queuectl/job"
)

func TestRegisterHeartbeatUnregisterWorker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	w := &job.Worker{
		WorkerID:        "worker-1",
		PID:             1234,
		StartedAt:       now,
		LastHeartbeatAt: now,
		Hostname:        "host-a",
		Version:         "test",
	}
	if err := s.RegisterWorker(ctx, w); err != nil {
		t.Fatal(err)
	}

	active, err := s.ActiveWorkers(ctx, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].WorkerID != "worker-1" {
		t.Fatalf("expected worker-1 active, got %v", active)
	}

	later := now.Add(time.Minute)
	if err := s.Heartbeat(ctx, "worker-1", later); err != nil {
		t.Fatal(err)
	}

	active, err = s.ActiveWorkers(ctx, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !active[0].LastHeartbeatAt.Equal(later) {
		t.Fatalf("expected heartbeat refreshed to %v, got %v", later, active[0].LastHeartbeatAt)
	}

	if err := s.UnregisterWorker(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	active, err = s.ActiveWorkers(ctx, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active workers, got %v", active)
	}
}

func TestActiveWorkersExcludesStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := time.Now().UTC().Add(-time.Hour)
	if err := s.RegisterWorker(ctx, &job.Worker{
		WorkerID:        "stale-worker",
		PID:             1,
		StartedAt:       stale,
		LastHeartbeatAt: stale,
		Hostname:        "host-a",
		Version:         "test",
	}); err != nil {
		t.Fatal(err)
	}

	active, err := s.ActiveWorkers(ctx, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("expected stale worker excluded, got %v", active)
	}
}

func TestRegisterWorkerUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	w := &job.Worker{WorkerID: "worker-1", PID: 1, StartedAt: now, LastHeartbeatAt: now, Hostname: "a", Version: "v1"}
	if err := s.RegisterWorker(ctx, w); err != nil {
		t.Fatal(err)
	}
	w2 := &job.Worker{WorkerID: "worker-1", PID: 2, StartedAt: now, LastHeartbeatAt: now, Hostname: "b", Version: "v2"}
	if err := s.RegisterWorker(ctx, w2); err != nil {
		t.Fatal(err)
	}

	active, err := s.ActiveWorkers(ctx, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].PID != 2 || active[0].Hostname != "b" {
		t.Fatalf("expected upsert to replace fields, got %v", active)
	}
}
