package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open("file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := sqlite.InitSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	return sqlite.New(db)
}

func TestDefaultsApplyWhenUnset(t *testing.T) {
	m := config.New(newTestStore(t))
	ctx := context.Background()

	val, err := m.Get(ctx, "backoff_base")
	if err != nil {
		t.Fatal(err)
	}
	if val != "2" {
		t.Fatalf("expected default 2, got %s", val)
	}
}

func TestSetOverridesDefault(t *testing.T) {
	m := config.New(newTestStore(t))
	ctx := context.Background()

	if err := m.Set(ctx, "poll_interval_ms", "100"); err != nil {
		t.Fatal(err)
	}
	n, err := m.GetUint32(ctx, "poll_interval_ms", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 {
		t.Fatalf("expected 100, got %d", n)
	}
}

func TestGetDurationAppliesUnit(t *testing.T) {
	m := config.New(newTestStore(t))
	ctx := context.Background()

	if err := m.Set(ctx, "stale_worker_timeout_seconds", "30"); err != nil {
		t.Fatal(err)
	}
	d, err := m.GetDuration(ctx, "stale_worker_timeout_seconds", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if d != 30*time.Second {
		t.Fatalf("expected 30s, got %v", d)
	}
}

func TestGetOptionalUint32UnsetIsNil(t *testing.T) {
	m := config.New(newTestStore(t))
	ctx := context.Background()

	v, err := m.GetOptionalUint32(ctx, "default_timeout_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil, got %v", *v)
	}
}

func TestListIncludesDefaultsAndOverrides(t *testing.T) {
	m := config.New(newTestStore(t))
	ctx := context.Background()

	if err := m.Set(ctx, "max_retries", "7"); err != nil {
		t.Fatal(err)
	}
	all, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all["max_retries"] != "7" {
		t.Fatalf("expected override 7, got %s", all["max_retries"])
	}
	if all["backoff_base"] != "2" {
		t.Fatalf("expected default 2, got %s", all["backoff_base"])
	}
}
