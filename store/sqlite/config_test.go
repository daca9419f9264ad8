package sqlite_test

import (
	"context"
	"testing"
)

func TestConfigGetSetList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetConfig(ctx, "poll_interval_ms")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected unset key to report not ok")
	}

	if err := s.SetConfig(ctx, "poll_interval_ms", "200"); err != nil {
		t.Fatal(err)
	}
	val, ok, err := s.GetConfig(ctx, "poll_interval_ms")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || val != "200" {
		t.Fatalf("expected (200, true), got (%s, %v)", val, ok)
	}

	if err := s.SetConfig(ctx, "poll_interval_ms", "500"); err != nil {
		t.Fatal(err)
	}
	val, _, err = s.GetConfig(ctx, "poll_interval_ms")
	if err != nil {
		t.Fatal(err)
	}
	if val != "500" {
		t.Fatalf("expected last-writer-wins value 500, got %s", val)
	}

	all, err := s.ListConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["poll_interval_ms"] != "500" {
		t.Fatalf("expected single entry, got %v", all)
	}
}
