package sqlite_test

import (
	"context"
	"testing"

	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/store/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
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
	return db
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	return sqlite.New(newTestDB(t))
}
