package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// Open opens a pure-Go sqlite connection at path (which may be
// "file::memory:" for an ephemeral store) in WAL journal mode with a
// busy timeout, and caps the pool at a single connection: sqlite
// serializes writers regardless, and a single connection turns that
// serialization into simple Go-level mutual exclusion instead of
// SQLITE_BUSY retries across separate connections.
func Open(path string) (*bun.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func createJobsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*jobModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func createDLQTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*dlqModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func createWorkersTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*workerModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func createConfigTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*configModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func createClaimIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_next").
		Column("status", "next_run_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createUpdatedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_updated").
		Column("status", "updated_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// createClaimOrderIndex backs the claim primitive's
// ORDER BY priority DESC, created_at ASC tie-break.
func createClaimOrderIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_priority_created").
		Column("priority", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// createCreatedAtIndex backs list's created_at-ordered scans.
func createCreatedAtIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_created_at").
		Column("created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createDLQMovedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*dlqModel)(nil)).
		Index("idx_dlq_moved_at").
		Column("moved_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// createWorkerHeartbeatIndex backs the stale-worker sweep's scan over
// workers ordered by last_heartbeat_at.
func createWorkerHeartbeatIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*workerModel)(nil)).
		Index("idx_workers_last_heartbeat").
		Column("last_heartbeat_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initSchema(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []func(context.Context, bun.IDB) error{
		createJobsTable,
		createDLQTable,
		createWorkersTable,
		createConfigTable,
		createClaimIndex,
		createUpdatedIndex,
		createClaimOrderIndex,
		createCreatedAtIndex,
		createDLQMovedIndex,
		createWorkerHeartbeatIndex,
	}
	for _, step := range steps {
		if err := step(ctx, tx); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// InitSchema creates the jobs, dlq, workers, and config tables and
// their indexes — including the claim ordering, created_at listing,
// DLQ moved_at, and worker heartbeat staleness indexes — inside a
// single transaction, rolling back entirely on any failure. It is
// idempotent and safe to call on every startup.
func InitSchema(ctx context.Context, db *bun.DB) error {
	return initSchema(ctx, db)
}
