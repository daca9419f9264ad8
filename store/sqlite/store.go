// Package sqlite is the reference Durable Store backend of §4.1: bun
// over modernc.org/sqlite (pure Go, no cgo), WAL journal mode, and a
// single pooled connection so that sqlite's own writer serialization
// is the only serialization in play. It implements store.Store.
package sqlite

import (
	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/store"
)

// Store is the bun/sqlite implementation of store.Store.
type Store struct {
	db *bun.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an already-opened, already-initialized *bun.DB. Callers
// typically obtain db via Open and InitSchema.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
