package sqlite

import (
	"database/sql"
	"errors"

	driver "modernc.org/sqlite"

	"github.com/queuectl/queuectl/store"
)

// sqliteBusyCode and sqliteLockedCode are modernc.org/sqlite's
// low-order primary result codes for SQLITE_BUSY and SQLITE_LOCKED:
// the database could not be locked within its busy_timeout pragma.
const (
	sqliteBusyCode   = 5
	sqliteLockedCode = 6
)

// classify maps a busy/locked sqlite error onto store.ErrUnavailable so
// callers can tell "retry me, nothing was committed" apart from a hard
// failure; every other error passes through unchanged.
func classify(err error) error {
	var sqliteErr *driver.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		if code == sqliteBusyCode || code == sqliteLockedCode {
			return store.ErrUnavailable
		}
	}
	return err
}

func isAffected(res sql.Result) bool {
	rows, err := res.RowsAffected()
	if err != nil {
		return true
	}
	return rows != 0
}

func getAffected(res sql.Result) int64 {
	ret, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return ret
}
