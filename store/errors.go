package store

import "errors"

// Sentinel errors forming the error taxonomy of §7. Callers use
// errors.Is to classify a failure; concrete store implementations wrap
// these with context via fmt.Errorf("...: %w", ...).
var (
	// ErrBadSpec indicates a malformed or semantically invalid job
	// specification. Nothing is persisted.
	ErrBadSpec = errors.New("store: bad job specification")

	// ErrDuplicateID indicates an id collision on enqueue, or on a
	// same-id DLQ retry. Nothing is persisted.
	ErrDuplicateID = errors.New("store: duplicate job id")

	// ErrNotFound indicates a lookup (e.g. a DLQ retry) against a
	// missing id.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable indicates the durable store could not be reached
	// within its busy timeout. The operation may be retried; no
	// partial state was committed.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrCorrupted indicates an invariant violation discovered at read
	// time (an unknown state value, or a Processing job with no
	// worker_id). Fatal for the current operation.
	ErrCorrupted = errors.New("store: corrupted")
)
