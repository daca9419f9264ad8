package job

import "time"

// Job is a unit of work: a shell command line plus delivery state and
// scheduling metadata.
//
// Job values returned by the store are snapshots. Mutating fields
// directly does not change durable state; transitions happen only
// through the claim primitive or a Queue Manager outcome.
type Job struct {
	ID      string
	Command string

	Status         Status
	Attempts       uint32
	MaxRetries     uint32
	CreatedAt      time.Time
	UpdatedAt      time.Time
	NextRunAt      time.Time
	LastError      string
	Priority       int32
	TimeoutSeconds *uint32
	WorkerID       *string
}

// DLQEntry is an independent snapshot of a job whose retry budget was
// exhausted. It has no foreign-key relationship to any Job row: the
// original Job row is deleted in the same transaction that inserts it.
type DLQEntry struct {
	ID             string
	OriginalJobID  string
	Command        string
	Attempts       uint32
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	MovedAt        time.Time
}

// Worker is a live worker registration. A worker is active iff
// now−LastHeartbeatAt <= the configured stale_worker_timeout_seconds.
type Worker struct {
	WorkerID        string
	PID             int
	StartedAt       time.Time
	LastHeartbeatAt time.Time
	Hostname        string
	Version         string
}

// ConfigEntry is a single (key, value) row in the config table.
type ConfigEntry struct {
	Key   string
	Value string
}
