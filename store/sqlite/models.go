package sqlite

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/job"
)

type jobModel struct {
	bun.BaseModel `bun:"table:jobs"`

	ID      string `bun:"id,pk"`
	Command string `bun:"command,notnull"`

	Status     job.Status `bun:"status,notnull,default:1"`
	Attempts   uint32     `bun:"attempts,notnull,default:0"`
	MaxRetries uint32     `bun:"max_retries,notnull,default:3"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	NextRunAt time.Time `bun:"next_run_at,nullzero,notnull"`

	LastError      string  `bun:"last_error"`
	Priority       int32   `bun:"priority,notnull,default:0"`
	TimeoutSeconds *uint32 `bun:"timeout_seconds"`
	WorkerID       *string `bun:"worker_id"`
}

func (m *jobModel) toJob() *job.Job {
	return &job.Job{
		ID:             m.ID,
		Command:        m.Command,
		Status:         m.Status,
		Attempts:       m.Attempts,
		MaxRetries:     m.MaxRetries,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		NextRunAt:      m.NextRunAt,
		LastError:      m.LastError,
		Priority:       m.Priority,
		TimeoutSeconds: m.TimeoutSeconds,
		WorkerID:       m.WorkerID,
	}
}

func fromJob(j *job.Job) *jobModel {
	return &jobModel{
		ID:             j.ID,
		Command:        j.Command,
		Status:         j.Status,
		Attempts:       j.Attempts,
		MaxRetries:     j.MaxRetries,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		NextRunAt:      j.NextRunAt,
		LastError:      j.LastError,
		Priority:       j.Priority,
		TimeoutSeconds: j.TimeoutSeconds,
		WorkerID:       j.WorkerID,
	}
}

type dlqModel struct {
	bun.BaseModel `bun:"table:dlq"`

	ID            string `bun:"id,pk"`
	OriginalJobID string `bun:"original_job_id,notnull"`
	Command       string `bun:"command,notnull"`
	Attempts      uint32 `bun:"attempts,notnull"`
	LastError     string `bun:"last_error"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull"`
	MovedAt   time.Time `bun:"moved_at,nullzero,notnull"`
}

func (m *dlqModel) toEntry() *job.DLQEntry {
	return &job.DLQEntry{
		ID:            m.ID,
		OriginalJobID: m.OriginalJobID,
		Command:       m.Command,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		MovedAt:       m.MovedAt,
	}
}

func fromEntry(e *job.DLQEntry) *dlqModel {
	return &dlqModel{
		ID:            e.ID,
		OriginalJobID: e.OriginalJobID,
		Command:       e.Command,
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		MovedAt:       e.MovedAt,
	}
}

type workerModel struct {
	bun.BaseModel `bun:"table:workers"`

	WorkerID        string    `bun:"worker_id,pk"`
	PID             int       `bun:"pid,notnull"`
	StartedAt       time.Time `bun:"started_at,nullzero,notnull"`
	LastHeartbeatAt time.Time `bun:"last_heartbeat_at,nullzero,notnull"`
	Hostname        string    `bun:"hostname,notnull"`
	Version         string    `bun:"version,notnull"`
}

func (m *workerModel) toWorker() *job.Worker {
	return &job.Worker{
		WorkerID:        m.WorkerID,
		PID:             m.PID,
		StartedAt:       m.StartedAt,
		LastHeartbeatAt: m.LastHeartbeatAt,
		Hostname:        m.Hostname,
		Version:         m.Version,
	}
}

func fromWorker(w *job.Worker) *workerModel {
	return &workerModel{
		WorkerID:        w.WorkerID,
		PID:             w.PID,
		StartedAt:       w.StartedAt,
		LastHeartbeatAt: w.LastHeartbeatAt,
		Hostname:        w.Hostname,
		Version:         w.Version,
	}
}

type configModel struct {
	bun.BaseModel `bun:"table:config"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}
