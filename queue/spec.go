package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

// jobSpec is the wire shape of §6's job specification document.
// encoding/json (stdlib) is used deliberately here — see DESIGN.md:
// a single small struct-decode doesn't warrant a third-party codec.
type jobSpec struct {
	Command        string  `json:"command"`
	ID             *string `json:"id"`
	MaxRetries     *int    `json:"max_retries"`
	Priority       *int    `json:"priority"`
	RunAt          *string `json:"run_at"`
	TimeoutSeconds *int    `json:"timeout_seconds"`
}

// parseSpec parses and validates specText into a Job ready to be
// inserted, applying defaultMaxRetries when max_retries is absent.
// now is the enqueue timestamp used for created_at/updated_at and, if
// run_at is absent, next_run_at.
func parseSpec(specText string, defaultMaxRetries uint32, now time.Time) (*job.Job, error) {
	var spec jobSpec
	dec := json.NewDecoder(strings.NewReader(specText))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("queue: parse job spec: %w: %v", store.ErrBadSpec, err)
	}

	if spec.Command == "" {
		return nil, fmt.Errorf("queue: job spec missing \"command\": %w", store.ErrBadSpec)
	}

	id := spec.ID
	var idVal string
	if id != nil && *id != "" {
		idVal = *id
	} else {
		idVal = uuid.NewString()
	}

	maxRetries := defaultMaxRetries
	if spec.MaxRetries != nil {
		if *spec.MaxRetries < 0 {
			return nil, fmt.Errorf("queue: max_retries must be >= 0: %w", store.ErrBadSpec)
		}
		maxRetries = uint32(*spec.MaxRetries)
	}

	var priority int32
	if spec.Priority != nil {
		priority = int32(*spec.Priority)
	}

	runAt := now
	if spec.RunAt != nil {
		parsed, err := time.Parse(time.RFC3339, *spec.RunAt)
		if err != nil {
			return nil, fmt.Errorf("queue: invalid run_at %q: %w", *spec.RunAt, store.ErrBadSpec)
		}
		runAt = parsed
	}

	var timeout *uint32
	if spec.TimeoutSeconds != nil {
		if *spec.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("queue: timeout_seconds must be > 0: %w", store.ErrBadSpec)
		}
		t := uint32(*spec.TimeoutSeconds)
		timeout = &t
	}

	return &job.Job{
		ID:             idVal,
		Command:        spec.Command,
		Status:         job.Pending,
		Attempts:       0,
		MaxRetries:     maxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
		NextRunAt:      runAt,
		Priority:       priority,
		TimeoutSeconds: timeout,
	}, nil
}
