// Package queue implements the job-execution subsystem: the Job type, the
// process-global handler Registry, the pluggable Queue (InProc/Broker) and
// Scheduler (InProc/External) interfaces, and the Dispatcher loop that
// drives them.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is immutable once enqueued except for Attempts on retry, which
// produces a new Job record rather than mutating the original.
type Job struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Payload      map[string]interface{} `json:"payload"`
	Attempts     int                    `json:"attempts"`
	MaxAttempts  int                    `json:"max_attempts"`
	CreatedAt    time.Time              `json:"created_at"`
	ScheduledFor *time.Time             `json:"scheduled_for,omitempty"`

	// receiptHandle carries the Broker variant's delete token; InProc
	// never populates it.
	receiptHandle string
}

// IsEligible reports whether the job's delay, if any, has elapsed.
func (j *Job) IsEligible(now time.Time) bool {
	return j.ScheduledFor == nil || !j.ScheduledFor.After(now)
}

// EnqueueOptions is the explicit struct the spec's duck-typed "options"
// bag becomes. ScheduledFor takes precedence over Delay when both are set.
type EnqueueOptions struct {
	MaxAttempts  int
	Delay        time.Duration
	ScheduledFor *time.Time
}

func (o EnqueueOptions) resolve(now time.Time) (maxAttempts int, scheduledFor *time.Time) {
	maxAttempts = o.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	switch {
	case o.ScheduledFor != nil:
		scheduledFor = o.ScheduledFor
	case o.Delay != 0:
		t := now.Add(o.Delay)
		scheduledFor = &t
	}
	return maxAttempts, scheduledFor
}

func newJobID() string {
	return uuid.New().String()
}

// JobHandler processes one job's payload. It is permitted to be slow; the
// dispatcher imposes no timeout beyond what a Broker's visibility window
// allows.
type JobHandler interface {
	Handle(ctx context.Context, job *Job) error
}

// JobMetadata describes a handler registered under a job type tag.
type JobMetadata struct {
	Type           string
	Name           string
	Description    string
	Category       string
	DefaultOptions EnqueueOptions
}

const (
	JobTypeHealthCheck       = "HEALTH_CHECK"
	JobTypeSnapshotPersist   = "SNAPSHOT_PERSIST"
	JobTypeSnapshotRetention = "SNAPSHOT_RETENTION"
)
