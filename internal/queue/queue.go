package queue

import (
	"context"
	"errors"
	"time"
)

// Queue is the shared capability set both variants implement: enqueue,
// dequeue, acknowledge, reject. Retry policy lives in the Dispatcher, not
// here — reject never re-enqueues.
type Queue interface {
	// Enqueue adds an already-constructed Job to the queue. Never blocks
	// on handler work.
	Enqueue(ctx context.Context, job *Job) error

	// EnqueueType is a convenience constructor + Enqueue in one call.
	EnqueueType(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*Job, error)

	// Dequeue returns the earliest eligible pending job and marks it
	// in-flight, or nil if none is eligible.
	Dequeue(ctx context.Context) (*Job, error)

	// Acknowledge removes a job from in-flight. Must be idempotent.
	Acknowledge(ctx context.Context, job *Job) error

	// Reject removes a job from in-flight without re-enqueueing.
	Reject(ctx context.Context, job *Job, cause error) error

	// Depth reports the current pending-queue size, for the stats
	// publisher and health checks.
	Depth(ctx context.Context) (int64, error)

	// ProcessingCount reports the current in-flight count.
	ProcessingCount(ctx context.Context) (int64, error)

	// StartPolling begins an internal poll loop invoking onJob for every
	// eligible job returned by Dequeue. Starting twice is a no-op.
	StartPolling(ctx context.Context, onJob func(context.Context, *Job))

	// StopPolling stops the internal poll loop. Safe to call when not
	// started.
	StopPolling()
}

var ErrQueueClosed = errors.New("queue: closed")

func newJobFromType(jobType string, payload map[string]interface{}, opts EnqueueOptions, now time.Time) *Job {
	maxAttempts, scheduledFor := opts.resolve(now)
	return &Job{
		ID:           newJobID(),
		Type:         jobType,
		Payload:      payload,
		Attempts:     0,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		ScheduledFor: scheduledFor,
	}
}
