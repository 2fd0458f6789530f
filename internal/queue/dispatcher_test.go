package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapq/snapq-go/internal/logger"
)

func TestBackoffDelayIsDeterministicExponential(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0))
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
	assert.Equal(t, 8*time.Second, backoffDelay(3))
}

type countingHandler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *countingHandler) Handle(ctx context.Context, job *Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.err
}

func (h *countingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestDispatcherAcknowledgesOnSuccess(t *testing.T) {
	q := NewInProcQueue(2 * time.Millisecond)
	registry := NewRegistry()
	handler := &countingHandler{}
	registry.Register(JobMetadata{Type: "OK_JOB"}, handler)

	d := NewDispatcher(q, registry, logger.New("silent"), 2)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() {
		d.Stop()
		cancel()
	}()

	_, err := q.EnqueueType(context.Background(), "OK_JOB", nil, EnqueueOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return handler.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		depth, _ := q.Depth(context.Background())
		processing, _ := q.ProcessingCount(context.Background())
		return depth == 0 && processing == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherRetriesFailedJobWithNewID(t *testing.T) {
	q := NewInProcQueue(2 * time.Millisecond)
	registry := NewRegistry()
	handler := &countingHandler{err: errors.New("boom")}
	registry.Register(JobMetadata{Type: "FAIL_JOB"}, handler)

	d := NewDispatcher(q, registry, logger.New("silent"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() {
		d.Stop()
		cancel()
	}()

	original, err := q.EnqueueType(context.Background(), "FAIL_JOB", nil, EnqueueOptions{MaxAttempts: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return handler.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	// the retry is scheduled in the future via backoff, so it sits in the
	// pending list rather than being immediately redispatched.
	require.Eventually(t, func() bool {
		depth, _ := q.Depth(context.Background())
		return depth == 1
	}, time.Second, 5*time.Millisecond)

	q.mu.Lock()
	retry := q.pending[0]
	q.mu.Unlock()
	assert.NotEqual(t, original.ID, retry.ID)
	assert.Equal(t, 1, retry.Attempts)
	require.NotNil(t, retry.ScheduledFor)
	assert.True(t, retry.ScheduledFor.After(time.Now()))
}

func TestDispatcherAbandonsJobWithNoRegisteredHandler(t *testing.T) {
	q := NewInProcQueue(2 * time.Millisecond)
	registry := NewRegistry()

	d := NewDispatcher(q, registry, logger.New("silent"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() {
		d.Stop()
		cancel()
	}()

	_, err := q.EnqueueType(context.Background(), "UNKNOWN_JOB", nil, EnqueueOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		depth, _ := q.Depth(context.Background())
		processing, _ := q.ProcessingCount(context.Background())
		return depth == 0 && processing == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherAbandonsJobThatExhaustedAttempts(t *testing.T) {
	q := NewInProcQueue(2 * time.Millisecond)
	registry := NewRegistry()
	handler := &countingHandler{err: errors.New("boom")}
	registry.Register(JobMetadata{Type: "EXHAUSTED_JOB"}, handler)

	d := NewDispatcher(q, registry, logger.New("silent"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() {
		d.Stop()
		cancel()
	}()

	job := newJobFromType("EXHAUSTED_JOB", nil, EnqueueOptions{MaxAttempts: 1}, time.Now())
	job.Attempts = 1
	require.NoError(t, q.Enqueue(context.Background(), job))

	require.Eventually(t, func() bool {
		depth, _ := q.Depth(context.Background())
		processing, _ := q.ProcessingCount(context.Background())
		return depth == 0 && processing == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, handler.callCount(), "a job already at max attempts must be abandoned without invoking its handler")
}
