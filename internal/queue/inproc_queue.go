package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InProcQueue is a pure in-memory queue: an ordered pending list plus an
// in-flight set, guarded by a single mutex. Intentionally volatile across
// restarts — no durable local queue, per the non-goal.
type InProcQueue struct {
	mu        sync.Mutex
	pending   []*Job
	inFlight  map[string]*Job
	pollEvery time.Duration

	pollCancel context.CancelFunc
	pollWG     sync.WaitGroup
	polling    bool
}

func NewInProcQueue(pollInterval time.Duration) *InProcQueue {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &InProcQueue{
		inFlight:  make(map[string]*Job),
		pollEvery: pollInterval,
	}
}

func (q *InProcQueue) Enqueue(ctx context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insertPending(job)
	return nil
}

func (q *InProcQueue) EnqueueType(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*Job, error) {
	job := newJobFromType(jobType, payload, opts, time.Now())
	if err := q.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// insertPending keeps the pending list ordered: immediate jobs (no
// scheduledFor) in insertion order first, delayed jobs sorted by
// scheduledFor. A full resort on every insert is O(n log n) but the
// InProc variant is intended for modest local depth.
func (q *InProcQueue) insertPending(job *Job) {
	q.pending = append(q.pending, job)
	sort.SliceStable(q.pending, func(i, j int) bool {
		a, b := q.pending[i], q.pending[j]
		switch {
		case a.ScheduledFor == nil && b.ScheduledFor == nil:
			return false
		case a.ScheduledFor == nil:
			return true
		case b.ScheduledFor == nil:
			return false
		default:
			return a.ScheduledFor.Before(*b.ScheduledFor)
		}
	})
}

func (q *InProcQueue) Dequeue(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for i, job := range q.pending {
		if job.IsEligible(now) {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.inFlight[job.ID] = job
			return job, nil
		}
	}
	return nil, nil
}

func (q *InProcQueue) Acknowledge(ctx context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, job.ID)
	return nil
}

func (q *InProcQueue) Reject(ctx context.Context, job *Job, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, job.ID)
	return nil
}

func (q *InProcQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

func (q *InProcQueue) ProcessingCount(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.inFlight)), nil
}

func (q *InProcQueue) StartPolling(ctx context.Context, onJob func(context.Context, *Job)) {
	q.mu.Lock()
	if q.polling {
		q.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	q.pollCancel = cancel
	q.polling = true
	q.mu.Unlock()

	q.pollWG.Add(1)
	go func() {
		defer q.pollWG.Done()
		ticker := time.NewTicker(q.pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				job, err := q.Dequeue(pollCtx)
				if err != nil || job == nil {
					continue
				}
				onJob(pollCtx, job)
			}
		}
	}()
}

func (q *InProcQueue) StopPolling() {
	q.mu.Lock()
	cancel := q.pollCancel
	q.polling = false
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.pollWG.Wait()
}
