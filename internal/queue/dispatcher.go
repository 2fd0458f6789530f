package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/snapq/snapq-go/internal/logger"
)

// Dispatcher drives a Queue's poll loop and applies retry/backoff policy
// around a Registry of handlers. A job is acknowledged after its handler
// returns nil, after a failed attempt once its retry has been passed to
// Enqueue (the original is acknowledged even if that Enqueue fails), or
// after it is deliberately abandoned (missing handler, attempts exhausted,
// handler panic).
type Dispatcher struct {
	queue    Queue
	registry *Registry
	log      *logger.Logger

	concurrency int
	sem         chan struct{}
	wg          sync.WaitGroup

	cancel context.CancelFunc
}

func NewDispatcher(queue Queue, registry *Registry, log *logger.Logger, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		queue:       queue,
		registry:    registry,
		log:         log,
		concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
	}
}

// Start begins polling the queue. process runs in its own goroutine per
// job, bounded by the configured concurrency.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.queue.StartPolling(ctx, func(jobCtx context.Context, job *Job) {
		d.sem <- struct{}{}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() { <-d.sem }()
			d.process(jobCtx, job)
		}()
	})
}

// Stop cancels the poll loop and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.queue.StopPolling()
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// process implements the exact per-job decision sequence: exhausted
// attempts are abandoned, a missing handler is abandoned as poison, a
// successful handler call acknowledges, and a failed call re-enqueues a
// new job at attempts+1 with exponential backoff before acknowledging the
// original (the failed attempt is never retried in place).
func (d *Dispatcher) process(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("dispatcher: recovered panic processing job", "job_id", job.ID, "job_type", job.Type, "panic", r)
			if err := d.queue.Acknowledge(ctx, job); err != nil {
				d.log.Errorw("dispatcher: ack after panic failed", "job_id", job.ID, "error", err)
			}
		}
	}()

	if job.Attempts >= job.MaxAttempts {
		d.log.Warnw("dispatcher: job exhausted retries, abandoning", "job_id", job.ID, "job_type", job.Type, "attempts", job.Attempts)
		if err := d.queue.Acknowledge(ctx, job); err != nil {
			d.log.Errorw("dispatcher: ack after exhaustion failed", "job_id", job.ID, "error", err)
		}
		return
	}

	handler, ok := d.registry.Lookup(job.Type)
	if !ok {
		d.log.Errorw("dispatcher: no handler registered, abandoning as poison", "job_id", job.ID, "job_type", job.Type)
		if err := d.queue.Acknowledge(ctx, job); err != nil {
			d.log.Errorw("dispatcher: ack for poison job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	start := time.Now()
	err := handler.Handle(ctx, job)
	duration := time.Since(start)
	DispatchDuration.WithLabelValues(job.Type).Observe(duration.Seconds())

	if err == nil {
		DispatchTotal.WithLabelValues(job.Type, "success").Inc()
		d.log.Debugw("dispatcher: job succeeded", "job_id", job.ID, "job_type", job.Type, "duration_ms", duration.Milliseconds())
		if ackErr := d.queue.Acknowledge(ctx, job); ackErr != nil {
			d.log.Errorw("dispatcher: ack after success failed", "job_id", job.ID, "error", ackErr)
		}
		return
	}

	nextAttempts := job.Attempts + 1
	if nextAttempts >= job.MaxAttempts {
		DispatchTotal.WithLabelValues(job.Type, "exhausted").Inc()
		d.log.Errorw("dispatcher: job failed on final attempt, abandoning", "job_id", job.ID, "job_type", job.Type, "attempts", nextAttempts, "error", err)
		if ackErr := d.queue.Acknowledge(ctx, job); ackErr != nil {
			d.log.Errorw("dispatcher: ack after final failure failed", "job_id", job.ID, "error", ackErr)
		}
		return
	}

	delay := backoffDelay(job.Attempts)
	scheduledFor := time.Now().Add(delay)
	retry := &Job{
		ID:           newJobID(),
		Type:         job.Type,
		Payload:      job.Payload,
		Attempts:     nextAttempts,
		MaxAttempts:  job.MaxAttempts,
		CreatedAt:    time.Now(),
		ScheduledFor: &scheduledFor,
	}

	if enqueueErr := d.queue.Enqueue(ctx, retry); enqueueErr != nil {
		d.log.Errorw("dispatcher: retry enqueue failed", "job_id", job.ID, "error", enqueueErr)
	} else {
		DispatchTotal.WithLabelValues(job.Type, "retry").Inc()
		d.log.Warnw("dispatcher: job failed, retry scheduled", "job_id", job.ID, "retry_job_id", retry.ID, "job_type", job.Type, "attempts", nextAttempts, "delay", delay, "error", err)
	}

	if ackErr := d.queue.Acknowledge(ctx, job); ackErr != nil {
		d.log.Errorw("dispatcher: ack of original after retry scheduling failed", "job_id", job.ID, "error", ackErr)
	}
}

// backoffDelay computes 2^attempts * 1s using a deterministic, zero-
// jitter exponential backoff sequence (RandomizationFactor disabled so
// the result matches the fixed formula exactly rather than approximating
// it).
func backoffDelay(attempts int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = 24 * time.Hour
	eb.MaxElapsedTime = 0
	eb.Reset()

	delay := eb.NextBackOff()
	for i := 0; i < attempts; i++ {
		delay = eb.NextBackOff()
	}
	return delay
}
