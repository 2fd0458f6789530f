package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RemoteQueue is the API process's view of the worker's in-memory queue in
// local mode: the two run as separate OS processes, so Enqueue/Depth/
// ProcessingCount cross that boundary over HTTP against the worker's own
// introspection surface (WORKER_URL) instead of touching an InProcQueue
// value directly, which would only be reachable within the worker's own
// heap. Dequeue/Acknowledge/Reject/StartPolling/StopPolling are the
// dispatcher's concern and belong to the worker process alone; RemoteQueue
// never dispatches.
type RemoteQueue struct {
	baseURL string
	client  *http.Client
}

func NewRemoteQueue(baseURL string) *RemoteQueue {
	return &RemoteQueue{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

var ErrRemoteQueueOnly = errors.New("queue: operation belongs to the worker process, not the API-side remote handle")

type remoteEnqueueRequest struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	Delay   int                    `json:"delay_seconds,omitempty"`
}

func (q *RemoteQueue) Enqueue(ctx context.Context, job *Job) error {
	delay := 0
	if job.ScheduledFor != nil {
		if d := time.Until(*job.ScheduledFor); d > 0 {
			delay = int(d.Seconds())
		}
	}
	created, err := q.EnqueueType(ctx, job.Type, job.Payload, EnqueueOptions{MaxAttempts: job.MaxAttempts, Delay: time.Duration(delay) * time.Second})
	if err != nil {
		return err
	}
	*job = *created
	return nil
}

func (q *RemoteQueue) EnqueueType(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*Job, error) {
	delaySeconds := 0
	if opts.Delay > 0 {
		delaySeconds = int(opts.Delay.Seconds())
	}
	body, err := json.Marshal(remoteEnqueueRequest{Type: jobType, Payload: payload, Delay: delaySeconds})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal enqueue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/jobs/enqueue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue over worker introspection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("queue: worker rejected enqueue with status %d", resp.StatusCode)
	}

	var envelope struct {
		Data Job `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("queue: decode enqueue response: %w", err)
	}
	return &envelope.Data, nil
}

func (q *RemoteQueue) Dequeue(ctx context.Context) (*Job, error) {
	return nil, ErrRemoteQueueOnly
}

func (q *RemoteQueue) Acknowledge(ctx context.Context, job *Job) error {
	return ErrRemoteQueueOnly
}

func (q *RemoteQueue) Reject(ctx context.Context, job *Job, cause error) error {
	return ErrRemoteQueueOnly
}

func (q *RemoteQueue) Depth(ctx context.Context) (int64, error) {
	var stats struct {
		Data struct {
			Depth int64 `json:"depth"`
		} `json:"data"`
	}
	if err := q.getJSON(ctx, "/worker/queue/stats", &stats); err != nil {
		return 0, err
	}
	return stats.Data.Depth, nil
}

func (q *RemoteQueue) ProcessingCount(ctx context.Context) (int64, error) {
	var stats struct {
		Data struct {
			Processing int64 `json:"processing"`
		} `json:"data"`
	}
	if err := q.getJSON(ctx, "/worker/queue/stats", &stats); err != nil {
		return 0, err
	}
	return stats.Data.Processing, nil
}

func (q *RemoteQueue) StartPolling(ctx context.Context, onJob func(context.Context, *Job)) {
}

func (q *RemoteQueue) StopPolling() {
}

func (q *RemoteQueue) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("queue: call worker introspection %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("queue: worker introspection %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
