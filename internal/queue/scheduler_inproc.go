package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// InProcScheduler drives cron firing in-process via robfig/cron. Built
// with the standard 5-field UTC parser (no seconds field): the fixed
// cron grammar this system uses has no per-second resolution.
type InProcScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	queue   Queue
	entries map[string]*schedulerEntry
}

type schedulerEntry struct {
	CronEntry
	cronID cron.EntryID
}

func NewInProcScheduler(queue Queue) *InProcScheduler {
	return &InProcScheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		queue:   queue,
		entries: make(map[string]*schedulerEntry),
	}
}

// Start begins firing scheduled entries. Call once after seeding the
// initial schedule.
func (s *InProcScheduler) Start() {
	s.cron.Start()
}

func (s *InProcScheduler) Schedule(expr string, jobType string, payload map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newJobID()
	cronID, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.queue.EnqueueType(ctx, jobType, payload, EnqueueOptions{}); err != nil {
			return
		}
	})
	if err != nil {
		return "", fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}

	s.entries[id] = &schedulerEntry{
		CronEntry: CronEntry{
			ID:             id,
			CronExpression: expr,
			JobType:        jobType,
			Payload:        payload,
			Enabled:        true,
		},
		cronID: cronID,
	}
	return id, nil
}

func (s *InProcScheduler) Unschedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("scheduler: unknown entry %q", id)
	}
	s.cron.Remove(entry.cronID)
	delete(s.entries, id)
	return nil
}

func (s *InProcScheduler) List() []CronEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CronEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.CronEntry)
	}
	return out
}

func (s *InProcScheduler) StopAll() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*schedulerEntry)
}
