// Package statspublisher upserts a single heartbeat row per worker
// identity on a fixed interval, and on every dispatch-loop boundary in
// external-dispatch mode where the process is frozen between events.
package statspublisher

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/queue"
)

// Publisher computes and upserts the worker_stats row. lastHeartbeat is
// monotonic within one process: PushNow takes time.Now(), moves it 1ms
// past the previous value when the clock has not advanced, and calls are
// serialized by mu.
type Publisher struct {
	db       *gorm.DB
	log      *logger.Logger
	workerID string
	mode     string
	q        queue.Queue
	sched    queue.Scheduler
	registry *queue.Registry

	mu   sync.Mutex
	last time.Time

	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(db *gorm.DB, log *logger.Logger, cfg *config.Config, workerID string, q queue.Queue, sched queue.Scheduler, registry *queue.Registry) *Publisher {
	return &Publisher{
		db:       db,
		log:      log,
		workerID: workerID,
		mode:     string(cfg.WorkerMode),
		q:        q,
		sched:    sched,
		registry: registry,
		interval: 30 * time.Second,
	}
}

// Start begins the fixed-interval heartbeat ticker. Only meaningful in
// InProc mode; external-dispatch callers should call PushNow directly
// instead, since the container is frozen between invocations.
func (p *Publisher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.PushNow(ctx); err != nil {
					p.log.Warnw("stats publisher: heartbeat failed", "error", err)
				}
			}
		}
	}()
}

func (p *Publisher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// PushNow computes the current snapshot and upserts it immediately.
func (p *Publisher) PushNow(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	depth, err := p.q.Depth(ctx)
	if err != nil {
		depth = 0
	}
	processing, err := p.q.ProcessingCount(ctx)
	if err != nil {
		processing = 0
	}

	entries := p.sched.List()
	scheduled := make(models.JSONList, 0, len(entries))
	for _, e := range entries {
		scheduled = append(scheduled, e)
	}

	types := p.registry.Types()
	available := make(models.JSONList, 0, len(types))
	for _, t := range types {
		available = append(available, t)
	}

	now := time.Now()
	if !p.last.IsZero() && !now.After(p.last) {
		now = p.last.Add(time.Millisecond)
	}
	p.last = now

	row := models.WorkerStatsRow{
		WorkerID:           p.workerID,
		Mode:               p.mode,
		QueueDepth:         depth,
		ProcessingCount:    processing,
		ScheduledJobsCount: int64(len(entries)),
		ScheduledJobs:      scheduled,
		AvailableJobsCount: int64(len(types)),
		AvailableJobs:      available,
		LastHeartbeatAt:    now,
	}

	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mode", "queue_depth", "processing_count",
			"scheduled_jobs_count", "scheduled_jobs",
			"available_jobs_count", "available_jobs",
			"last_heartbeat_at", "updated_at",
		}),
	}).Create(&row).Error
}
