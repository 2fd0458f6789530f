package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/queue"
	"github.com/snapq/snapq-go/internal/statspublisher"
	"github.com/snapq/snapq-go/internal/workerinfo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel)
	log.Infow("starting snapq worker", "worker_mode", cfg.WorkerMode)

	db, err := connectForMode(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	registry := buildRegistry(db, log, cfg)

	q, err := queue.NewWorkerSideQueue(context.Background(), queue.QueueConfig{
		WorkerMode:   string(cfg.WorkerMode),
		WorkerURL:    cfg.WorkerURL,
		SQSQueueURL:  cfg.SQSQueueURL,
		AWSRegion:    cfg.AWSRegion,
		PollInterval: cfg.QueuePollInterval,
	})
	if err != nil {
		log.Fatal("failed to initialize queue", "error", err)
	}

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		workerID = uuid.NewString()
	}

	if cfg.WorkerMode == config.WorkerModeLambda {
		runLambdaInvocation(db, log, cfg, workerID, q, registry)
		return
	}

	runLongLivedWorker(db, log, cfg, workerID, q, registry)
}

// connectForMode picks the pooled gorm connection for a long-lived local
// worker, or the single-connection pool database.ConnectServerless uses
// for a frozen-container lambda invocation.
func connectForMode(cfg *config.Config) (*gorm.DB, error) {
	if cfg.WorkerMode == config.WorkerModeLambda {
		return database.ConnectServerless(cfg)
	}
	return database.Connect(cfg)
}

func buildRegistry(db *gorm.DB, log *logger.Logger, cfg *config.Config) *queue.Registry {
	registry := queue.NewRegistry()
	registry.Register(queue.JobMetadata{
		Type:        queue.JobTypeHealthCheck,
		Name:        "Health Check",
		Description: "no-op liveness probe job fired by the default cron entry",
		Category:    "system",
	}, queue.NewHealthCheckHandler(log))
	registry.Register(queue.JobMetadata{
		Type:        queue.JobTypeSnapshotPersist,
		Name:        "Snapshot Persist",
		Description: "writes a captured request/response snapshot to Postgres",
		Category:    "snapshot",
	}, queue.NewSnapshotPersistHandler(db))
	registry.Register(queue.JobMetadata{
		Type:        queue.JobTypeSnapshotRetention,
		Name:        "Snapshot Retention",
		Description: "deletes request snapshots older than the retention window",
		Category:    "snapshot",
	}, queue.NewSnapshotRetentionHandler(db, log, time.Duration(cfg.SnapshotRetentionDays)*24*time.Hour))
	return registry
}

// defaultCronEntries is the compiled-in schedule both scheduler variants
// seed at startup: a per-minute liveness job (Testable Property / Scenario
// S5 uses exactly this entry) and a daily snapshot retention sweep.
func defaultCronEntries() []queue.CronEntry {
	return []queue.CronEntry{
		{ID: "health-check", CronExpression: "* * * * *", JobType: queue.JobTypeHealthCheck, Enabled: true},
		{ID: "snapshot-retention", CronExpression: "0 3 * * *", JobType: queue.JobTypeSnapshotRetention, Enabled: true},
	}
}

func seedCronEntries(s *queue.InProcScheduler, log *logger.Logger) {
	for _, entry := range defaultCronEntries() {
		if _, err := s.Schedule(entry.CronExpression, entry.JobType, entry.Payload); err != nil {
			log.Infow("failed to seed cron entry", "job_type", entry.JobType, "error", err)
		}
	}
}

func runLambdaInvocation(db *gorm.DB, log *logger.Logger, cfg *config.Config, workerID string, q queue.Queue, registry *queue.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	scheduler := queue.NewExternalScheduler(defaultCronEntries())
	publisher := statspublisher.New(db, log, cfg, workerID, q, scheduler, registry)
	if err := publisher.PushNow(ctx); err != nil {
		log.Infow("heartbeat push failed", "error", err)
	}

	job, err := q.Dequeue(ctx)
	if err != nil {
		log.Fatal("dequeue failed", "error", err)
	}
	if job == nil {
		return
	}

	handler, ok := registry.Lookup(job.Type)
	if !ok {
		log.Infow("no handler for job type, rejecting", "job_type", job.Type)
		_ = q.Reject(ctx, job, fmt.Errorf("unregistered job type %q", job.Type))
		return
	}

	if err := handler.Handle(ctx, job); err != nil {
		log.Infow("lambda invocation job failed", "job_type", job.Type, "error", err)
		_ = q.Reject(ctx, job, err)
		return
	}
	if err := q.Acknowledge(ctx, job); err != nil {
		log.Infow("failed to acknowledge job", "job_type", job.Type, "error", err)
	}
}

func runLongLivedWorker(db *gorm.DB, log *logger.Logger, cfg *config.Config, workerID string, q queue.Queue, registry *queue.Registry) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := queue.NewInProcScheduler(q)
	seedCronEntries(scheduler, log)
	scheduler.Start()

	dispatcher := queue.NewDispatcher(q, registry, log, cfg.DispatcherConcurrency)
	dispatcher.Start(ctx)
	log.Infow("dispatcher started", "concurrency", cfg.DispatcherConcurrency)

	publisher := statspublisher.New(db, log, cfg, workerID, q, scheduler, registry)
	publisher.Start(ctx)

	introspection := workerinfo.NewHandler(registry, q, scheduler, db)
	router := gin.New()
	router.Use(gin.Recovery())
	introspection.Register(router)

	httpServer := &http.Server{
		Addr:    ":" + workerPortFromURL(cfg.WorkerURL),
		Handler: router,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("worker introspection server failed", "error", err)
		}
	}()
	log.Infow("worker introspection server started", "addr", httpServer.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	scheduler.StopAll()
	dispatcher.Stop()
	publisher.Stop()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	log.Info("worker exited")
}

// workerPortFromURL extracts the listen port from WORKER_URL so the
// worker's own introspection server binds the port its own config says
// to reach it on.
func workerPortFromURL(workerURL string) string {
	u, err := url.Parse(workerURL)
	if err != nil || u.Port() == "" {
		return "8081"
	}
	return u.Port()
}
