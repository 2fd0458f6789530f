package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database"
	"github.com/snapq/snapq-go/internal/geo"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/queue"
	"github.com/snapq/snapq-go/internal/redisx"
	"github.com/snapq/snapq-go/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel)
	log.Infow("starting snapq API server", "version", server.BuildVersion)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	rdb, err := redisx.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}

	resolver, err := geo.NewResolver(cfg.GeoDBPath)
	if err != nil {
		log.Fatal("failed to load geo database", "error", err)
	}

	q, err := queue.NewAPISideQueue(context.Background(), queue.QueueConfig{
		WorkerMode:  string(cfg.WorkerMode),
		WorkerURL:   cfg.WorkerURL,
		SQSQueueURL: cfg.SQSQueueURL,
		AWSRegion:   cfg.AWSRegion,
	})
	if err != nil {
		log.Fatal("failed to initialize queue", "error", err)
	}

	srv := server.New(cfg, db, rdb, log, q, resolver)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        srv.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	log.Infow("server started", "port", cfg.Port, "worker_mode", cfg.WorkerMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
