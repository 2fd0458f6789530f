// Package health implements the three health surfaces: the admin-gated
// composite check, and the two ungated orchestrator probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/logger"
)

const workerCallTimeout = 5 * time.Second
const staleAfter = 300 * time.Second

// Handler serves /health, /health/liveness, /health/readiness.
type Handler struct {
	db  *gorm.DB
	rdb *redis.Client
	log *logger.Logger

	workerURL     string
	workerClient  *http.Client
	workerBreaker *gobreaker.CircuitBreaker
	startedAt     time.Time
	version       string
}

// NewHandler wires the composite health check. workerURL is the worker
// process's own introspection listener (WORKER_URL) — in lambda mode there
// is no standing worker HTTP server, so workerURL is typically empty and
// checkWorker degrades gracefully rather than dialing out.
func NewHandler(db *gorm.DB, rdb *redis.Client, log *logger.Logger, version string, workerURL string) *Handler {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "worker-introspection",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Handler{
		db:            db,
		rdb:           rdb,
		log:           log,
		workerURL:     workerURL,
		workerClient:  &http.Client{Timeout: workerCallTimeout},
		workerBreaker: breaker,
		startedAt:     time.Now(),
		version:       version,
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// GetHealth reports composite status: healthy only if every dependency is
// healthy, degraded if the worker heartbeat is stale but storage is fine,
// unhealthy if a hard dependency (database) is down.
func (h *Handler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	dbCheck := h.checkDatabase(ctx)
	redisCheck := h.checkRedis(ctx)
	workerCheck := h.checkWorker(ctx)

	status := "healthy"
	switch {
	case dbCheck.Status != "healthy":
		status = "unhealthy"
	case redisCheck.Status != "healthy", workerCheck.Status != "healthy":
		status = "degraded"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, apperror.DataEnvelope(gin.H{
		"status":    status,
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).String(),
		"database":  dbCheck,
		"redis":     redisCheck,
		"worker":    workerCheck,
		"timestamp": time.Now(),
	}, nil))
}

func (h *Handler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now()})
}

func (h *Handler) GetReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealthy := h.checkDatabase(ctx).Status == "healthy"
	redisHealthy := h.checkRedis(ctx).Status == "healthy"

	if dbHealthy && redisHealthy {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now()})
		return
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":    "not_ready",
		"timestamp": time.Now(),
		"database":  dbHealthy,
		"redis":     redisHealthy,
	})
}

func (h *Handler) checkDatabase(ctx context.Context) checkResult {
	if h.db == nil {
		return checkResult{Status: "unhealthy", Message: "database not initialized"}
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	return checkResult{Status: "healthy"}
}

func (h *Handler) checkRedis(ctx context.Context) checkResult {
	if h.rdb == nil {
		return checkResult{Status: "unhealthy", Message: "redis not initialized"}
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	return checkResult{Status: "healthy"}
}

type workerStatsResponse struct {
	Data struct {
		LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	} `json:"data"`
}

// checkWorker calls out to the worker process's own introspection endpoint
// when one is reachable (local mode, WORKER_URL set), through a circuit
// breaker so a wedged worker doesn't keep the admin /health path hanging
// on a 5s timeout on every call. In lambda mode there is no standing
// worker listener, so it falls back to the heartbeat row the worker
// upserted on its last invocation.
func (h *Handler) checkWorker(ctx context.Context) checkResult {
	if h.workerURL == "" {
		return h.checkWorkerHeartbeatRow(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, workerCallTimeout)
	defer cancel()

	result, err := h.workerBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.workerURL+"/worker/stats", nil)
		if err != nil {
			return nil, err
		}
		resp, err := h.workerClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, apperror.Dependency("worker introspection returned non-200", nil)
		}
		var stats workerStatsResponse
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			return nil, err
		}
		return stats, nil
	})
	if err != nil {
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}

	stats := result.(workerStatsResponse)
	if time.Since(stats.Data.LastHeartbeatAt) > staleAfter {
		return checkResult{Status: "unhealthy", Message: "worker heartbeat is stale"}
	}
	return checkResult{Status: "healthy"}
}

func (h *Handler) checkWorkerHeartbeatRow(ctx context.Context) checkResult {
	result, err := h.workerBreaker.Execute(func() (interface{}, error) {
		var row models.WorkerStatsRow
		err := h.db.WithContext(ctx).Order("last_heartbeat_at DESC").First(&row).Error
		return row, err
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return checkResult{Status: "unhealthy", Message: "no worker heartbeat recorded"}
		}
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}

	row := result.(models.WorkerStatsRow)
	if row.IsStale(staleAfter, time.Now()) {
		return checkResult{Status: "unhealthy", Message: "worker heartbeat is stale"}
	}
	return checkResult{Status: "healthy"}
}
