// Package workerinfo serves the worker process's own-port introspection
// routes, mounted only in local mode — a lambda-mode worker has no
// standing HTTP listener to attach them to.
package workerinfo

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/queue"
)

type Handler struct {
	registry  *queue.Registry
	q         queue.Queue
	scheduler queue.Scheduler
	db        *gorm.DB
}

func NewHandler(registry *queue.Registry, q queue.Queue, scheduler queue.Scheduler, db *gorm.DB) *Handler {
	return &Handler{registry: registry, q: q, scheduler: scheduler, db: db}
}

func (h *Handler) Register(router *gin.Engine) {
	router.GET("/worker/jobs", h.listJobTypes)
	router.GET("/worker/queue/stats", h.queueStats)
	router.GET("/worker/scheduler/jobs", h.schedulerJobs)
	router.GET("/worker/stats", h.workerStats)
	router.POST("/jobs/enqueue", h.enqueueJob)
}

// workerStats returns the worker's own last-published heartbeat row, the
// same one the API process's /health handler polls over HTTP.
func (h *Handler) workerStats(c *gin.Context) {
	var row models.WorkerStatsRow
	err := h.db.WithContext(c.Request.Context()).Order("last_heartbeat_at DESC").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		apperror.Abort(c, apperror.NotFound("no worker heartbeat recorded"))
		return
	}
	if err != nil {
		apperror.Abort(c, apperror.Internal("failed to load worker stats", err))
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(row, nil))
}

func (h *Handler) listJobTypes(c *gin.Context) {
	c.JSON(http.StatusOK, apperror.DataEnvelope(h.registry.Types(), nil))
}

func (h *Handler) queueStats(c *gin.Context) {
	ctx := c.Request.Context()
	depth, err := h.q.Depth(ctx)
	if err != nil {
		apperror.Abort(c, apperror.Dependency("failed to read queue depth", err))
		return
	}
	processing, err := h.q.ProcessingCount(ctx)
	if err != nil {
		apperror.Abort(c, apperror.Dependency("failed to read processing count", err))
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(gin.H{
		"depth":      depth,
		"processing": processing,
	}, nil))
}

func (h *Handler) schedulerJobs(c *gin.Context) {
	c.JSON(http.StatusOK, apperror.DataEnvelope(h.scheduler.List(), nil))
}

type enqueueRequest struct {
	Type    string                 `json:"type" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
	Delay   int                    `json:"delay_seconds"`
}

func (h *Handler) enqueueJob(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Abort(c, apperror.FromValidator(err))
		return
	}

	opts := queue.EnqueueOptions{}
	if req.Delay > 0 {
		opts.Delay = time.Duration(req.Delay) * time.Second
	}

	job, err := h.q.EnqueueType(c.Request.Context(), req.Type, req.Payload, opts)
	if err != nil {
		apperror.Abort(c, apperror.Internal("failed to enqueue job", err))
		return
	}
	c.JSON(http.StatusCreated, apperror.DataEnvelope(job, nil))
}
