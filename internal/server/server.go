// Package server assembles the API process's gin engine: middleware
// chain, route groups, and the promhttp metrics endpoint.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/auth"
	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/crud"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/geo"
	"github.com/snapq/snapq-go/internal/health"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/middleware"
	"github.com/snapq/snapq-go/internal/queue"
	"github.com/snapq/snapq-go/internal/replay"
	"github.com/snapq/snapq-go/internal/snapshot"
)

// BuildVersion is overridable at link time; defaults to "dev".
var BuildVersion = "dev"

var startedAt = time.Now()

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *logger.Logger
	Router *gin.Engine
}

// New assembles the full API engine. q is used only for the Snapshot
// middleware's enqueue path (health and worker-stats read the database and
// the worker's HTTP endpoint, not q); the worker
// process owns the Dispatcher and never shares its Queue value directly —
// see queue.NewAPISideQueue for how the API process reaches it.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, log *logger.Logger, q queue.Queue, resolver *geo.Resolver) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	srv := &Server{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Logger: log,
		Router: router,
	}

	srv.setupMiddleware()
	srv.setupRoutes(q, resolver)

	return srv
}

func (s *Server) setupMiddleware() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.Logger))
	s.Router.Use(middleware.CORS(s.Config))
	if s.Config.Security.HeadersEnabled {
		s.Router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersForEnvironment(s.Config.NodeEnv, s.Config.Security.HTTPSOnly)))
	}
	if s.Config.RateLimit.Enabled {
		s.Router.Use(middleware.RateLimiter(s.Redis, s.Config))
	}
}

func (s *Server) setupRoutes(q queue.Queue, resolver *geo.Resolver) {
	authService := auth.NewService(s.DB, s.Redis, s.Config)
	authHandler := auth.NewHandler(authService)
	healthHandler := health.NewHandler(s.DB, s.Redis, s.Logger, BuildVersion, workerIntrospectionURL(s.Config))
	snapshotService := snapshot.NewService(s.DB)
	replayEngine := replay.NewEngine(snapshotService, s.Router, nil)

	s.Router.GET("/health", apperror.Handler(), middleware.RequireAuth(authService), middleware.RequireRole("admin"), healthHandler.GetHealth)
	s.Router.GET("/health/liveness", healthHandler.GetLiveness)
	s.Router.GET("/health/readiness", healthHandler.GetReadiness)

	if s.Config.Monitoring.MetricsEnabled {
		reg := prometheus.DefaultRegisterer
		queue.RegisterMetrics(reg)
		s.Router.GET(s.Config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := s.Router.Group("/api/v1")
	v1.Use(middleware.Snapshot(s.Config, q, resolver, s.Logger))
	v1.Use(apperror.Handler())

	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh", authHandler.Refresh)

	admin := v1.Group("")
	admin.Use(middleware.RequireAuth(authService))
	admin.Use(middleware.RequireRole("admin"))
	{
		admin.GET("/info", s.infoHandler)
		admin.POST("/auth/logout", authHandler.Logout)
		admin.GET("/auth/me", authHandler.Me)

		crud.RegisterRoutes[models.User](admin.Group("/users"), crud.NewResource(s.DB, &models.User{}, map[string]bool{
			"email": true, "name": true, "role": true, "is_active": true, "created_at": true, "updated_at": true,
		}))
		crud.RegisterRoutes[models.Log](admin.Group("/logs"), crud.NewResource(s.DB, &models.Log{}, map[string]bool{
			"level": true, "source": true, "logged_at": true, "created_at": true,
		}))
		crud.RegisterRoutes[models.Metric](admin.Group("/metrics"), crud.NewResource(s.DB, &models.Metric{}, map[string]bool{
			"name": true, "unit": true, "recorded_at": true, "created_at": true,
		}))

		admin.GET("/replay", func(c *gin.Context) { listReplaySnapshots(c, snapshotService) })
		admin.GET("/replay/:id", func(c *gin.Context) { getReplaySnapshot(c, snapshotService) })
		admin.POST("/replay/:id/replay", func(c *gin.Context) { executeReplay(c, replayEngine) })

		admin.GET("/worker/stats", func(c *gin.Context) { getWorkerStats(c, s.DB) })
	}
}

// workerIntrospectionURL returns WORKER_URL in local mode, where the
// worker runs its own standing HTTP listener; lambda workers have no
// listener to reach, so /health falls back to the DB heartbeat row.
func workerIntrospectionURL(cfg *config.Config) string {
	if cfg.WorkerMode == config.WorkerModeLambda {
		return ""
	}
	return cfg.WorkerURL
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, apperror.DataEnvelope(gin.H{
		"version": BuildVersion,
		"uptime":  time.Since(startedAt).String(),
		"env":     s.Config.NodeEnv,
	}, nil))
}
