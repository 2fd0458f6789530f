package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapq/snapq-go/internal/config"
)

func newRateLimitedRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	router := gin.New()
	router.Use(RateLimiter(rdb, cfg))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, mr
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 2

	router, _ := newRateLimitedRouter(t, cfg)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	router, _ := newRateLimitedRouter(t, cfg)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.10:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestRateLimiterDisabledSkipsEnforcement(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = false

	router, _ := newRateLimitedRouter(t, cfg)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.11:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
