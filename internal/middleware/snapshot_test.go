package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/geo"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/queue"
)

func newSnapshotRouter(t *testing.T, cfg *config.Config, q queue.Queue) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	resolver, err := geo.NewResolver("")
	require.NoError(t, err)

	router := gin.New()
	router.Use(Snapshot(cfg, q, resolver, logger.New("silent")))
	router.POST("/widgets", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return router
}

func TestSnapshotRedactsDenyListedHeaders(t *testing.T) {
	cfg := &config.Config{SnapshotMaxBodyBytes: 1024}
	q := queue.NewInProcQueue(time.Millisecond)
	router := newSnapshotRouter(t, cfg, q)

	req := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader(`{"name":"widget"}`))
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.JobTypeSnapshotPersist, job.Type)

	headers, ok := job.Payload["request_headers"].(models.JSONMap)
	require.True(t, ok)
	assert.Equal(t, "[redacted]", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
}

func TestSnapshotTruncatesOversizedRequestBody(t *testing.T) {
	cfg := &config.Config{SnapshotMaxBodyBytes: 4}
	q := queue.NewInProcQueue(time.Millisecond)
	router := newSnapshotRouter(t, cfg, q)

	req := httptest.NewRequest(http.MethodPost, "/widgets", bytes.NewReader([]byte("0123456789")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, "0123", job.Payload["request_body"])
	assert.Equal(t, true, job.Payload["request_truncated"])
}

func TestSnapshotSkippedForReplayedRequests(t *testing.T) {
	cfg := &config.Config{SnapshotMaxBodyBytes: 1024}
	q := queue.NewInProcQueue(time.Millisecond)
	router := newSnapshotRouter(t, cfg, q)

	req := httptest.NewRequest(http.MethodPost, "/widgets", nil)
	req.Header.Set(replayHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth, "a replayed request must not be re-captured")
}
