package replay

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/snapshot"
)

func newReplayDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestSnapshot{}))
	return db
}

func newEchoRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/widgets/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "replay": c.GetHeader("X-Snapq-Replay")})
	})
	router.POST("/widgets", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestReplayReconstructsAndDispatchesRequest(t *testing.T) {
	db := newReplayDB(t)
	row := models.RequestSnapshot{
		Method:     http.MethodGet,
		Path:       "/widgets/42",
		OccurredAt: time.Now(),
	}
	require.NoError(t, db.Create(&row).Error)

	engine := NewEngine(snapshot.NewService(db), newEchoRouter(), nil)
	result, err := engine.Replay(row.ID.String())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.Body, `"id":"42"`)
	assert.Contains(t, result.Body, `"replay":"1"`)
}

func TestReplayStripsHopByHopHeaders(t *testing.T) {
	db := newReplayDB(t)
	row := models.RequestSnapshot{
		Method: http.MethodPost,
		Path:   "/widgets",
		RequestHeader: models.JSONMap{
			"Connection":   "keep-alive",
			"Content-Type": "application/json",
		},
		OccurredAt: time.Now(),
	}
	require.NoError(t, db.Create(&row).Error)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/widgets", func(c *gin.Context) {
		assert.Empty(t, c.GetHeader("Connection"))
		assert.Equal(t, "application/json", c.GetHeader("Content-Type"))
		c.Status(http.StatusCreated)
	})

	engine := NewEngine(snapshot.NewService(db), router, nil)
	result, err := engine.Replay(row.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
}

func TestReplayRejectsDisallowedMethod(t *testing.T) {
	db := newReplayDB(t)
	row := models.RequestSnapshot{Method: http.MethodDelete, Path: "/widgets/1", OccurredAt: time.Now()}
	require.NoError(t, db.Create(&row).Error)

	engine := NewEngine(snapshot.NewService(db), newEchoRouter(), map[string]bool{http.MethodGet: true})
	_, err := engine.Replay(row.ID.String())
	assert.Error(t, err)
}

func TestReplayReturnsNotFoundForMissingSnapshot(t *testing.T) {
	db := newReplayDB(t)
	engine := NewEngine(snapshot.NewService(db), newEchoRouter(), nil)
	_, err := engine.Replay("00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}
