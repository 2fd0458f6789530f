package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/auth"
	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database/models"
)

func newAuthTestService(t *testing.T) *auth.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		JWTSecret:               "test-secret",
		JWTAccessExpiresIn:      15 * time.Minute,
		JWTRefreshExpiresInDays: 7,
		JWTIssuer:               "snapq-test",
	}
	return auth.NewService(db, rdb, cfg)
}

func newGatedRouter(svc *auth.Service, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(apperror.Handler())
	group := router.Group("/admin")
	group.Use(RequireAuth(svc))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/widgets", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRequireAuthRejectsMissingHeaderWith401(t *testing.T) {
	svc := newAuthTestService(t)
	router := newGatedRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin/widgets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidTokenWith401(t *testing.T) {
	svc := newAuthTestService(t)
	router := newGatedRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin/widgets", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleRejectsInsufficientRoleWith403(t *testing.T) {
	svc := newAuthTestService(t)
	router := newGatedRouter(svc, "admin")

	registerResp, err := svc.Register(&auth.RegisterRequest{
		Name: "Regular User", Email: "user@example.com", Password: "sup3rsecret!",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/widgets", nil)
	req.Header.Set("Authorization", "Bearer "+registerResp.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, "a valid but insufficiently privileged caller gets 403, not 401")
}

func TestRequireAuthAndRoleAllowAuthorizedCaller(t *testing.T) {
	svc := newAuthTestService(t)
	router := newGatedRouter(svc, "user", "admin")

	registerResp, err := svc.Register(&auth.RegisterRequest{
		Name: "Regular User", Email: "allowed@example.com", Password: "sup3rsecret!",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/widgets", nil)
	req.Header.Set("Authorization", "Bearer "+registerResp.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
