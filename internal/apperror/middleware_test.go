package apperror

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(errToRaise error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Handler())
	router.GET("/boom", func(c *gin.Context) {
		Abort(c, errToRaise)
	})
	return router
}

func TestHandlerRendersEnvelopeForAppError(t *testing.T) {
	router := newTestRouter(Forbidden("insufficient role"))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, KindAuth, body.Error.Name)
	assert.Equal(t, "insufficient role", body.Error.Message)
}

func TestHandlerWrapsPlainErrorAsInternal(t *testing.T) {
	router := newTestRouter(assertPlainErr)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, KindInternal, body.Error.Name)
}

func TestHandlerNoopsWithoutError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Handler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, DataEnvelope(gin.H{"ok": true}, nil))
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

type plainErr struct{}

func (plainErr) Error() string { return "something broke" }

var assertPlainErr = plainErr{}
