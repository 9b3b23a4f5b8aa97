package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/response"
)

func newTestEngine(base *zap.SugaredLogger, required bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), UserMiddleware(required), RequestLoggerMiddleware(base), AccessLogMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(map[string]string{
			"user_id":  UserIDFrom(c),
			"ctx_user": logctx.UserID(c.Request.Context()),
		}))
	})
	return r
}

func TestMiddlewareChain_PropagatesTraceAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newTestEngine(zap.New(core).Sugar(), true)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderRequestID, "trace-abc")
	req.Header.Set(HeaderUserID, "u-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-abc", w.Header().Get(HeaderRequestID))

	var body response.APIResponse[map[string]string]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body.Data["user_id"])
	assert.Equal(t, "u-1", body.Data["ctx_user"])

	access := logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, "trace-abc", fields["trace_id"])
	assert.Equal(t, "u-1", fields["user_id"])
}

func TestUserMiddleware_RequiredRejectsMissingHeader(t *testing.T) {
	r := newTestEngine(zap.NewNop().Sugar(), true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.APIResponseCodeUnauthorized, body.Code)
}

func TestTraceMiddleware_GeneratesID(t *testing.T) {
	r := newTestEngine(zap.NewNop().Sugar(), false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}
