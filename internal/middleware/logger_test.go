package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerTagsRequestsAndLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeLogs(t)

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/projects", func(c *gin.Context) {
		c.Set(CtxUserIDKey, "alice")
		c.Status(http.StatusOK)
	})
	r.GET("/api/projects/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/missing", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, generated, entries[0].ContextMap()["request_id"])
	require.Equal(t, "alice", entries[0].ContextMap()["user_id"])

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
	require.NotContains(t, entries[1].ContextMap(), "user_id")
}
