package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/middleware"
)

// requestContext falls back to context.Background for handlers invoked
// without an *http.Request, which happens in unit tests.
func requestContext(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

// actorID is the authenticated user the request acts on behalf of.
func actorID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// boundedIntQuery reads a non-negative integer query parameter. Missing or
// malformed values yield fallback; values above max are clamped.
func boundedIntQuery(c *gin.Context, key string, fallback, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
