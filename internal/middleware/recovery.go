package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/logger"
	"github.com/charlesng35/campusconnect/pkg/response"
)

// Recovery turns a panicking handler into a 500 envelope. The panic value and
// stack are logged with the request id so the access log line can be matched.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []zap.Field{
				zap.String("request_id", c.Writer.Header().Get(RequestIDHeader)),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Stack("stack"),
			}
			if err, ok := r.(error); ok {
				fields = append(fields, zap.Error(err))
			} else {
				fields = append(fields, zap.Any("panic", r))
			}
			logger.WithModule("http").Error("handler panicked", fields...)

			response.Error(c, errors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with a JSON 404.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithMessage(fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}
