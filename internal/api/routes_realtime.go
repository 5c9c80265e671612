package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/handlers"
)

// The websocket endpoint authenticates inside the handler because browsers
// cannot attach headers to an upgrade request.
func registerRealtimeRoutes(r *gin.Engine, handler *handlers.RealtimeHandler) {
	r.GET("/ws", handler.Stream)
}
