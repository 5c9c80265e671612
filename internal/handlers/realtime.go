package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/middleware"
	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/response"
)

// RealtimeHandler upgrades authenticated requests to websocket subscriptions.
type RealtimeHandler struct {
	hub      *realtime.Hub
	verifier middleware.TokenVerifier
}

// NewRealtimeHandler constructs a realtime handler. Per-stream access is
// decided by the hub's authorizer.
func NewRealtimeHandler(hub *realtime.Hub, verifier middleware.TokenVerifier) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, verifier: verifier}
}

// Stream authenticates the caller and hands the connection to the hub.
// Browsers cannot set headers on upgrades, so the token may arrive as a query
// parameter. Streams come from ?stream=a&stream=b or ?streams=a,b and default
// to notifications.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.verifier == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	identity, err := h.verifier.Verify(middleware.BearerToken(c))
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	streams := requestedStreams(c)
	if len(streams) > realtime.MaxStreams {
		response.Error(c, errors.NewBadRequest("too many streams requested"))
		return
	}
	if len(streams) == 0 {
		streams = []string{realtime.StreamNotifications}
	}

	h.hub.Serve(identity.UserID, streams, c.Writer, c.Request)
}

func requestedStreams(c *gin.Context) []string {
	streams := append([]string(nil), c.QueryArray("stream")...)
	for _, raw := range c.QueryArray("streams") {
		streams = append(streams, strings.Split(raw, ",")...)
	}

	out := streams[:0]
	for _, s := range streams {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
