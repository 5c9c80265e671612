package realtime

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/pkg/logger"
	"github.com/charlesng35/campusconnect/pkg/metrics"
)

const defaultSendBuffer = 64

// MaxStreams caps the streams a single connection may hold at once.
const MaxStreams = 16

// Message is the JSON frame written to subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// StreamAuthorizer decides whether userID may subscribe to stream.
type StreamAuthorizer func(userID, stream string) bool

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins restricts browser upgrades to the listed origins. An
// empty list accepts same-host and loopback origins.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				h.origins[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
			}
		}
	}
}

// WithSendBuffer sets how many frames may queue per subscriber before it is
// dropped as too slow.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// Hub fans messages out to websocket subscribers grouped by stream.
type Hub struct {
	mu         sync.RWMutex
	streams    map[string]map[*subscriber]struct{}
	authorize  StreamAuthorizer
	origins    map[string]struct{}
	sendBuffer int
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		streams:    make(map[string]map[*subscriber]struct{}),
		origins:    make(map[string]struct{}),
		sendBuffer: defaultSendBuffer,
		log:        logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetAuthorizer installs the check applied to every subscription. Without one
// only the notifications stream is open.
func (h *Hub) SetAuthorizer(authorize StreamAuthorizer) {
	h.mu.Lock()
	h.authorize = authorize
	h.mu.Unlock()
}

// Serve upgrades the request and blocks until the subscriber disconnects.
func (h *Hub) Serve(userID string, streams []string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	sub := newSubscriber(h, conn, userID)
	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	h.subscribe(sub, streams)
	go sub.writePump()
	sub.readPump()
}

// BroadcastToUser delivers message to userID's subscribers on stream.
func (h *Hub) BroadcastToUser(stream, userID string, message Message) {
	if userID == "" {
		return
	}
	h.publish(stream, message, func(s *subscriber) bool { return s.userID == userID })
}

// BroadcastStream delivers message to every subscriber on stream.
func (h *Hub) BroadcastStream(stream string, message Message) {
	h.publish(stream, message, nil)
}

// Subscribers counts the connections listening on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[normalizeStream(stream)])
}

func (h *Hub) publish(stream string, message Message, match func(*subscriber) bool) {
	stream = normalizeStream(stream)
	if stream == "" {
		return
	}
	message.Stream = stream

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.streams[stream] {
		if match == nil || match(sub) {
			sub.enqueue(message)
		}
	}
}

// subscribe registers sub on the streams it is authorised for and returns
// the accepted and refused names. Streams beyond MaxStreams are refused
// without consulting the authorizer. Calls for one subscriber are serial.
func (h *Hub) subscribe(sub *subscriber, streams []string) (accepted, refused []string) {
	h.mu.RLock()
	authorize := h.authorize
	held := make(map[string]struct{}, len(sub.streams))
	for stream := range sub.streams {
		held[stream] = struct{}{}
	}
	h.mu.RUnlock()

	for _, stream := range uniqueStreams(streams) {
		_, already := held[stream]
		if !already && len(held) >= MaxStreams {
			refused = append(refused, stream)
			continue
		}
		if !permitted(authorize, sub.userID, stream) {
			refused = append(refused, stream)
			continue
		}
		accepted = append(accepted, stream)
		held[stream] = struct{}{}
	}
	if len(refused) > 0 {
		h.log.Debug("refused stream subscription", zap.String("user_id", sub.userID), zap.Strings("streams", refused))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// close marks done before unregistering, so a closed subscriber is never
	// added back.
	select {
	case <-sub.done:
		return nil, append(refused, accepted...)
	default:
	}
	for _, stream := range accepted {
		subs := h.streams[stream]
		if subs == nil {
			subs = make(map[*subscriber]struct{})
			h.streams[stream] = subs
		}
		subs[sub] = struct{}{}
		sub.streams[stream] = struct{}{}
	}
	return accepted, refused
}

func (h *Hub) unsubscribe(sub *subscriber, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, stream := range uniqueStreams(streams) {
		h.detachLocked(sub, stream)
	}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for stream := range sub.streams {
		h.detachLocked(sub, stream)
	}
}

func (h *Hub) detachLocked(sub *subscriber, stream string) {
	delete(sub.streams, stream)
	subs, ok := h.streams[stream]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.streams, stream)
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.origins) > 0 {
		_, ok := h.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return strings.EqualFold(host, hostname(r.Host)) || isLoopback(host)
}

func permitted(authorize StreamAuthorizer, userID, stream string) bool {
	if authorize != nil {
		return authorize(userID, stream)
	}
	return stream == StreamNotifications
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
