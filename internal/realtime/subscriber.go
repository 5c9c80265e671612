package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxFrameSize = 64 << 10
)

// control is a client-to-server frame.
type control struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Control actions and the events acknowledging them.
const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionPing        = "ping"

	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventPong         = "pong"
)

// subscriber is one websocket connection. streams is guarded by hub.mu.
type subscriber struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	streams map[string]struct{}
	send    chan Message
	done    chan struct{}
	once    sync.Once
}

func newSubscriber(hub *Hub, conn *websocket.Conn, userID string) *subscriber {
	return &subscriber{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		streams: make(map[string]struct{}),
		send:    make(chan Message, hub.sendBuffer),
		done:    make(chan struct{}),
	}
}

// enqueue never blocks; a subscriber whose buffer is full is disconnected.
func (s *subscriber) enqueue(message Message) {
	select {
	case <-s.done:
	case s.send <- message:
	default:
		s.hub.log.Warn("dropping slow subscriber", zap.String("user_id", s.userID))
		go s.close()
	}
}

func (s *subscriber) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Debug("connection closed", zap.String("user_id", s.userID), zap.Error(err))
			}
			return
		}
		if len(payload) > 0 {
			s.handle(payload)
		}
	}
}

func (s *subscriber) handle(payload []byte) {
	var ctrl control
	if err := json.Unmarshal(payload, &ctrl); err != nil {
		s.hub.log.Debug("malformed control frame", zap.String("user_id", s.userID), zap.Error(err))
		return
	}

	switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
	case actionSubscribe:
		accepted, refused := s.hub.subscribe(s, ctrl.Streams)
		s.enqueue(Message{Event: EventSubscribed, Data: map[string][]string{
			"streams": accepted,
			"refused": refused,
		}})
	case actionUnsubscribe:
		s.hub.unsubscribe(s, ctrl.Streams)
		s.enqueue(Message{Event: EventUnsubscribed, Data: map[string][]string{"streams": uniqueStreams(ctrl.Streams)}})
	case actionPing:
		s.enqueue(Message{Event: EventPong})
	default:
		s.hub.log.Debug("unknown control action", zap.String("user_id", s.userID), zap.String("action", ctrl.Action))
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.hub.unregister(s)
		_ = s.conn.Close()
	})
}
