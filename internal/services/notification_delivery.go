package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/pkg/metrics"
)

// DefaultNotificationChannel is the pub/sub channel team events are published on.
const DefaultNotificationChannel = "events:teams"

const (
	deliveryStore  = "store"
	deliveryBroker = "broker"
)

// Publisher forwards serialised events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// WithPublisher mirrors every delivered team event onto channel. A blank
// channel falls back to DefaultNotificationChannel.
func WithPublisher(publisher Publisher, channel string) NotificationOption {
	return func(s *NotificationService) {
		s.publisher = publisher
		s.channel = defaultIfEmpty(channel, DefaultNotificationChannel)
	}
}

type inboxEvent struct {
	Notification   *NotificationView `json:"notification"`
	NotificationID string            `json:"notification_id"`
}

// Deliver fans a committed team event out to its recipients' inboxes and
// then to the broker. Delivery never fails the transition that raised the
// event, so errors are counted and logged only.
func (s *NotificationService) Deliver(ctx context.Context, event TeamEvent) {
	ctx = ensureContext(ctx)
	title, message := describeTeamEvent(event)
	metadata := event.metadata()
	log := s.log.With(zap.String("type", event.Type), zap.String("project_id", event.ProjectID))

	for _, recipient := range normaliseIDs(event.Recipients) {
		_, err := s.Create(ctx, CreateNotificationInput{
			UserID:    recipient,
			ProjectID: event.ProjectID,
			ActorID:   event.ActorID,
			Type:      event.Type,
			Title:     title,
			Message:   message,
			ActionURL: "/projects/" + event.ProjectID,
			Metadata:  metadata,
		})
		countDelivery(deliveryStore, err)
		if err != nil {
			log.Warn("persist notification failed", zap.String("user_id", recipient), zap.Error(err))
		}
	}

	if s.publisher == nil {
		return
	}
	err := s.publish(ctx, event)
	countDelivery(deliveryBroker, err)
	if err != nil {
		log.Warn("publish team event failed", zap.String("channel", s.channel), zap.Error(err))
	}
}

func (s *NotificationService) publish(ctx context.Context, event TeamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, s.channel, payload)
}

// push sends an inbox change to every open connection of userID.
func (s *NotificationService) push(userID, event string, view *NotificationView) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
		Data:   inboxEvent{Notification: view, NotificationID: view.ID},
	})
}

func countDelivery(channel string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.NotificationDeliveries.WithLabelValues(channel, result).Inc()
}
