package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/realtime"
	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/logger"
)

const (
	severityInfo        = "info"
	notificationsModule = "notifications"
)

var errRecipientRequired = errors.New("notification service: user id is required")

// NotificationView is a notification as the API returns it.
type NotificationView struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ProjectID *string        `json:"project_id,omitempty"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	ActionURL string         `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

func newNotificationView(row models.Notification) NotificationView {
	view := NotificationView{
		ID:        row.ID,
		UserID:    row.UserID,
		ProjectID: row.ProjectID,
		ActorID:   row.ActorID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Severity:  defaultIfEmpty(row.Severity, severityInfo),
		ActionURL: row.ActionURL,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
	if len(row.Metadata) > 0 {
		// Metadata that is not a JSON object is dropped.
		_ = json.Unmarshal(row.Metadata, &view.Metadata)
	}
	return view
}

// CreateNotificationInput is one notification addressed to UserID.
type CreateNotificationInput struct {
	UserID    string
	ProjectID string
	ActorID   string
	Type      string
	Title     string
	Message   string
	Severity  string
	ActionURL string
	Metadata  map[string]any
}

func (in CreateNotificationInput) row() (models.Notification, error) {
	row := models.Notification{
		UserID:    strings.TrimSpace(in.UserID),
		Type:      strings.TrimSpace(in.Type),
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Severity:  defaultIfEmpty(strings.TrimSpace(in.Severity), severityInfo),
		ActionURL: strings.TrimSpace(in.ActionURL),
	}
	switch {
	case row.UserID == "":
		return row, errRecipientRequired
	case row.Type == "":
		return row, errors.New("notification service: type is required")
	}

	row.ProjectID = optionalID(in.ProjectID)
	// Nobody is told that they acted themselves.
	if actor := optionalID(in.ActorID); actor != nil && *actor != row.UserID {
		row.ActorID = actor
	}
	if in.Metadata != nil {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return row, fmt.Errorf("notification service: encode metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return row, nil
}

// ListNotificationsInput selects one page of a user's inbox.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService owns the in-app inbox. It is also the sink team events
// are delivered to once their transition has committed.
type NotificationService struct {
	db        *gorm.DB
	hub       *realtime.Hub
	publisher Publisher
	channel   string
	now       func() time.Time
	log       *zap.Logger
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// NewNotificationService builds the inbox on db. A nil hub disables pushes.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{
		db:      db,
		hub:     hub,
		channel: DefaultNotificationChannel,
		now:     time.Now,
		log:     logger.WithModule(notificationsModule),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListForUser returns a page of the user's inbox, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationView, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errRecipientRequired
	}
	limit := pageSize(input.Limit, DefaultInboxPage, MaxInboxPage)

	inbox := s.db.WithContext(ensureContext(ctx)).Where(&models.Notification{UserID: userID})
	if input.UnreadOnly {
		inbox = inbox.Where("is_read = ?", false)
	}

	var rows []models.Notification
	err := inbox.Order("created_at DESC").Order("id").
		Limit(limit).Offset(max(0, input.Offset)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: list inbox: %w", err)
	}

	views := make([]NotificationView, len(rows))
	for i := range rows {
		views[i] = newNotificationView(rows[i])
	}
	return views, nil
}

// Create stores one notification and pushes it to the recipient.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationView, error) {
	row, err := input.row()
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("notification service: store notification: %w", err)
	}

	view := newNotificationView(row)
	s.push(row.UserID, "notification.created", &view)
	return &view, nil
}

// MarkRead flags the user's notification as read. Marking an already read
// notification keeps its original read time.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationView, error) {
	ctx = ensureContext(ctx)
	owned := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID)

	readAt := s.now().UTC()
	err := owned.Session(&gorm.Session{}).Model(&models.Notification{}).
		Where("is_read = ?", false).
		Updates(map[string]any{"is_read": true, "read_at": readAt}).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	var row models.Notification
	if err := owned.Session(&gorm.Session{}).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	view := newNotificationView(row)
	s.push(userID, "notification.read", &view)
	return &view, nil
}

// CleanupReadOlderThan deletes read notifications created more than
// retentionDays ago. Unread notifications are never pruned.
func (s *NotificationService) CleanupReadOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("notification service: retentionDays must be positive")
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ensureContext(ctx)).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: prune inbox: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func optionalID(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}
