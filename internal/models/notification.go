package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an inbox entry for one user. Team events fan out into one
// row per recipient.
type Notification struct {
	BaseModel

	UserID    string  `gorm:"type:varchar(64);not null;index:idx_notification_inbox,priority:1" json:"user_id"`
	ProjectID *string `gorm:"type:varchar(36);index" json:"project_id,omitempty"`
	ActorID   *string `gorm:"type:varchar(64)" json:"actor_id,omitempty"`

	Type      string         `gorm:"type:varchar(64);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Severity  string         `gorm:"type:varchar(16);default:'info'" json:"severity"`
	ActionURL string         `gorm:"type:varchar(255)" json:"action_url,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
