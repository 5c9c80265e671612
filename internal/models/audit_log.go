package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one attempted team transition. Denied attempts are kept
// alongside successful ones so moderators can see refused approvals.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ActorID   *string        `gorm:"type:varchar(64);index" json:"actor_id,omitempty"`
	ProjectID string         `gorm:"type:varchar(36);index:idx_audit_project_created,priority:1" json:"project_id,omitempty"`
	Action    string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Result    string         `gorm:"type:varchar(16);not null" json:"result"`
	RequestID string         `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	IPAddress string         `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent string         `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_audit_project_created,priority:2;index" json:"created_at"`
}

// BeforeCreate stamps an id and a UTC creation time.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}
