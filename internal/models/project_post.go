package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/projects"
)

// Project visibility values.
const (
	VisibilityPublic      = "Public"
	VisibilityConnections = "Connections Only"
	VisibilityCustom      = "Custom"
)

// ProjectPost is a recruitment post that carries a team aggregate.
// Version is the optimistic concurrency token; every committed write bumps it.
type ProjectPost struct {
	BaseModel

	Title             string                      `gorm:"type:varchar(255);not null" json:"title"`
	Description       string                      `gorm:"type:text;not null" json:"description"`
	Category          string                      `gorm:"type:varchar(128);index" json:"category,omitempty"`
	Skills            datatypes.JSONSlice[string] `json:"skills"`
	EstimatedDuration string                      `gorm:"type:varchar(128);not null" json:"estimated_duration"`
	Visibility        string                      `gorm:"type:varchar(32);not null;default:'Public'" json:"visibility"`

	projects.Team `gorm:"embedded"`

	Version int64 `gorm:"not null;default:1" json:"version"`
}

// BeforeSave keeps derived team state consistent with the roster.
func (p *ProjectPost) BeforeSave(tx *gorm.DB) error {
	p.Team.Sync()
	return p.Team.Validate()
}

// ValidVisibility reports whether v is an accepted visibility value.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityConnections, VisibilityCustom:
		return true
	}
	return false
}
