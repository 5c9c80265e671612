package projects

import (
	"fmt"
	"strings"
)

// Team is the team-formation aggregate embedded in a project post.
type Team struct {
	CreatorID string `gorm:"column:creator_id;type:varchar(64);index;not null" json:"creator_id"`
	Size      int    `gorm:"column:team_size;not null;default:1" json:"team_size"`
	Members   Roster `gorm:"column:team_members;type:text" json:"team_members"`
	Formed    bool   `gorm:"column:team_formed;index" json:"team_formed"`
	Requests  Ledger `gorm:"column:join_requests;type:text" json:"join_requests"`
}

// IsCreator reports whether userID created the project.
func (t *Team) IsCreator(userID string) bool {
	return userID != "" && t.CreatorID == userID
}

// IsMember reports whether userID is on the roster.
func (t *Team) IsMember(userID string) bool {
	return t.Members.Contains(userID)
}

// CanCollaborate reports whether userID may see team-only resources.
func (t *Team) CanCollaborate(userID string) bool {
	return t.IsCreator(userID) || t.IsMember(userID)
}

// HasCapacity reports whether at least one seat is open.
func (t *Team) HasCapacity() bool {
	return len(t.Members) < t.Size
}

// OpenSeats returns the number of unfilled seats.
func (t *Team) OpenSeats() int {
	if n := t.Size - len(t.Members); n > 0 {
		return n
	}
	return 0
}

// Sync recomputes derived state.
func (t *Team) Sync() {
	t.Formed = len(t.Members) == t.Size
}

// Validate checks the aggregate invariants.
func (t *Team) Validate() error {
	if strings.TrimSpace(t.CreatorID) == "" {
		return ErrInvalidTeam.WithMessage("Creator is required")
	}
	if t.Size < 1 {
		return ErrInvalidTeam.WithMessage("Team size must be a positive number")
	}
	if len(t.Members) > t.Size {
		return ErrInvalidTeam.WithInternal(fmt.Errorf("%d members exceed team size %d", len(t.Members), t.Size))
	}
	seen := make(map[string]struct{}, len(t.Members))
	for _, member := range t.Members {
		if _, dup := seen[member]; dup {
			return ErrInvalidTeam.WithInternal(fmt.Errorf("member %s listed twice", member))
		}
		seen[member] = struct{}{}
	}
	pending := make(map[string]struct{})
	for _, entry := range t.Requests.entries {
		if entry.Status != StatusPending {
			continue
		}
		if _, dup := pending[entry.UserID]; dup {
			return ErrInvalidTeam.WithInternal(fmt.Errorf("user %s has more than one pending request", entry.UserID))
		}
		pending[entry.UserID] = struct{}{}
	}
	return nil
}
