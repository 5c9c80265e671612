package services

import (
	"context"
	"fmt"
	"time"
)

// Team event types.
const (
	EventJoinRequested = "join_request.created"
	EventJoinApproved  = "join_request.approved"
	EventJoinDenied    = "join_request.denied"
	EventMemberRemoved = "team.member_removed"
	EventTeamFormed    = "team.formed"
)

// TeamEvent describes a committed team transition.
type TeamEvent struct {
	Type          string    `json:"type"`
	ProjectID     string    `json:"project_id"`
	ProjectTitle  string    `json:"project_title"`
	ActorID       string    `json:"actor_id"`
	SubjectUserID string    `json:"subject_user_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Recipients    []string  `json:"recipients"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TeamEventSink receives team events after they are persisted. Deliver must
// not block the caller on slow downstreams for long and never fails the
// transition that produced the event.
type TeamEventSink interface {
	Deliver(ctx context.Context, event TeamEvent)
}

func (e TeamEvent) metadata() map[string]any {
	meta := map[string]any{
		"project_id": e.ProjectID,
		"actor_id":   e.ActorID,
	}
	if e.SubjectUserID != "" {
		meta["user_id"] = e.SubjectUserID
	}
	if e.RequestID != "" {
		meta["request_id"] = e.RequestID
	}
	return meta
}

func describeTeamEvent(e TeamEvent) (string, string) {
	switch e.Type {
	case EventJoinRequested:
		return "New join request", fmt.Sprintf("Someone asked to join %q.", e.ProjectTitle)
	case EventJoinApproved:
		return "Join request approved", fmt.Sprintf("You are now part of the %q team.", e.ProjectTitle)
	case EventJoinDenied:
		return "Join request denied", fmt.Sprintf("Your request to join %q was denied.", e.ProjectTitle)
	case EventMemberRemoved:
		return "Removed from team", fmt.Sprintf("You were removed from the %q team.", e.ProjectTitle)
	case EventTeamFormed:
		return "Team formed", fmt.Sprintf("The %q team is complete.", e.ProjectTitle)
	default:
		return "Project update", fmt.Sprintf("Something changed on %q.", e.ProjectTitle)
	}
}
