package projects

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a single join request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusRemoved  Status = "removed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusRemoved:
		return true
	}
	return false
}

// Action is an operation applied to an existing join request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
	ActionRemove  Action = "remove"
)

// transitions lists every legal (from, action) pair. Re-requesting after a
// denial or removal appends a new entry and never resurrects an old one.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionDeny:    StatusDenied,
	},
	StatusApproved: {
		ActionRemove: StatusRemoved,
	},
}

// Transition returns the status reached by applying action to a request in from.
func Transition(from Status, action Action) (Status, error) {
	switch action {
	case ActionApprove, ActionDeny, ActionRemove:
	default:
		return "", ErrInvalidAction.WithMessage(fmt.Sprintf("Invalid action %q", string(action)))
	}

	next, ok := transitions[from][action]
	if !ok {
		return "", ErrInvalidTransition.WithInternal(fmt.Errorf("cannot %s a %s request", action, from))
	}
	return next, nil
}

// ParseDisposition accepts the creator-facing actions of manage-join-request.
func ParseDisposition(raw string) (Action, error) {
	switch action := Action(strings.ToLower(strings.TrimSpace(raw))); action {
	case ActionApprove, ActionDeny:
		return action, nil
	default:
		return "", ErrInvalidAction.WithMessage(fmt.Sprintf("Invalid action %q; expected approve or deny", raw))
	}
}
