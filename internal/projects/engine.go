package projects

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome describes the effect of a successful transition.
type Outcome struct {
	Request JoinRequest
	// Formed is true when the transition filled the last open seat.
	Formed bool
	// Dissolved is true when the transition reopened a formed team.
	Dissolved bool
}

// Engine applies join-request transitions to a Team. It holds no state of its
// own and is safe for concurrent use; callers serialise access to each Team.
type Engine struct {
	now      func() time.Time
	cooldown time.Duration
	newID    func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCooldown overrides the re-entry window after removal.
func WithCooldown(window time.Duration) Option {
	return func(e *Engine) {
		if window >= 0 {
			e.cooldown = window
		}
	}
}

// WithIDGenerator overrides how ledger entry ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine constructs an Engine with a one hour cooldown and uuid entry ids.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		cooldown: DefaultCooldown,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// stamp reads the clock at millisecond precision, the finest every project
// store keeps, so ledger times survive a save and reload unchanged.
func (e *Engine) stamp() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// Cooldown returns the configured re-entry window.
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown
}

// RequestToJoin appends a pending entry for userID.
func (e *Engine) RequestToJoin(team *Team, userID string) (Outcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Outcome{}, ErrInvalidAction.WithMessage("User is required")
	}
	if !team.HasCapacity() {
		return Outcome{}, ErrCapacityExceeded
	}
	if team.IsMember(userID) {
		return Outcome{}, ErrAlreadyMember
	}

	now := e.stamp()
	if latest, ok := team.Requests.Latest(userID); ok {
		switch latest.Status {
		case StatusRemoved:
			if latest.RemovalTime != nil && !IsReentryAllowed(*latest.RemovalTime, now, e.cooldown) {
				return Outcome{}, cooldownError(e.cooldown, RemainingCooldown(*latest.RemovalTime, now, e.cooldown))
			}
		case StatusPending:
			return Outcome{}, ErrDuplicateRequest
		}
	}

	entry := JoinRequest{
		ID:          e.newID(),
		UserID:      userID,
		Status:      StatusPending,
		RequestTime: now,
	}
	if err := team.Requests.Append(entry); err != nil {
		return Outcome{}, err
	}
	team.Sync()
	return Outcome{Request: entry}, nil
}

// Decide approves or denies a pending request on behalf of actingUserID.
func (e *Engine) Decide(team *Team, actingUserID, requestID, rawAction string) (Outcome, error) {
	if !team.IsCreator(actingUserID) {
		return Outcome{}, ErrForbidden
	}
	entry, ok := team.Requests.Get(requestID)
	if !ok {
		return Outcome{}, ErrJoinRequestNotFound
	}
	action, err := ParseDisposition(rawAction)
	if err != nil {
		return Outcome{}, err
	}
	next, err := Transition(entry.Status, action)
	if err != nil {
		return Outcome{}, err
	}

	wasFormed := team.Formed
	if action == ActionApprove {
		if !team.HasCapacity() {
			return Outcome{}, ErrCapacityExceeded
		}
		if team.IsMember(entry.UserID) {
			return Outcome{}, ErrAlreadyMember
		}
	}

	entry.Status = next
	if err := team.Requests.replace(entry); err != nil {
		return Outcome{}, err
	}
	if action == ActionApprove {
		team.Members = append(team.Members, entry.UserID)
	}
	team.Sync()

	return Outcome{Request: entry, Formed: !wasFormed && team.Formed}, nil
}

// RemoveMember drops targetUserID from the roster and starts their cooldown.
// The returned Outcome carries the ledger entry marked removed, if any.
func (e *Engine) RemoveMember(team *Team, actingUserID, targetUserID string) (Outcome, error) {
	if !team.IsCreator(actingUserID) {
		return Outcome{}, ErrForbidden
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if !team.IsMember(targetUserID) {
		return Outcome{}, ErrMemberNotFound
	}

	wasFormed := team.Formed
	now := e.stamp()

	var out Outcome
	entry, ok := team.Requests.Latest(targetUserID)
	if !ok || entry.Status != StatusApproved {
		entry, ok = team.Requests.LatestWithStatus(targetUserID, StatusApproved)
	}
	if ok {
		next, err := Transition(entry.Status, ActionRemove)
		if err != nil {
			return Outcome{}, err
		}
		entry.Status = next
		entry.RemovalTime = &now
		if err := team.Requests.replace(entry); err != nil {
			return Outcome{}, err
		}
		out.Request = entry
	}

	team.Members = team.Members.without(targetUserID)
	team.Sync()
	out.Dissolved = wasFormed && !team.Formed
	return out, nil
}
