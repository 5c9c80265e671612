package projects

import (
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
)

var (
	// ErrForbidden indicates the caller is not the project creator.
	ErrForbidden = apperrors.New("PROJECT_FORBIDDEN", "Only the project creator can manage the team", http.StatusForbidden)
	// ErrJoinRequestNotFound indicates the ledger has no entry with the supplied id.
	ErrJoinRequestNotFound = apperrors.New("JOIN_REQUEST_NOT_FOUND", "Request not found", http.StatusNotFound)
	// ErrMemberNotFound indicates the target user is not on the team.
	ErrMemberNotFound = apperrors.New("TEAM_MEMBER_NOT_FOUND", "User not found in the team", http.StatusNotFound)
	// ErrCapacityExceeded indicates the team has no open seat.
	ErrCapacityExceeded = apperrors.New("TEAM_CAPACITY_EXCEEDED", "Team size limit reached", http.StatusConflict)
	// ErrAlreadyMember indicates the user already belongs to the team.
	ErrAlreadyMember = apperrors.New("TEAM_ALREADY_MEMBER", "User is already part of the project team", http.StatusConflict)
	// ErrDuplicateRequest indicates the user already has a pending request.
	ErrDuplicateRequest = apperrors.New("JOIN_REQUEST_DUPLICATE", "You have already requested to join this project", http.StatusConflict)
	// ErrCooldownActive indicates the user was removed too recently to request again.
	ErrCooldownActive = apperrors.New("JOIN_REQUEST_COOLDOWN", "You can only request to rejoin one hour after removal", http.StatusTooManyRequests)
	// ErrInvalidTransition indicates the action is not legal from the request's current status.
	ErrInvalidTransition = apperrors.New("JOIN_REQUEST_INVALID_TRANSITION", "This user was either denied or removed previously; they must send a new request", http.StatusConflict)
	// ErrInvalidAction indicates an unrecognised disposition action.
	ErrInvalidAction = apperrors.New("JOIN_REQUEST_INVALID_ACTION", "Invalid action", http.StatusBadRequest)
	// ErrInvalidTeam indicates a Team that violates its own invariants.
	ErrInvalidTeam = apperrors.New("PROJECT_INVALID_TEAM", "Invalid team configuration", http.StatusBadRequest)
)

// CooldownRemaining is attached to ErrCooldownActive so transports can advertise a retry delay.
type CooldownRemaining struct {
	Remaining time.Duration
}

func (c CooldownRemaining) Error() string {
	return fmt.Sprintf("cooldown remaining %s", c.Remaining.Round(time.Second))
}

func cooldownError(window, remaining time.Duration) error {
	period := "one hour"
	if window != time.Hour {
		period = humanizeRemaining(window)
	}
	msg := fmt.Sprintf("You can only request to rejoin %s after removal. Try again in %s.", period, humanizeRemaining(remaining))
	return ErrCooldownActive.WithMessage(msg).WithInternal(CooldownRemaining{Remaining: remaining})
}

func humanizeRemaining(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
