package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTeamFull = New("TEAM_FULL", "team is full", http.StatusConflict)

func TestCopiesMatchTheirSentinel(t *testing.T) {
	cause := stdErrors.New("capacity 2")
	copied := errTeamFull.WithMessage("no seats left").WithInternal(cause)

	require.ErrorIs(t, copied, errTeamFull)
	require.ErrorIs(t, copied, cause)
	require.NotErrorIs(t, copied, ErrNotFound)
	require.Equal(t, "no seats left: capacity 2", copied.Error())
	require.Equal(t, "team is full", errTeamFull.Message)
	require.Nil(t, errTeamFull.Internal)
}

func TestFromErrorFindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("approve: %w", errTeamFull)
	require.Same(t, errTeamFull, FromError(wrapped))

	raw := stdErrors.New("disk on fire")
	out := FromError(raw)
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.ErrorIs(t, out, raw)

	require.Nil(t, FromError(nil))
}

func TestStatusAndExposable(t *testing.T) {
	require.Equal(t, http.StatusConflict, errTeamFull.Status())
	require.True(t, errTeamFull.Exposable())

	require.Equal(t, http.StatusInternalServerError, (&AppError{Code: "X"}).Status())
	require.False(t, ErrInternalServer.Exposable())

	var nilErr *AppError
	require.Equal(t, http.StatusInternalServerError, nilErr.Status())
	require.Equal(t, "<nil>", nilErr.Error())
	require.Nil(t, nilErr.WithMessage("x"))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("title is required")
	require.ErrorIs(t, err, ErrBadRequest)
	require.Equal(t, "title is required", err.Message)
	require.Equal(t, http.StatusBadRequest, err.Status())
}
