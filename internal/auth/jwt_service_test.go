package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "  "})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestIssueAndVerify(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewJWTService(JWTConfig{
		Secret:   "super-secret",
		Issuer:   "campus-idp",
		Audience: "campus-api",
		TokenTTL: time.Hour,
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.IssueToken("student-42", "Ada")
	require.NoError(t, err)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "student-42", identity.UserID)
	require.Equal(t, "Ada", identity.DisplayName)
	require.True(t, identity.ExpiresAt.Equal(current.Add(time.Hour)))

	_, err = svc.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: func() time.Time { return now }})
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "student-7",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "student-7", identity.UserID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	current := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", Issuer: "campus-idp", TokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)
	token, err := issuer.IssueToken("student-1", "")
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	wrongIssuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", Issuer: "elsewhere", Clock: now})
	require.NoError(t, err)
	_, err = wrongIssuer.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	current = current.Add(2 * time.Minute)
	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "student-1"}).SignedString([]byte("issuer-secret"))
	require.NoError(t, err)
	_, err = issuer.Verify(noExpiry)
	require.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}
