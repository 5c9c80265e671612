package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/auditctx"
	iauth "github.com/charlesng35/campusconnect/internal/auth"
	"github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/response"
)

const (
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
)

// TokenVerifier resolves a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(token string) (*iauth.Identity, error)
}

// Auth enforces bearer-token authentication. The verified user id becomes the
// acting user for every downstream handler and audit entry.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity *iauth.Identity
		token := BearerToken(c)
		if token != "" {
			identity, _ = verifier.Verify(token)
		}
		if identity == nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.UserID)
		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    identity.UserID,
			RequestID: c.Writer.Header().Get(RequestIDHeader),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, falling back
// to the token query parameters browsers use for websocket upgrades.
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if token := strings.TrimSpace(c.Query("access_token")); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}
