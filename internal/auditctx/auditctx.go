// Package auditctx hands the authenticated caller from the HTTP layer to the
// services that write audit entries.
package auditctx

import "context"

// Actor is the caller of a request as seen by the auth middleware.
type Actor struct {
	UserID    string
	RequestID string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor attaches actor to ctx. A nil ctx is treated as Background.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor attached by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
