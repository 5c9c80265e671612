package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/internal/auditctx"
	"github.com/charlesng35/campusconnect/pkg/logger"
)

// Audit results.
const (
	auditSuccess = "success"
	auditDenied  = "denied"
	auditFailure = "failure"
)

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.ActorID == nil && actor.UserID != "" {
			id := actor.UserID
			entry.ActorID = &id
		}
		entry.RequestID = firstNonEmpty(entry.RequestID, actor.RequestID)
		entry.IPAddress = firstNonEmpty(entry.IPAddress, actor.IPAddress)
		entry.UserAgent = firstNonEmpty(entry.UserAgent, actor.UserAgent)
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
