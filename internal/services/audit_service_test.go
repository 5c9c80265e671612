package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusconnect/internal/auditctx"
	"github.com/charlesng35/campusconnect/internal/database/testutil"
	"github.com/charlesng35/campusconnect/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	userID := "user-1"
	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, AuditEntry{
		ActorID:   &userID,
		Action:    "project.join_request",
		ProjectID: "project-1",
		Result:    auditSuccess,
		Metadata:  map[string]any{"request_id": "req-1"},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action:    "project.member_remove",
		ProjectID: "project-2",
		Result:    auditDenied,
	}))

	logs, err := svc.List(ctx, AuditFilters{ProjectID: "project-1"}, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "project.join_request", logs[0].Action)
	require.NotNil(t, logs[0].ActorID)
	require.Equal(t, userID, *logs[0].ActorID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &metadata))
	require.Equal(t, "req-1", metadata["request_id"])

	byActor, err := svc.List(ctx, AuditFilters{ActorID: userID}, 10)
	require.NoError(t, err)
	require.Len(t, byActor, 1)

	denied, err := svc.List(ctx, AuditFilters{Result: auditDenied}, 0)
	require.NoError(t, err)
	require.Len(t, denied, 1)
	require.Nil(t, denied[0].ActorID)
	require.JSONEq(t, "{}", string(denied[0].Metadata))
}

func TestAuditServiceRejectsIncompleteEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: auditSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "project.create"}))
}

func TestRecordAuditUsesActorFromContext(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    "user-9",
		RequestID: "req-77",
		IPAddress: "10.0.0.9",
		UserAgent: "campus-test",
	})
	recordAudit(svc, ctx, AuditEntry{Action: "project.create", Result: auditSuccess, IPAddress: "10.0.0.1"})

	logs, err := svc.List(context.Background(), AuditFilters{Action: "project.create"}, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ActorID)
	require.Equal(t, "user-9", *logs[0].ActorID)
	require.Equal(t, "req-77", logs[0].RequestID)
	require.Equal(t, "10.0.0.1", logs[0].IPAddress)
	require.Equal(t, "campus-test", logs[0].UserAgent)

	recordAudit(nil, ctx, AuditEntry{Action: "ignored", Result: auditSuccess})
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, db.Create(&models.AuditLog{
		Action:    "old.action",
		Result:    auditSuccess,
		CreatedAt: now.AddDate(0, 0, -10),
	}).Error)
	require.NoError(t, db.Create(&models.AuditLog{
		Action:    "recent.action",
		Result:    auditSuccess,
		CreatedAt: now.AddDate(0, 0, -1),
	}).Error)

	rows, err := svc.CleanupOlderThan(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
