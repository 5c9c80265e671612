package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
)

func joinTeam(t *testing.T, fx *projectFixture, projectID, user string) {
	t.Helper()
	ctx := context.Background()
	req, err := fx.svc.RequestToJoin(ctx, projectID, user)
	require.NoError(t, err)
	_, err = fx.svc.ManageJoinRequest(ctx, projectID, req.ID, "approve", "creator")
	require.NoError(t, err)
}

func TestProjectTasks(t *testing.T) {
	fx := newProjectFixture(t)
	ctx := context.Background()
	post := fx.createProject(t, 2)
	joinTeam(t, fx, post.ID, "alice")

	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	task, err := fx.svc.AddTask(ctx, AddTaskInput{
		ProjectID:    post.ID,
		ActingUserID: "alice",
		Title:        "Order motors",
		AssignedTo:   "creator",
		DueDate:      &due,
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskNotStarted, task.Status)
	require.Equal(t, "alice", task.CreatedBy)
	require.NotNil(t, task.AssignedTo)

	_, err = fx.svc.AddTask(ctx, AddTaskInput{ProjectID: post.ID, ActingUserID: "mallory", Title: "Sneaky"})
	require.ErrorIs(t, err, projects.ErrForbidden)

	_, err = fx.svc.AddTask(ctx, AddTaskInput{ProjectID: post.ID, ActingUserID: "creator", Title: "x", AssignedTo: "mallory"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.AddTask(ctx, AddTaskInput{ProjectID: post.ID, ActingUserID: "creator", Title: "  "})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	updated, err := fx.svc.UpdateTaskStatus(ctx, post.ID, task.ID, "creator", models.TaskInProgress)
	require.NoError(t, err)
	require.Equal(t, models.TaskInProgress, updated.Status)

	_, err = fx.svc.UpdateTaskStatus(ctx, post.ID, task.ID, "creator", "Blocked")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.UpdateTaskStatus(ctx, post.ID, "missing", "creator", models.TaskCompleted)
	require.ErrorIs(t, err, ErrTaskNotFound)

	tasks, err := fx.svc.ListTasks(ctx, post.ID, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, models.TaskInProgress, tasks[0].Status)
}

func TestProjectMessages(t *testing.T) {
	fx := newProjectFixture(t)
	ctx := context.Background()
	post := fx.createProject(t, 2)
	joinTeam(t, fx, post.ID, "alice")

	_, err := fx.svc.PostMessage(ctx, post.ID, "creator", "Kickoff on Monday")
	require.NoError(t, err)
	_, err = fx.svc.PostMessage(ctx, post.ID, "alice", "See you there")
	require.NoError(t, err)

	_, err = fx.svc.PostMessage(ctx, post.ID, "alice", "   ")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.PostMessage(ctx, post.ID, "mallory", "hello")
	require.ErrorIs(t, err, projects.ErrForbidden)

	_, err = fx.svc.ListMessages(ctx, post.ID, "mallory", 0)
	require.ErrorIs(t, err, projects.ErrForbidden)

	messages, err := fx.svc.ListMessages(ctx, post.ID, "alice", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "Kickoff on Monday", messages[0].Body)
	require.Equal(t, "See you there", messages[1].Body)

	_, err = fx.svc.ListMessages(ctx, "missing", "alice", 0)
	require.ErrorIs(t, err, ErrProjectNotFound)
}
