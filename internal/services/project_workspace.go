package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/realtime"
	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
)

const (
	maxMessageLength = 4000
)

// Realtime events on project streams.
const (
	EventProjectMessage = "project.message"
	EventTaskUpdated    = "project.task_updated"
)

var errNotCollaborator = projects.ErrForbidden.WithMessage("Only the project creator and team members can access this project")

// AddTaskInput captures a new task on a project board.
type AddTaskInput struct {
	ProjectID    string
	ActingUserID string
	Title        string
	Description  string
	AssignedTo   string
	DueDate      *time.Time
}

// AddTask creates a task visible to the project's collaborators.
func (s *ProjectService) AddTask(ctx context.Context, input AddTaskInput) (*models.ProjectTask, error) {
	ctx = ensureContext(ctx)

	post, err := s.collaboratorProject(ctx, input.ProjectID, input.ActingUserID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("Task title is required")
	}

	task := &models.ProjectTask{
		ProjectID:   post.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   input.ActingUserID,
		DueDate:     input.DueDate,
		Status:      models.TaskNotStarted,
	}
	if assignee := strings.TrimSpace(input.AssignedTo); assignee != "" {
		if !post.CanCollaborate(assignee) {
			return nil, apperrors.NewBadRequest("Tasks can only be assigned to the creator or team members")
		}
		task.AssignedTo = &assignee
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("project service: create task: %w", err)
	}

	s.broadcastProject(post.ID, EventTaskUpdated, task)
	return task, nil
}

// UpdateTaskStatus moves a task through its board columns.
func (s *ProjectService) UpdateTaskStatus(ctx context.Context, projectID, taskID, actingUserID, status string) (*models.ProjectTask, error) {
	ctx = ensureContext(ctx)

	post, err := s.collaboratorProject(ctx, projectID, actingUserID)
	if err != nil {
		return nil, err
	}

	status = strings.TrimSpace(status)
	if !models.ValidTaskStatus(status) {
		return nil, apperrors.NewBadRequest("Status must be one of Not Started, In Progress or Completed")
	}

	var task models.ProjectTask
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND project_id = ?", strings.TrimSpace(taskID), post.ID).Take(&task).Error; err != nil {
			return err
		}
		task.Status = status
		return tx.Model(&task).Update("status", status).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: update task: %w", err)
	}

	s.broadcastProject(post.ID, EventTaskUpdated, &task)
	return &task, nil
}

// ListTasks returns the project's tasks oldest first.
func (s *ProjectService) ListTasks(ctx context.Context, projectID, actingUserID string) ([]models.ProjectTask, error) {
	ctx = ensureContext(ctx)

	post, err := s.collaboratorProject(ctx, projectID, actingUserID)
	if err != nil {
		return nil, err
	}

	var tasks []models.ProjectTask
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", post.ID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("project service: list tasks: %w", err)
	}
	return tasks, nil
}

// PostMessage stores a team chat message and fans it out on the project stream.
func (s *ProjectService) PostMessage(ctx context.Context, projectID, senderID, body string) (*models.ProjectMessage, error) {
	ctx = ensureContext(ctx)

	post, err := s.collaboratorProject(ctx, projectID, senderID)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("Message body is required")
	}
	if len(body) > maxMessageLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("Message body must be at most %d characters", maxMessageLength))
	}

	message := &models.ProjectMessage{
		ProjectID: post.ID,
		SenderID:  senderID,
		Body:      body,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("project service: create message: %w", err)
	}

	s.broadcastProject(post.ID, EventProjectMessage, message)
	return message, nil
}

// ListMessages returns the most recent chat messages oldest first.
func (s *ProjectService) ListMessages(ctx context.Context, projectID, actingUserID string, limit int) ([]models.ProjectMessage, error) {
	ctx = ensureContext(ctx)

	post, err := s.collaboratorProject(ctx, projectID, actingUserID)
	if err != nil {
		return nil, err
	}

	limit = pageSize(limit, DefaultMessagePage, MaxMessagePage)

	var messages []models.ProjectMessage
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", post.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("project service: list messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *ProjectService) collaboratorProject(ctx context.Context, projectID, userID string) (*models.ProjectPost, error) {
	post, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !post.CanCollaborate(strings.TrimSpace(userID)) {
		return nil, errNotCollaborator
	}
	return post, nil
}

func (s *ProjectService) broadcastProject(projectID, event string, data any) {
	if s.hub == nil {
		return
	}
	stream := realtime.ProjectStream(projectID)
	s.hub.BroadcastStream(stream, realtime.Message{
		Stream: stream,
		Event:  event,
		Data:   data,
	})
}
