package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/services"
	"github.com/charlesng35/campusconnect/pkg/response"
)

// ProjectHandler exposes project posts, team formation, tasks and team chat.
type ProjectHandler struct {
	service *services.ProjectService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Title             string   `json:"title" validate:"max=255"`
	Description       string   `json:"description" validate:"max=10000"`
	Category          string   `json:"category" validate:"max=128"`
	SkillsRequired    []string `json:"skills_required" validate:"max=50,dive,max=64"`
	EstimatedDuration string   `json:"estimated_duration" validate:"max=128"`
	TeamSize          *int     `json:"team_size" validate:"omitempty,min=1,max=100"`
	Visibility        string   `json:"visibility"`
}

type manageJoinRequest struct {
	RequestID string `json:"request_id" validate:"required,notblank"`
	Action    string `json:"action" validate:"required,notblank"`
}

type removeMemberRequest struct {
	UserID string `json:"user_id" validate:"required,notblank"`
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=255"`
	Description string     `json:"description" validate:"max=10000"`
	AssignedTo  string     `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Status string `json:"status" validate:"required,oneof='Not Started' 'In Progress' 'Completed'"`
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,notblank"`
}

// projectView is the public shape of a project. The join-request ledger is
// only included for the creator.
type projectView struct {
	ID                string                 `json:"id"`
	CreatorID         string                 `json:"creator_id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Category          string                 `json:"category,omitempty"`
	SkillsRequired    []string               `json:"skills_required"`
	EstimatedDuration string                 `json:"estimated_duration"`
	Visibility        string                 `json:"visibility"`
	TeamSize          int                    `json:"team_size"`
	TeamMembers       projects.Roster        `json:"team_members"`
	TeamFormed        bool                   `json:"team_formed"`
	OpenSeats         int                    `json:"open_seats"`
	JoinRequests      []projects.JoinRequest `json:"join_requests,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func newProjectView(post *models.ProjectPost, viewerID string) projectView {
	view := projectView{
		ID:                post.ID,
		CreatorID:         post.CreatorID,
		Title:             post.Title,
		Description:       post.Description,
		Category:          post.Category,
		SkillsRequired:    []string(post.Skills),
		EstimatedDuration: post.EstimatedDuration,
		Visibility:        post.Visibility,
		TeamSize:          post.Size,
		TeamMembers:       post.Members,
		TeamFormed:        post.Formed,
		OpenSeats:         post.OpenSeats(),
		CreatedAt:         post.CreatedAt,
		UpdatedAt:         post.UpdatedAt,
	}
	if view.SkillsRequired == nil {
		view.SkillsRequired = []string{}
	}
	if post.IsCreator(viewerID) {
		view.JoinRequests = post.Requests.Entries()
	}
	return view
}

// Create publishes a new project post.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := actorID(c)
	post, err := h.service.CreateProject(requestContext(c), services.CreateProjectInput{
		CreatorID:         userID,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Skills:            req.SkillsRequired,
		EstimatedDuration: req.EstimatedDuration,
		TeamSize:          req.TeamSize,
		Visibility:        req.Visibility,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, newProjectView(post, userID))
}

// List returns project posts, optionally only those still recruiting.
func (h *ProjectHandler) List(c *gin.Context) {
	userID := actorID(c)
	posts, err := h.service.ListProjects(requestContext(c), services.ListProjectsInput{
		CreatorID: strings.TrimSpace(c.Query("creator_id")),
		OpenOnly:  strings.EqualFold(c.Query("open"), "true"),
		Limit:     boundedIntQuery(c, "limit", services.DefaultProjectPage, services.MaxProjectPage),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]projectView, 0, len(posts))
	for i := range posts {
		views = append(views, newProjectView(&posts[i], userID))
	}
	response.SuccessWithMeta(c, http.StatusOK, views, &response.Meta{Total: len(views)})
}

// Get returns a single project post.
func (h *ProjectHandler) Get(c *gin.Context) {
	post, err := h.service.GetProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newProjectView(post, actorID(c)))
}

// RequestToJoin files a join request for the caller.
func (h *ProjectHandler) RequestToJoin(c *gin.Context) {
	request, err := h.service.RequestToJoin(requestContext(c), c.Param("id"), actorID(c))
	if err != nil {
		writeProjectError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Request to join the project sent successfully.",
		"request": request,
	})
}

// ListJoinRequests returns the ledger to the project creator.
func (h *ProjectHandler) ListJoinRequests(c *gin.Context) {
	entries, err := h.service.ListJoinRequests(requestContext(c), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{Total: len(entries)})
}

// ManageJoinRequest approves or denies a pending request.
func (h *ProjectHandler) ManageJoinRequest(c *gin.Context) {
	var req manageJoinRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.service.ManageJoinRequest(
		requestContext(c),
		c.Param("id"),
		strings.TrimSpace(req.RequestID),
		req.Action,
		actorID(c),
	)
	if err != nil {
		writeProjectError(c, err)
		return
	}

	verb := "denied"
	if request.Status == projects.StatusApproved {
		verb = "approved"
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("Request %s successfully.", verb),
		"request": request,
	})
}

// RemoveMember drops a user from the team.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	var req removeMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.service.RemoveMember(requestContext(c), c.Param("id"), strings.TrimSpace(req.UserID), actorID(c)); err != nil {
		writeProjectError(c, err)
		return
	}

	response.Ack(c, http.StatusOK, "Team member removed successfully.")
}

// AddTask creates a task on the project board.
func (h *ProjectHandler) AddTask(c *gin.Context) {
	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.service.AddTask(requestContext(c), services.AddTaskInput{
		ProjectID:    c.Param("id"),
		ActingUserID: actorID(c),
		Title:        req.Title,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		DueDate:      req.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// ListTasks returns the project board.
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.ListTasks(requestContext(c), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, tasks, &response.Meta{Total: len(tasks)})
}

// UpdateTask moves a task to another status.
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.service.UpdateTaskStatus(requestContext(c), c.Param("id"), c.Param("taskID"), actorID(c), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// PostMessage sends a message to the team chat.
func (h *ProjectHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.service.PostMessage(requestContext(c), c.Param("id"), actorID(c), req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// ListMessages returns recent team chat messages.
func (h *ProjectHandler) ListMessages(c *gin.Context) {
	messages, err := h.service.ListMessages(requestContext(c), c.Param("id"), actorID(c), boundedIntQuery(c, "limit", services.DefaultMessagePage, services.MaxMessagePage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, messages, &response.Meta{Total: len(messages)})
}

// writeProjectError renders err and advertises Retry-After for cooldown and
// contention failures.
func writeProjectError(c *gin.Context, err error) {
	var remaining projects.CooldownRemaining
	switch {
	case errors.As(err, &remaining):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Remaining.Seconds()))))
	case errors.Is(err, services.ErrConcurrentUpdate):
		c.Header("Retry-After", "1")
	}
	response.Error(c, err)
}
