package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/cache"
	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/internal/repository"
	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/logger"
	"github.com/charlesng35/campusconnect/pkg/metrics"
)

const (
	defaultMaxRetries = 5
	defaultLockTTL    = 5 * time.Second
	retryBackoff      = 5 * time.Millisecond
)

// CreateProjectInput captures a new project post.
type CreateProjectInput struct {
	CreatorID         string
	Title             string
	Description       string
	Category          string
	Skills            []string
	EstimatedDuration string
	TeamSize          *int
	Visibility        string
}

// ListProjectsInput filters ListProjects.
type ListProjectsInput struct {
	CreatorID string
	OpenOnly  bool
	Limit     int
}

// ProjectOption customises a ProjectService.
type ProjectOption func(*ProjectService)

// WithLocker serialises writers per project through locker. The version check
// still guards every write when the lease cannot be taken.
func WithLocker(locker cache.Locker, ttl time.Duration) ProjectOption {
	return func(s *ProjectService) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithEventSink delivers committed team events to sink.
func WithEventSink(sink TeamEventSink) ProjectOption {
	return func(s *ProjectService) { s.sink = sink }
}

// WithHub broadcasts project chat messages on the realtime hub.
func WithHub(hub *realtime.Hub) ProjectOption {
	return func(s *ProjectService) { s.hub = hub }
}

// WithEngine overrides the team-formation engine, mainly to control time.
func WithEngine(engine *projects.Engine) ProjectOption {
	return func(s *ProjectService) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithMaxRetries bounds how often a transition is retried after a version conflict.
func WithMaxRetries(n int) ProjectOption {
	return func(s *ProjectService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithDefaultTeamSize sets the team size used when a post does not specify one.
func WithDefaultTeamSize(n int) ProjectOption {
	return func(s *ProjectService) {
		if n > 0 {
			s.defaultTeamSize = n
		}
	}
}

// ProjectService coordinates project posts, their team-formation transitions,
// tasks and team chat.
type ProjectService struct {
	repo            repository.ProjectRepository
	db              *gorm.DB
	auditService    *AuditService
	engine          *projects.Engine
	locker          cache.Locker
	lockTTL         time.Duration
	sink            TeamEventSink
	hub             *realtime.Hub
	maxRetries      int
	defaultTeamSize int
	log             *zap.Logger
}

// NewProjectService constructs a ProjectService. Projects live in repo while
// tasks and messages live in db.
func NewProjectService(repo repository.ProjectRepository, db *gorm.DB, auditService *AuditService, opts ...ProjectOption) (*ProjectService, error) {
	if repo == nil {
		return nil, errors.New("project service: repository is required")
	}
	if db == nil {
		return nil, errors.New("project service: db is required")
	}

	svc := &ProjectService{
		repo:            repo,
		db:              db,
		auditService:    auditService,
		engine:          projects.NewEngine(),
		lockTTL:         defaultLockTTL,
		maxRetries:      defaultMaxRetries,
		defaultTeamSize: 1,
		log:             logger.WithModule("projects"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateProject publishes a new project post with an empty team.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.ProjectPost, error) {
	ctx = ensureContext(ctx)

	creatorID := strings.TrimSpace(input.CreatorID)
	if creatorID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	duration := strings.TrimSpace(input.EstimatedDuration)
	skills := normaliseSkills(input.Skills)
	if title == "" || description == "" || duration == "" || len(skills) == 0 {
		return nil, apperrors.NewBadRequest("Title, Description, Skills Required, and Estimated Duration are required fields.")
	}

	size := s.defaultTeamSize
	if input.TeamSize != nil {
		size = *input.TeamSize
	}
	if size < 1 {
		return nil, apperrors.NewBadRequest("Team size must be a positive number.")
	}

	visibility := defaultIfEmpty(strings.TrimSpace(input.Visibility), models.VisibilityPublic)
	if !models.ValidVisibility(visibility) {
		return nil, apperrors.NewBadRequest("Visibility must be one of Public, Connections Only or Custom.")
	}

	post := &models.ProjectPost{
		Title:             title,
		Description:       description,
		Category:          strings.TrimSpace(input.Category),
		Skills:            skills,
		EstimatedDuration: duration,
		Visibility:        visibility,
		Team: projects.Team{
			CreatorID: creatorID,
			Size:      size,
		},
		Version: 1,
	}

	if err := s.repo.CreateProject(ctx, post); err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:   &creatorID,
		Action:    "project.create",
		ProjectID: post.ID,
		Result:    auditSuccess,
		Metadata:  map[string]any{"team_size": size},
	})
	return post, nil
}

// GetProject returns a single project post.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*models.ProjectPost, error) {
	ctx = ensureContext(ctx)
	post, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}
	return post, nil
}

// ListProjects returns project posts newest first.
func (s *ProjectService) ListProjects(ctx context.Context, input ListProjectsInput) ([]models.ProjectPost, error) {
	ctx = ensureContext(ctx)

	limit := pageSize(input.Limit, DefaultProjectPage, MaxProjectPage)
	posts, err := s.repo.ListProjects(ctx, repository.ProjectFilter{
		CreatorID: strings.TrimSpace(input.CreatorID),
		OpenOnly:  input.OpenOnly,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}
	return posts, nil
}

// ListJoinRequests returns the project's ledger in request order. Only the
// creator may read it.
func (s *ProjectService) ListJoinRequests(ctx context.Context, projectID, actingUserID string) ([]projects.JoinRequest, error) {
	post, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !post.IsCreator(actingUserID) {
		return nil, projects.ErrForbidden.WithMessage("Only the project creator can view join requests")
	}
	return post.Requests.Entries(), nil
}

// RequestToJoin records a pending join request for userID.
func (s *ProjectService) RequestToJoin(ctx context.Context, projectID, userID string) (*projects.JoinRequest, error) {
	ctx = ensureContext(ctx)

	post, outcome, err := s.mutate(ctx, projectID, func(post *models.ProjectPost) (projects.Outcome, error) {
		return s.engine.RequestToJoin(&post.Team, userID)
	})
	s.observe("request", err)
	if err != nil {
		return nil, err
	}

	s.log.Debug("join request created",
		zap.String("project_id", post.ID),
		zap.String("user_id", userID),
		zap.String("request_id", outcome.Request.ID),
	)
	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:   &userID,
		Action:    "project.join_request",
		ProjectID: post.ID,
		Result:    auditSuccess,
		Metadata:  map[string]any{"request_id": outcome.Request.ID},
	})
	s.emit(ctx, TeamEvent{
		Type:          EventJoinRequested,
		ProjectID:     post.ID,
		ProjectTitle:  post.Title,
		ActorID:       userID,
		SubjectUserID: userID,
		RequestID:     outcome.Request.ID,
		Recipients:    []string{post.CreatorID},
	})

	request := outcome.Request
	return &request, nil
}

// ManageJoinRequest applies the creator's approve or deny decision.
func (s *ProjectService) ManageJoinRequest(ctx context.Context, projectID, requestID, action, actingUserID string) (*projects.JoinRequest, error) {
	ctx = ensureContext(ctx)

	post, outcome, err := s.mutate(ctx, projectID, func(post *models.ProjectPost) (projects.Outcome, error) {
		return s.engine.Decide(&post.Team, actingUserID, requestID, action)
	})
	normalized := "invalid"
	if parsed, parseErr := projects.ParseDisposition(action); parseErr == nil {
		normalized = string(parsed)
	}
	s.observe(normalized, err)
	if err != nil {
		if errors.Is(err, projects.ErrForbidden) {
			s.auditDenied(ctx, actingUserID, "project.join_"+normalized, projectID)
		}
		return nil, err
	}

	request := outcome.Request
	eventType, auditAction := EventJoinDenied, "project.join_deny"
	if request.Status == projects.StatusApproved {
		eventType, auditAction = EventJoinApproved, "project.join_approve"
	}

	s.log.Debug("join request decided",
		zap.String("project_id", post.ID),
		zap.String("request_id", request.ID),
		zap.String("status", string(request.Status)),
	)
	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:   &actingUserID,
		Action:    auditAction,
		ProjectID: post.ID,
		Result:    auditSuccess,
		Metadata:  map[string]any{"request_id": request.ID, "user_id": request.UserID},
	})
	s.emit(ctx, TeamEvent{
		Type:          eventType,
		ProjectID:     post.ID,
		ProjectTitle:  post.Title,
		ActorID:       actingUserID,
		SubjectUserID: request.UserID,
		RequestID:     request.ID,
		Recipients:    []string{request.UserID},
	})

	if outcome.Formed {
		metrics.TeamsFormed.Inc()
		s.emit(ctx, TeamEvent{
			Type:         EventTeamFormed,
			ProjectID:    post.ID,
			ProjectTitle: post.Title,
			ActorID:      actingUserID,
			Recipients:   append([]string{post.CreatorID}, post.Members...),
		})
	}

	return &request, nil
}

// RemoveMember drops targetUserID from the team and starts their re-entry cooldown.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, targetUserID, actingUserID string) error {
	ctx = ensureContext(ctx)

	post, outcome, err := s.mutate(ctx, projectID, func(post *models.ProjectPost) (projects.Outcome, error) {
		return s.engine.RemoveMember(&post.Team, actingUserID, targetUserID)
	})
	s.observe("remove", err)
	if err != nil {
		if errors.Is(err, projects.ErrForbidden) {
			s.auditDenied(ctx, actingUserID, "project.member_remove", projectID)
		}
		return err
	}

	s.log.Debug("team member removed",
		zap.String("project_id", post.ID),
		zap.String("user_id", targetUserID),
		zap.Bool("dissolved", outcome.Dissolved),
	)
	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:   &actingUserID,
		Action:    "project.member_remove",
		ProjectID: post.ID,
		Result:    auditSuccess,
		Metadata:  map[string]any{"user_id": targetUserID, "request_id": outcome.Request.ID},
	})
	s.emit(ctx, TeamEvent{
		Type:          EventMemberRemoved,
		ProjectID:     post.ID,
		ProjectTitle:  post.Title,
		ActorID:       actingUserID,
		SubjectUserID: targetUserID,
		RequestID:     outcome.Request.ID,
		Recipients:    []string{targetUserID},
	})
	return nil
}

// CanAccessStream authorises realtime subscriptions: everyone may follow
// their notifications, only collaborators may follow a project's chat.
func (s *ProjectService) CanAccessStream(userID, stream string) bool {
	if stream == realtime.StreamNotifications {
		return true
	}
	projectID, ok := realtime.ProjectIDFromStream(stream)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	post, err := s.GetProject(ctx, projectID)
	if err != nil {
		return false
	}
	return post.CanCollaborate(userID)
}

// mutate runs one read-validate-write cycle against a project, retrying on
// version conflicts up to maxRetries times.
func (s *ProjectService) mutate(ctx context.Context, projectID string, apply func(*models.ProjectPost) (projects.Outcome, error)) (*models.ProjectPost, projects.Outcome, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, projects.Outcome{}, ErrProjectNotFound
	}

	if release := s.acquireLease(ctx, projectID); release != nil {
		defer release()
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		post, err := s.repo.GetProject(ctx, projectID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, projects.Outcome{}, ErrProjectNotFound
		}
		if err != nil {
			return nil, projects.Outcome{}, fmt.Errorf("project service: load project: %w", err)
		}

		expected := post.Version
		outcome, err := apply(post)
		if err != nil {
			return nil, projects.Outcome{}, err
		}

		err = s.repo.SaveProject(ctx, post, expected)
		switch {
		case err == nil:
			return post, outcome, nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, projects.Outcome{}, ErrProjectNotFound
		case !errors.Is(err, repository.ErrVersionConflict):
			return nil, projects.Outcome{}, fmt.Errorf("project service: save project: %w", err)
		}

		metrics.ProjectUpdateConflicts.Inc()
		s.log.Warn("project version conflict, retrying",
			zap.String("project_id", projectID),
			zap.Int("attempt", attempt),
		)

		select {
		case <-ctx.Done():
			return nil, projects.Outcome{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return nil, projects.Outcome{}, ErrConcurrentUpdate
}

func (s *ProjectService) acquireLease(ctx context.Context, projectID string) func() {
	if s.locker == nil {
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	lease, err := s.locker.Acquire(lockCtx, "project:"+projectID, s.lockTTL)
	if err != nil {
		s.log.Warn("project lease unavailable, relying on version check",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil
	}

	return func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release project lease", zap.String("project_id", projectID), zap.Error(err))
		}
	}
}

func (s *ProjectService) emit(ctx context.Context, event TeamEvent) {
	if s.sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.sink.Deliver(context.WithoutCancel(ctx), event)
}

func (s *ProjectService) observe(action string, err error) {
	result := "success"
	if err != nil {
		result = "error"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.StatusCode < 500 {
			result = "rejected"
		}
	}
	metrics.JoinRequestTransitions.WithLabelValues(action, result).Inc()
}

func (s *ProjectService) auditDenied(ctx context.Context, userID, action, projectID string) {
	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:   &userID,
		Action:    action,
		ProjectID: projectID,
		Result:    auditDenied,
	})
}
