package handlers_test

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusconnect/internal/handlers/testutil"
	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
)

type projectPayload struct {
	ID           string                 `json:"id"`
	CreatorID    string                 `json:"creator_id"`
	TeamSize     int                    `json:"team_size"`
	TeamMembers  []string               `json:"team_members"`
	TeamFormed   bool                   `json:"team_formed"`
	OpenSeats    int                    `json:"open_seats"`
	JoinRequests []projects.JoinRequest `json:"join_requests"`
}

type requestPayload struct {
	Message string               `json:"message"`
	Request projects.JoinRequest `json:"request"`
}

func createProject(t *testing.T, env *testutil.Env, creatorToken string, size int) projectPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/projects", map[string]any{
		"title":              "Campus Robotics",
		"description":        "Build a line-following robot",
		"skills_required":    []string{"C++", "Electronics"},
		"estimated_duration": "3 months",
		"team_size":          size,
	}, creatorToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var project projectPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &project)
	return project
}

func requestToJoin(t *testing.T, env *testutil.Env, projectID, token string) requestPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/projects/"+projectID+"/join-requests", nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payload requestPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &payload)
	return payload
}

func TestProjectRoutesRequireAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/projects", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateProjectRequiresFields(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/projects", map[string]any{"title": "Half a post"}, env.Token("creator"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "Title, Description, Skills Required, and Estimated Duration are required fields.", resp.Error.Message)

	w = env.Request(http.MethodPost, "/api/projects", map[string]any{
		"title":              "t",
		"description":        "d",
		"skills_required":    []string{"Go"},
		"estimated_duration": "1w",
		"team_size":          0,
	}, env.Token("creator"))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRequestLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	creator, alice, bob := env.Token("creator"), env.Token("alice"), env.Token("bob")

	project := createProject(t, env, creator, 1)
	require.Equal(t, 1, project.OpenSeats)
	require.Empty(t, project.TeamMembers)

	joined := requestToJoin(t, env, project.ID, alice)
	require.Equal(t, "Request to join the project sent successfully.", joined.Message)
	require.Equal(t, projects.StatusPending, joined.Request.Status)

	w := env.Request(http.MethodPost, "/api/projects/"+project.ID+"/join-requests", nil, alice)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "JOIN_REQUEST_DUPLICATE", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID+"/join-requests", nil, alice)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/join-requests", map[string]string{
		"request_id": joined.Request.ID,
		"action":     "approve",
	}, alice)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/join-requests", map[string]string{
		"request_id": joined.Request.ID,
	}, creator)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/join-requests", map[string]string{
		"request_id": joined.Request.ID,
		"action":     "approve",
	}, creator)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var decided requestPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &decided)
	require.Equal(t, "Request approved successfully.", decided.Message)

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	var view projectPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &view)
	require.True(t, view.TeamFormed)
	require.Equal(t, []string{"alice"}, view.TeamMembers)
	require.Empty(t, view.JoinRequests)

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID, nil, creator)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &view)
	require.Len(t, view.JoinRequests, 1)

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/join-requests", nil, bob)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "TEAM_CAPACITY_EXCEEDED", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/members/remove", map[string]string{"user_id": "alice"}, creator)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/members/remove", map[string]string{"user_id": "alice"}, creator)
	require.Equal(t, http.StatusNotFound, w.Code)

	env.Now = env.Now.Add(20 * time.Minute)
	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/join-requests", nil, alice)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "JOIN_REQUEST_COOLDOWN", testutil.DecodeResponse(t, w).Error.Code)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.InDelta(t, 40*60, retryAfter, 1)

	env.Now = env.Now.Add(41 * time.Minute)
	requestToJoin(t, env, project.ID, alice)

	w = env.Request(http.MethodGet, "/api/notifications", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []struct {
		Type string `json:"type"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &notes)
	require.Len(t, notes, 3)
}

func TestManageJoinRequestDenyAndInvalidTransition(t *testing.T) {
	env := testutil.NewEnv(t)
	creator, alice := env.Token("creator"), env.Token("alice")

	project := createProject(t, env, creator, 2)
	joined := requestToJoin(t, env, project.ID, alice)

	path := "/api/projects/" + project.ID + "/join-requests"
	w := env.Request(http.MethodPatch, path, map[string]string{"request_id": joined.Request.ID, "action": "shrug"}, creator)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "JOIN_REQUEST_INVALID_ACTION", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPatch, path, map[string]string{"request_id": joined.Request.ID, "action": "deny"}, creator)
	require.Equal(t, http.StatusOK, w.Code)
	var decided requestPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &decided)
	require.Equal(t, "Request denied successfully.", decided.Message)

	w = env.Request(http.MethodPatch, path, map[string]string{"request_id": joined.Request.ID, "action": "approve"}, creator)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "JOIN_REQUEST_INVALID_TRANSITION", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPatch, path, map[string]string{"request_id": "nope", "action": "approve"}, creator)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodPost, "/api/projects/missing/join-requests", nil, alice)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "PROJECT_NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)
}

func TestTasksAndMessagesRoutes(t *testing.T) {
	env := testutil.NewEnv(t)
	creator, alice, mallory := env.Token("creator"), env.Token("alice"), env.Token("mallory")

	project := createProject(t, env, creator, 2)
	joined := requestToJoin(t, env, project.ID, alice)
	w := env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/join-requests", map[string]string{
		"request_id": joined.Request.ID,
		"action":     "approve",
	}, creator)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/tasks", map[string]any{
		"title":       "Order motors",
		"assigned_to": "alice",
	}, creator)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task models.ProjectTask
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &task)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/tasks/"+task.ID, map[string]string{"status": "Done"}, alice)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/tasks/"+task.ID, map[string]string{"status": models.TaskCompleted}, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID+"/tasks", nil, mallory)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/messages", map[string]string{"body": "hello team"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/messages", map[string]string{"body": "let me in"}, mallory)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID+"/messages", nil, creator)
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, 1, resp.Meta.Total)
}

func TestListProjectsOpenOnly(t *testing.T) {
	env := testutil.NewEnv(t)
	creator := env.Token("creator")

	full := createProject(t, env, creator, 1)
	createProject(t, env, creator, 3)

	joined := requestToJoin(t, env, full.ID, env.Token("alice"))
	w := env.Request(http.MethodPatch, "/api/projects/"+full.ID+"/join-requests", map[string]string{
		"request_id": joined.Request.ID,
		"action":     "approve",
	}, creator)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/projects?open=true", nil, creator)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []projectPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, 3, listed[0].TeamSize)
}
