package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/internal/app"
	iauth "github.com/charlesng35/campusconnect/internal/auth"
	"github.com/charlesng35/campusconnect/internal/cache"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "campus.sqlite")
	cfg.Monitoring.Prometheus.Enabled = false

	_, err = app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntimeServesProjects(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Projects)
	require.NotNil(t, stack.Cleaner)
	require.Nil(t, stack.Redis)
	require.Nil(t, stack.Mongo)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)
	token, err := jwtSvc.IssueToken("alice", "Alice")
	require.NoError(t, err)

	body := `{"title":"Robotics club","description":"Line follower","skills_required":["go"],"estimated_duration":"4 weeks","team_size":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBootstrapRuntimeRejectsUnreachableMongo(t *testing.T) {
	cfg := testConfig(t)
	cfg.Projects.Store = app.ProjectStoreMongo
	cfg.Mongo.URI = "mongodb://"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongo")
}

func TestProjectLockerSelection(t *testing.T) {
	_, local := projectLocker(nil, nil).(*cache.LocalLocker)
	require.True(t, local)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestLoadApplicationConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, time.Second, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServeReportsListenFailure(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}
	err := serve(context.Background(), server, time.Second, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "server error")
}
