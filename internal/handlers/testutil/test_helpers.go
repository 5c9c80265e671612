package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/api"
	iauth "github.com/charlesng35/campusconnect/internal/auth"
	"github.com/charlesng35/campusconnect/internal/cache"
	sharedtestutil "github.com/charlesng35/campusconnect/internal/database/testutil"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/internal/repository/sqlstore"
	"github.com/charlesng35/campusconnect/internal/services"
	"github.com/charlesng35/campusconnect/pkg/response"
)

// Env is the full API wired over a private in-memory database.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	JWT           *iauth.JWTService
	Hub           *realtime.Hub
	Projects      *services.ProjectService
	Notifications *services.NotificationService
	// Now drives the team-formation clock; tests may move it forward.
	Now time.Time
}

// NewEnv builds an Env with migrations applied and rate limiting off.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:   "test-suite-super-secret-key-32-bytes!!",
		Issuer:   "test-suite",
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	env := &Env{
		T:   t,
		DB:  db,
		JWT: jwtSvc,
		Hub: realtime.NewHub(),
		Now: time.Now().UTC(),
	}

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	env.Notifications, err = services.NewNotificationService(db, env.Hub)
	require.NoError(t, err)

	repo, err := sqlstore.NewProjectRepository(db)
	require.NoError(t, err)

	engine := projects.NewEngine(projects.WithClock(func() time.Time { return env.Now }))
	env.Projects, err = services.NewProjectService(repo, db, audit,
		services.WithEngine(engine),
		services.WithLocker(cache.NewLocalLocker(), time.Second),
		services.WithEventSink(env.Notifications),
		services.WithHub(env.Hub),
	)
	require.NoError(t, err)
	env.Hub.SetAuthorizer(env.Projects.CanAccessStream)

	env.Router, err = api.NewRouter(api.Dependencies{
		DB:             db,
		Verifier:       jwtSvc,
		Projects:       env.Projects,
		Notifications:  env.Notifications,
		Hub:            env.Hub,
		RateLimit:      -1,
		MetricsEnabled: true,
	})
	require.NoError(t, err)

	return env
}

// Token issues a bearer token for userID.
func (e *Env) Token(userID string) string {
	e.T.Helper()
	token, err := e.JWT.IssueToken(userID, "")
	require.NoError(e.T, err)
	return token
}

// APIResponse is the response envelope with Data left undecoded.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the envelope written to w.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals an envelope's data into dest.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	require.NotNil(t, dest)
	require.NoError(t, json.Unmarshal(raw, dest), string(raw))
}

// Request sends method path to the router. A non-nil body is sent as JSON and
// a non-empty token as a bearer credential.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.T, err)
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
