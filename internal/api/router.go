package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/handlers"
	"github.com/charlesng35/campusconnect/internal/middleware"
	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/internal/services"
)

// Default request budget per caller and route.
const (
	DefaultRateLimit  = 100
	DefaultRateWindow = time.Minute
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	DB            *gorm.DB
	Verifier      middleware.TokenVerifier
	Projects      *services.ProjectService
	Notifications *services.NotificationService
	Hub           *realtime.Hub

	// RateStore shares rate-limit counters; nil keeps them in memory.
	RateStore  middleware.RateStore
	RateLimit  int
	RateWindow time.Duration

	// HealthChecks are probed by /health in addition to the database.
	HealthChecks   map[string]handlers.HealthCheck
	MetricsEnabled bool
	AllowedOrigins []string
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, errors.New("database handle must be provided")
	}
	if deps.Verifier == nil {
		return nil, errors.New("token verifier must be provided")
	}
	if deps.Projects == nil {
		return nil, errors.New("project service must be provided")
	}
	if deps.Notifications == nil {
		return nil, errors.New("notification service must be provided")
	}

	limit, window := deps.RateLimit, deps.RateWindow
	if limit == 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.AllowedOrigins...))

	registerHealthRoutes(r, deps)
	if deps.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	registerRealtimeRoutes(r, handlers.NewRealtimeHandler(deps.Hub, deps.Verifier))

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))
	api.Use(middleware.RateLimit(deps.RateStore, limit, window))

	registerProjectRoutes(api, handlers.NewProjectHandler(deps.Projects))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
