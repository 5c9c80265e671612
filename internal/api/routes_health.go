package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	checks := map[string]handlers.HealthCheck{
		"database": handlers.DatabaseCheck(deps.DB),
	}
	for name, check := range deps.HealthChecks {
		checks[name] = check
	}

	r.GET("/health", handlers.Health(checks))
}
