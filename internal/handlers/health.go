package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/pkg/response"
)

// HealthCheck probes a dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// DatabaseCheck pings the SQL connection pool behind db.
func DatabaseCheck(db *gorm.DB) HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Health reports liveness plus the state of every named dependency. Any
// failing check turns the response into a 503.
func Health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			components[name] = "up"
		}

		payload := gin.H{"status": status}
		if len(components) > 0 {
			payload["components"] = components
		}
		response.Success(c, code, payload)
	}
}
