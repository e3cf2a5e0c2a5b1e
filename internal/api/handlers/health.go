package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"partshub-catalog/pkg/models"
)

var startTime = time.Now()

// Check probes one dependency; a nil error means healthy
type Check func(ctx context.Context) error

// HealthHandler reports overall service health including dependency probes.
// Any failing check degrades the status and flips the response to 503.
func HealthHandler(version string, checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   version,
			Checks:    map[string]string{"api": "ok"},
		}

		for name, check := range checks {
			if err := check(ctx); err != nil {
				response.Checks[name] = err.Error()
				response.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}

		return c.JSON(status, response)
	}
}

// LivenessHandler answers liveness probes without touching dependencies
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(startTime).String(),
	})
}
