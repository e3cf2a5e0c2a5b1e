package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"partshub-catalog/internal/api/handlers"
	"partshub-catalog/internal/api/middleware"
	"partshub-catalog/internal/config"
	"partshub-catalog/internal/scheduler"
	"partshub-catalog/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, sched *scheduler.Scheduler, jobs storage.JobStore, catalog storage.CatalogStore, checks map[string]handlers.Check) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler("1.0.0", checks))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		scraper := v1.Group("/scraper")
		{
			scraper.POST("/trigger/:vendor_id", handlers.TriggerScrapeHandler(sched))
			scraper.GET("/jobs", handlers.ListJobsHandler(jobs))
			scraper.GET("/jobs/:id", handlers.GetJobHandler(jobs))
			scraper.GET("/products/:vendor_name", handlers.ListProductsHandler(catalog))
			scraper.GET("/stats", handlers.StatsHandler(catalog, jobs))
			scraper.GET("/health", handlers.HealthHandler("1.0.0", checks))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "PartsHub Catalog Scraper",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
