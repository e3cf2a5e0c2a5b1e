package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"partshub-catalog/internal/api/handlers"
	"partshub-catalog/internal/api/routes"
	"partshub-catalog/internal/config"
	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/pipeline"
	"partshub-catalog/internal/scheduler"
	"partshub-catalog/internal/scraper"
	"partshub-catalog/internal/scraper/engines/browser"
	"partshub-catalog/internal/scraper/engines/static"
	"partshub-catalog/internal/storage"
	"partshub-catalog/internal/storage/memory"
	"partshub-catalog/internal/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.Initialize(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting PartsHub catalog scraper", map[string]interface{}{})

	registry, err := config.LoadVendors(cfg.Vendors.Path)
	if err != nil {
		logger.Fatal("Failed to load vendor configuration", map[string]interface{}{
			"path":  cfg.Vendors.Path,
			"error": err.Error(),
		})
	}
	logger.Info("Vendor configuration loaded", map[string]interface{}{
		"vendors": registry.Len(),
	})

	ctx := context.Background()

	checks := map[string]handlers.Check{}

	// Storage: PostgreSQL when configured, in-memory for local development
	var catalogStore storage.CatalogStore
	var jobStore storage.JobStore
	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer pool.Close()

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("Failed to apply database schema", map[string]interface{}{
				"error": err.Error(),
			})
		}

		catalogStore = postgres.NewCatalogRepo(pool)
		jobStore = postgres.NewJobRepo(pool)
		checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	} else {
		logger.Warn("No DATABASE_URL configured, using in-memory storage", map[string]interface{}{})
		catalogStore = memory.NewCatalogStore()
		jobStore = memory.NewJobStore()
	}

	// Queue: Redis when reachable, in-process fallback otherwise
	var queue scheduler.Queue
	redisQueue, err := scheduler.NewRedisQueue(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-process queue", map[string]interface{}{
			"error": err.Error(),
		})
		queue = scheduler.NewMemoryQueue()
	} else {
		queue = redisQueue
		checks["redis"] = redisQueue.Ping
	}
	defer queue.Close()

	engine := scraper.NewEngine(scraper.NewResolver(
		static.NewStrategy(cfg),
		browser.NewStrategy(cfg),
	))
	pipe := pipeline.New(catalogStore)

	sched := scheduler.New(cfg, registry, engine, pipe, jobStore, queue)
	sched.Start(ctx)

	cronSched, err := scheduler.NewCronScheduler(registry, sched)
	if err != nil {
		logger.Fatal("Failed to register vendor schedules", map[string]interface{}{
			"error": err.Error(),
		})
	}
	cronSched.Start()

	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, sched, jobStore, catalogStore, checks)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...", map[string]interface{}{})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cronSched.Stop()
		sched.Stop()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Shutdown complete", map[string]interface{}{})
	}()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address": address,
	})

	if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed to start", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
