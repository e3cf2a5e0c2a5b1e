package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

// recentJobsWindow is how far back the stats endpoint aggregates outcomes
const recentJobsWindow = 30 * 24 * time.Hour

// ListProductsHandler returns catalog entries for one vendor, optionally
// narrowed by category and a name/part search term.
func ListProductsHandler(catalog storage.CatalogStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		vendorName := c.Param("vendor_name")

		filter := models.CatalogFilter{
			Category: c.QueryParam("category"),
			Search:   c.QueryParam("search"),
			Limit:    queryInt(c, "limit", 100),
			Offset:   queryInt(c, "offset", 0),
		}

		entries, err := catalog.ListByVendor(c.Request().Context(), vendorName, filter)
		if err != nil {
			logging.GetGlobalLogger().Error("Failed to list products", map[string]interface{}{
				"request_id": requestID,
				"vendor":     vendorName,
				"error":      err.Error(),
			})
			return errorResponse(c, http.StatusInternalServerError, "LIST_FAILED",
				"failed to list products", requestID)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"vendor":   vendorName,
			"products": entries,
			"count":    len(entries),
		})
	}
}

// StatsHandler aggregates catalog sizes and recent job outcomes
func StatsHandler(catalog storage.CatalogStore, jobs storage.JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		ctx := c.Request().Context()

		counts, err := catalog.CountByVendor(ctx)
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "STATS_FAILED",
				"failed to aggregate catalog counts", requestID)
		}

		outcomes, err := jobs.RecentOutcomes(ctx, time.Now().Add(-recentJobsWindow))
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "STATS_FAILED",
				"failed to aggregate job outcomes", requestID)
		}

		lastSuccess, err := jobs.LastSuccessful(ctx)
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "STATS_FAILED",
				"failed to load last successful jobs", requestID)
		}

		return c.JSON(http.StatusOK, models.StatsResponse{
			ProductsByVendor: counts,
			RecentJobs:       outcomes,
			LastSuccessful:   lastSuccess,
		})
	}
}
