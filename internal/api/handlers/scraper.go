package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/scheduler"
	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

// TriggerScrapeHandler enqueues a crawl for one vendor. The job runs
// asynchronously; the response carries the job id to poll.
func TriggerScrapeHandler(sched *scheduler.Scheduler) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()
		vendorID := c.Param("vendor_id")

		logger.Info("Manual scrape trigger requested", map[string]interface{}{
			"request_id": requestID,
			"vendor_id":  vendorID,
		})

		job, err := sched.Enqueue(c.Request().Context(), vendorID)
		if err != nil {
			if errors.Is(err, utils.ErrUnknownVendor) {
				return errorResponse(c, http.StatusNotFound, "UNKNOWN_VENDOR",
					"no vendor configured with id "+vendorID, requestID)
			}
			logger.Error("Failed to enqueue job", map[string]interface{}{
				"request_id": requestID,
				"vendor_id":  vendorID,
				"error":      err.Error(),
			})
			return errorResponse(c, http.StatusInternalServerError, "ENQUEUE_FAILED",
				"failed to enqueue scrape job", requestID)
		}

		return c.JSON(http.StatusAccepted, models.TriggerResponse{
			Message:   "scrape job queued",
			VendorID:  vendorID,
			JobID:     job.ID,
			Status:    job.Status,
			RequestID: requestID,
		})
	}
}

// ListJobsHandler lists scraper jobs, newest first
func ListJobsHandler(jobs storage.JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		filter := models.JobFilter{
			Status:   models.JobStatus(c.QueryParam("status")),
			VendorID: c.QueryParam("vendor_id"),
			Limit:    queryInt(c, "limit", 50),
			Offset:   queryInt(c, "offset", 0),
		}

		list, err := jobs.ListJobs(c.Request().Context(), filter)
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "LIST_FAILED",
				"failed to list jobs", requestID)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"jobs":  list,
			"count": len(list),
		})
	}
}

// GetJobHandler returns one job by id
func GetJobHandler(jobs storage.JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "INVALID_JOB_ID",
				"job id must be an integer", requestID)
		}

		job, err := jobs.GetJob(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return errorResponse(c, http.StatusNotFound, "JOB_NOT_FOUND",
					"no job with id "+c.Param("id"), requestID)
			}
			return errorResponse(c, http.StatusInternalServerError, "GET_FAILED",
				"failed to load job", requestID)
		}

		return c.JSON(http.StatusOK, job)
	}
}

func errorResponse(c echo.Context, status int, code, message, requestID string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
