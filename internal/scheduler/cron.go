package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/logging"
)

// CronScheduler enqueues jobs for vendors that declare a cron schedule.
// Entries are registered once at startup from the validated vendor configs.
type CronScheduler struct {
	cron      *cron.Cron
	scheduler *Scheduler
	logger    logging.Logger
}

// NewCronScheduler builds cron entries for every scheduled vendor
func NewCronScheduler(registry *config.VendorRegistry, scheduler *Scheduler) (*CronScheduler, error) {
	cs := &CronScheduler{
		cron:      cron.New(),
		scheduler: scheduler,
		logger:    logging.GetGlobalLogger(),
	}

	for _, vendor := range registry.All() {
		if vendor.Schedule == "" {
			continue
		}

		vendorID := vendor.ID
		if _, err := cs.cron.AddFunc(vendor.Schedule, func() {
			if _, err := scheduler.Enqueue(context.Background(), vendorID); err != nil {
				cs.logger.Error("Scheduled enqueue failed", map[string]interface{}{
					"vendor_id": vendorID,
					"error":     err.Error(),
				})
			}
		}); err != nil {
			return nil, err
		}

		cs.logger.Info("Vendor schedule registered", map[string]interface{}{
			"vendor_id": vendorID,
			"schedule":  vendor.Schedule,
		})
	}

	return cs, nil
}

// Start begins firing schedules
func (cs *CronScheduler) Start() {
	cs.cron.Start()
}

// Stop halts the schedules and waits for any in-flight enqueue
func (cs *CronScheduler) Stop() {
	ctx := cs.cron.Stop()
	<-ctx.Done()
}
