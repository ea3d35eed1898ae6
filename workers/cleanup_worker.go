package workers

import (
	"context"
	"time"

	"safehorizon/repositories"

	"github.com/sirupsen/logrus"
)

const cleanupInterval = 6 * time.Hour

// StartCleanupWorker prunes location telemetry past the retention
// window. Alerts, E-FIRs and broadcasts are kept indefinitely.
func StartCleanupWorker(ctx context.Context, locationRepo *repositories.LocationRepository, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("cleanup worker stopped")
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)

				deleteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				deleted, err := locationRepo.DeleteOlderThan(deleteCtx, cutoff)
				cancel()

				if err != nil {
					logrus.Warnf("cleanup worker: prune failed: %v", err)
					continue
				}
				if deleted > 0 {
					logrus.Infof("cleanup worker: pruned %d old location rows", deleted)
				}
			}
		}
	}()
}
