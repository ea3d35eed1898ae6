package workers

import (
	"context"
	"time"

	"safehorizon/services"

	"github.com/sirupsen/logrus"
)

// StartZoneWorker keeps the geofence snapshot fresh on the configured
// interval. Refresh failures leave the stale snapshot serving.
func StartZoneWorker(ctx context.Context, zoneIndex *services.ZoneIndex, interval time.Duration) {
	go func() {
		refresh := func() {
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := zoneIndex.Refresh(refreshCtx); err != nil {
				logrus.Warnf("zone worker: refresh failed: %v", err)
			}
		}

		refresh()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("zone worker stopped")
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()
}
