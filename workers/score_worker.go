package workers

import (
	"context"
	"time"

	"safehorizon/repositories"
	"safehorizon/services"

	"github.com/sirupsen/logrus"
)

const (
	scoreBackfillInterval = time.Minute
	scoreBackfillBatch    = 200
)

// StartScoreWorker backfills safety scores for samples that persisted
// while scoring was unavailable. It only fills null scores; rows are
// otherwise append-only.
func StartScoreWorker(ctx context.Context, locationRepo *repositories.LocationRepository, scoringService *services.ScoringService) {
	go func() {
		ticker := time.NewTicker(scoreBackfillInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("score worker stopped")
				return
			case <-ticker.C:
				backfill(ctx, locationRepo, scoringService)
			}
		}
	}()
}

func backfill(ctx context.Context, locationRepo *repositories.LocationRepository, scoringService *services.ScoringService) {
	queryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	unscored, err := locationRepo.FindUnscored(queryCtx, scoreBackfillBatch)
	if err != nil {
		logrus.Warnf("score worker: failed to list unscored rows: %v", err)
		return
	}
	if len(unscored) == 0 {
		return
	}

	filled := 0
	for i := range unscored {
		row := &unscored[i]

		scoreCtx, cancelScore := context.WithTimeout(ctx, 5*time.Second)
		result, err := scoringService.Score(scoreCtx, row.TouristID, row.Latitude, row.Longitude, row.Speed, row.Timestamp)
		cancelScore()
		if err != nil {
			logrus.Debugf("score worker: recompute failed for row %d: %v", row.ID, err)
			continue
		}

		writeCtx, cancelWrite := context.WithTimeout(ctx, 2*time.Second)
		err = locationRepo.SetSafetyScore(writeCtx, row.ID, result.SafetyScore)
		cancelWrite()
		if err != nil {
			logrus.Warnf("score worker: failed to persist score for row %d: %v", row.ID, err)
			continue
		}
		filled++
	}

	if filled > 0 {
		logrus.Infof("score worker: backfilled %d safety scores", filled)
	}
}
