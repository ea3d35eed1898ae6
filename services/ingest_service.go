package services

import (
	"context"
	"math"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// Samples from the same tourist closer together than this collapse
	// into one row.
	collapseWindow = 2 * time.Second

	// Blend ratio: the tourist's rolling score keeps 30% of its prior
	// value and takes 70% of the new sample's score.
	blendPrior = 0.3
	blendNew   = 0.7
)

// IngestService is the single entry point for telemetry. Per spec it
// persists the row, scores it, updates the tourist aggregate, and runs
// the alert generator.
type IngestService struct {
	touristRepo    *repositories.TouristRepository
	locationRepo   *repositories.LocationRepository
	tripRepo       *repositories.TripRepository
	scoringService *ScoringService
	alertService   *AlertService
	validator      *utils.ValidationService
}

func NewIngestService(
	touristRepo *repositories.TouristRepository,
	locationRepo *repositories.LocationRepository,
	tripRepo *repositories.TripRepository,
	scoringService *ScoringService,
	alertService *AlertService,
) *IngestService {
	return &IngestService{
		touristRepo:    touristRepo,
		locationRepo:   locationRepo,
		tripRepo:       tripRepo,
		scoringService: scoringService,
		alertService:   alertService,
		validator:      utils.NewValidationService(),
	}
}

// BlendScore folds a new sample score into the rolling tourist score.
func BlendScore(prior int, sample float64) int {
	return int(math.Round(blendPrior*float64(prior) + blendNew*sample))
}

// Ingest processes one location sample.
func (is *IngestService) Ingest(ctx context.Context, touristID string, req models.LocationUpdateRequest) (*models.IngestResult, error) {
	if errs := is.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}
	if !utils.IsValidCoordinate(req.Lat, req.Lon) {
		return nil, utils.NewValidationError("invalid coordinates")
	}

	tourist, err := is.touristRepo.GetByID(ctx, touristID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewTouristNotFoundError()
		}
		return nil, utils.NewDatabaseError("get tourist", err)
	}
	if !tourist.IsActive {
		return nil, utils.NewForbiddenError("account is deactivated")
	}

	clientTS := time.Now()
	if req.Timestamp != nil {
		clientTS = *req.Timestamp
	}

	// Idempotence: a re-post inside the collapse window returns the
	// existing row instead of creating another.
	if existing, err := is.locationRepo.FindCollapsible(ctx, touristID, clientTS, collapseWindow); err != nil {
		return nil, utils.NewDatabaseError("check duplicate sample", err)
	} else if existing != nil {
		return is.resultFromExisting(existing), nil
	}

	// Previous scores feed the collapse rule before this sample lands.
	previousScores := is.recentScores(ctx, touristID, 2)

	location := &models.Location{
		TouristID: touristID,
		Latitude:  req.Lat,
		Longitude: req.Lon,
		Altitude:  req.Altitude,
		Speed:     req.Speed,
		Accuracy:  req.Accuracy,
		Timestamp: clientTS,
	}

	if trip, err := is.tripRepo.GetActive(ctx, touristID); err == nil && trip != nil {
		location.TripID = &trip.ID
	}

	// Scoring failure is not fatal: the row persists unscored and the
	// recompute worker fills it in later.
	result, scoreErr := is.scoringService.Score(ctx, touristID, req.Lat, req.Lon, req.Speed, clientTS)
	if scoreErr == nil {
		location.SafetyScore = &result.SafetyScore
		now := time.Now()
		location.SafetyScoreUpdatedAt = &now
	} else {
		logrus.Errorf("scoring failed for tourist %s, persisting unscored row: %v", touristID, scoreErr)
	}

	if err := is.locationRepo.Create(ctx, location); err != nil {
		return nil, utils.NewTransientError("failed to persist location", err)
	}

	if scoreErr != nil {
		if err := is.touristRepo.UpdateLastFix(ctx, touristID, req.Lat, req.Lon, location.ServerTime, tourist.SafetyScore); err != nil {
			logrus.Errorf("failed to update tourist aggregate: %v", err)
		}
		return &models.IngestResult{LocationID: location.ID}, nil
	}

	blended := BlendScore(tourist.SafetyScore, result.SafetyScore)
	if err := is.touristRepo.UpdateLastFix(ctx, touristID, req.Lat, req.Lon, location.ServerTime, blended); err != nil {
		logrus.Errorf("failed to update tourist aggregate: %v", err)
	}

	ingestResult := &models.IngestResult{
		LocationID:      location.ID,
		SafetyScore:     result.SafetyScore,
		RiskLevel:       result.RiskLevel,
		Recommendations: result.Recommendations,
	}

	alert, err := is.alertService.EvaluateScored(ctx, tourist, location, result, previousScores)
	if err != nil {
		// Alert evaluation failure does not fail the ingest; dedup
		// makes a later retry safe.
		logrus.Errorf("alert evaluation failed for tourist %s: %v", touristID, err)
	} else if alert != nil {
		ingestResult.AlertTriggered = true
		ingestResult.AlertID = &alert.ID
	}

	return ingestResult, nil
}

func (is *IngestService) resultFromExisting(location *models.Location) *models.IngestResult {
	result := &models.IngestResult{LocationID: location.ID}
	if location.SafetyScore != nil {
		result.SafetyScore = *location.SafetyScore
		result.RiskLevel = RiskLevel(*location.SafetyScore)
	}
	return result
}

func (is *IngestService) recentScores(ctx context.Context, touristID string, n int) []float64 {
	recent, err := is.locationRepo.GetRecent(ctx, touristID, int64(n))
	if err != nil {
		return nil
	}

	scores := make([]float64, 0, n)
	for i := range recent {
		if recent[i].SafetyScore != nil {
			scores = append(scores, *recent[i].SafetyScore)
		}
	}
	return scores
}

// History returns a tourist's samples, newest first.
func (is *IngestService) History(ctx context.Context, touristID string, page, pageSize int) ([]models.Location, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	locations, total, err := is.locationRepo.GetHistory(ctx, touristID, page, pageSize)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("location history", err)
	}
	return locations, total, nil
}
