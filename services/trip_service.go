package services

import (
	"context"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"
)

type TripService struct {
	tripRepo  *repositories.TripRepository
	validator *utils.ValidationService
}

func NewTripService(tripRepo *repositories.TripRepository) *TripService {
	return &TripService{
		tripRepo:  tripRepo,
		validator: utils.NewValidationService(),
	}
}

// Start opens a new active trip; a second active trip is a conflict.
func (ts *TripService) Start(ctx context.Context, touristID string, req models.StartTripRequest) (*models.Trip, error) {
	if errs := ts.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	trip := &models.Trip{
		TouristID:   touristID,
		Destination: req.Destination,
		Itinerary:   req.Itinerary,
	}

	created, err := ts.tripRepo.Start(ctx, trip)
	if err != nil {
		return nil, utils.NewDatabaseError("start trip", err)
	}
	if !created {
		return nil, utils.NewConflictError("an active trip already exists")
	}

	return trip, nil
}

// End completes the active trip; ending without one is a conflict.
func (ts *TripService) End(ctx context.Context, touristID string) (*models.Trip, error) {
	trip, err := ts.tripRepo.End(ctx, touristID, models.TripCompleted)
	if err != nil {
		return nil, utils.NewDatabaseError("end trip", err)
	}
	if trip == nil {
		return nil, utils.NewConflictError("no active trip to end")
	}
	return trip, nil
}

// Cancel abandons the active trip.
func (ts *TripService) Cancel(ctx context.Context, touristID string) (*models.Trip, error) {
	trip, err := ts.tripRepo.End(ctx, touristID, models.TripCancelled)
	if err != nil {
		return nil, utils.NewDatabaseError("cancel trip", err)
	}
	if trip == nil {
		return nil, utils.NewConflictError("no active trip to cancel")
	}
	return trip, nil
}

func (ts *TripService) History(ctx context.Context, touristID string, limit int64) ([]models.Trip, error) {
	trips, err := ts.tripRepo.History(ctx, touristID, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("trip history", err)
	}
	return trips, nil
}
