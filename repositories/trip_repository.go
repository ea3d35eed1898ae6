package repositories

import (
	"context"
	"time"

	"safehorizon/database"
	"safehorizon/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TripRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{
		db:         db,
		collection: db.Collection("trips"),
	}
}

// Start creates an active trip. The partial unique index on
// (touristId, status=active) rejects a second active trip; that
// surfaces as a duplicate-key error mapped to conflict by the service.
func (tr *TripRepository) Start(ctx context.Context, trip *models.Trip) (bool, error) {
	id, err := database.NextSequence(ctx, tr.db, "trips")
	if err != nil {
		return false, err
	}

	now := time.Now()
	trip.ID = id
	trip.Status = models.TripActive
	trip.StartDate = &now
	trip.CreatedAt = now
	trip.UpdatedAt = now

	_, err = tr.collection.InsertOne(ctx, trip)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (tr *TripRepository) GetActive(ctx context.Context, touristID string) (*models.Trip, error) {
	var trip models.Trip
	err := tr.collection.FindOne(ctx, bson.M{
		"touristId": touristID,
		"status":    models.TripActive,
	}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &trip, nil
}

// End transitions the active trip to the target status. Returns nil
// (with no error) when there is no active trip to end.
func (tr *TripRepository) End(ctx context.Context, touristID string, status models.TripStatus) (*models.Trip, error) {
	now := time.Now()

	res := tr.collection.FindOneAndUpdate(ctx,
		bson.M{"touristId": touristID, "status": models.TripActive},
		bson.M{"$set": bson.M{"status": status, "endDate": now, "updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var trip models.Trip
	if err := res.Decode(&trip); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &trip, nil
}

func (tr *TripRepository) History(ctx context.Context, touristID string, limit int64) ([]models.Trip, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := tr.collection.Find(ctx, bson.M{"touristId": touristID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	err = cursor.All(ctx, &trips)
	return trips, err
}
