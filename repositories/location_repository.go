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

type LocationRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	return &LocationRepository{
		db:         db,
		collection: db.Collection("locations"),
	}
}

// Create persists a sample with a fresh monotonic id. Rows are
// append-only after this point.
func (lr *LocationRepository) Create(ctx context.Context, location *models.Location) error {
	id, err := database.NextSequence(ctx, lr.db, "locations")
	if err != nil {
		return err
	}

	location.ID = id
	location.ServerTime = time.Now()

	_, err = lr.collection.InsertOne(ctx, location)
	return err
}

func (lr *LocationRepository) GetByID(ctx context.Context, id int64) (*models.Location, error) {
	var location models.Location
	err := lr.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&location)
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// FindCollapsible looks for a sample from the same tourist with the
// same client timestamp or one within the collapse window. Ingest
// returns the existing row instead of writing a duplicate.
func (lr *LocationRepository) FindCollapsible(ctx context.Context, touristID string, clientTS time.Time, window time.Duration) (*models.Location, error) {
	filter := bson.M{
		"touristId": touristID,
		"timestamp": bson.M{
			"$gte": clientTS.Add(-window),
			"$lte": clientTS.Add(window),
		},
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var location models.Location
	err := lr.collection.FindOne(ctx, filter, opts).Decode(&location)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// GetRecent returns the newest samples for a tourist, newest first.
func (lr *LocationRepository) GetRecent(ctx context.Context, touristID string, limit int64) ([]models.Location, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := lr.collection.Find(ctx, bson.M{"touristId": touristID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var locations []models.Location
	err = cursor.All(ctx, &locations)
	return locations, err
}

// GetRecentSpeeds returns the last n non-null speeds for a tourist,
// newest first.
func (lr *LocationRepository) GetRecentSpeeds(ctx context.Context, touristID string, limit int64) ([]float64, error) {
	filter := bson.M{
		"touristId": touristID,
		"speed":     bson.M{"$ne": nil},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"speed": 1})

	cursor, err := lr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Speed *float64 `bson:"speed"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	speeds := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.Speed != nil {
			speeds = append(speeds, *row.Speed)
		}
	}
	return speeds, nil
}

func (lr *LocationRepository) GetHistory(ctx context.Context, touristID string, page, pageSize int) ([]models.Location, int64, error) {
	filter := bson.M{"touristId": touristID}

	total, err := lr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := lr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var locations []models.Location
	err = cursor.All(ctx, &locations)
	return locations, total, err
}

// SetSafetyScore backfills a score onto a row that was persisted
// without one. It never overwrites an existing score.
func (lr *LocationRepository) SetSafetyScore(ctx context.Context, id int64, score float64) error {
	now := time.Now()
	_, err := lr.collection.UpdateOne(ctx,
		bson.M{"_id": id, "safetyScore": nil},
		bson.M{"$set": bson.M{"safetyScore": score, "safetyScoreUpdatedAt": now}},
	)
	return err
}

// FindUnscored returns rows whose scoring failed at ingest time, for
// the recompute worker.
func (lr *LocationRepository) FindUnscored(ctx context.Context, limit int64) ([]models.Location, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "serverTime", Value: 1}}).
		SetLimit(limit)

	cursor, err := lr.collection.Find(ctx, bson.M{"safetyScore": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var locations []models.Location
	err = cursor.All(ctx, &locations)
	return locations, err
}

func (lr *LocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := lr.collection.DeleteMany(ctx, bson.M{"serverTime": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
