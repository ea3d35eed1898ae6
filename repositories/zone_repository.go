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

type ZoneRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewZoneRepository(db *mongo.Database) *ZoneRepository {
	return &ZoneRepository{
		db:         db,
		collection: db.Collection("zones"),
	}
}

func (zr *ZoneRepository) Create(ctx context.Context, zone *models.Zone) error {
	id, err := database.NextSequence(ctx, zr.db, "zones")
	if err != nil {
		return err
	}

	zone.ID = id
	zone.CreatedAt = time.Now()
	zone.UpdatedAt = zone.CreatedAt

	_, err = zr.collection.InsertOne(ctx, zone)
	return err
}

func (zr *ZoneRepository) GetByID(ctx context.Context, id int64) (*models.Zone, error) {
	var zone models.Zone
	err := zr.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&zone)
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// ListActive returns every active zone. The geofence index snapshots
// this result on its refresh interval.
func (zr *ZoneRepository) ListActive(ctx context.Context) ([]models.Zone, error) {
	cursor, err := zr.collection.Find(ctx, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []models.Zone
	err = cursor.All(ctx, &zones)
	return zones, err
}

// SoftDelete deactivates a zone; it stays in history.
func (zr *ZoneRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := zr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
