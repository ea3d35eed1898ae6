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

type DeviceRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{
		db:         db,
		collection: db.Collection("devices"),
	}
}

// Register upserts a device by token. Re-registering an existing token
// reactivates it and may move it to a different tourist (device
// handed to a new account). The pre-allocated id is only consumed on
// insert; a gap on the reactivation path is harmless.
func (dr *DeviceRepository) Register(ctx context.Context, touristID, token string, platform models.DevicePlatform) (*models.Device, error) {
	id, err := database.NextSequence(ctx, dr.db, "devices")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := dr.collection.FindOneAndUpdate(ctx,
		bson.M{"deviceToken": token},
		bson.M{
			"$set": bson.M{
				"touristId": touristID,
				"platform":  platform,
				"isActive":  true,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{"_id": id, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var device models.Device
	if err := res.Decode(&device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (dr *DeviceRepository) ListActiveForTourist(ctx context.Context, touristID string) ([]models.Device, error) {
	cursor, err := dr.collection.Find(ctx, bson.M{"touristId": touristID, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	err = cursor.All(ctx, &devices)
	return devices, err
}

// ListActiveForTourists fetches all active devices for a target set in
// one query. Used by the broadcast dispatcher.
func (dr *DeviceRepository) ListActiveForTourists(ctx context.Context, touristIDs []string) ([]models.Device, error) {
	if len(touristIDs) == 0 {
		return nil, nil
	}

	cursor, err := dr.collection.Find(ctx, bson.M{
		"touristId": bson.M{"$in": touristIDs},
		"isActive":  true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	err = cursor.All(ctx, &devices)
	return devices, err
}

// Deactivate marks a dead token inactive (e.g. after repeated push
// failures).
func (dr *DeviceRepository) Deactivate(ctx context.Context, token string) error {
	_, err := dr.collection.UpdateOne(ctx,
		bson.M{"deviceToken": token},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	return err
}
