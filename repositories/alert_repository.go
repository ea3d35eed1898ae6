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

type AlertRepository struct {
	db              *mongo.Database
	collection      *mongo.Collection
	dedupCollection *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{
		db:              db,
		collection:      db.Collection("alerts"),
		dedupCollection: db.Collection("alert_dedup"),
	}
}

func (ar *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	id, err := database.NextSequence(ctx, ar.db, "alerts")
	if err != nil {
		return err
	}

	alert.ID = id
	alert.CreatedAt = time.Now()

	_, err = ar.collection.InsertOne(ctx, alert)
	return err
}

// ReserveDedup claims the (tourist, kind, zone, bucket) slot. It
// returns false without error when another writer, possibly on a
// different instance, already holds the slot.
func (ar *AlertRepository) ReserveDedup(ctx context.Context, entry models.AlertDedupEntry) (bool, error) {
	entry.CreatedAt = time.Now()

	_, err := ar.dedupCollection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ar *AlertRepository) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	var alert models.Alert
	err := ar.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// Acknowledge stamps acknowledgedAt once; repeat calls are no-ops.
func (ar *AlertRepository) Acknowledge(ctx context.Context, id int64, authorityID string) error {
	now := time.Now()
	_, err := ar.collection.UpdateOne(ctx,
		bson.M{"_id": id, "acknowledgedAt": nil},
		bson.M{"$set": bson.M{"acknowledgedAt": now, "acknowledgedBy": authorityID}},
	)
	return err
}

// Resolve stamps resolvedAt, acknowledging first if needed so
// acknowledgedAt never exceeds resolvedAt. resolvedAt is never
// cleared once set.
func (ar *AlertRepository) Resolve(ctx context.Context, id int64, authorityID, notes string) error {
	now := time.Now()

	_, err := ar.collection.UpdateOne(ctx,
		bson.M{"_id": id, "acknowledgedAt": nil},
		bson.M{"$set": bson.M{"acknowledgedAt": now, "acknowledgedBy": authorityID}},
	)
	if err != nil {
		return err
	}

	set := bson.M{"resolvedAt": now, "resolvedBy": authorityID}
	if notes != "" {
		set["metadata.resolutionNotes"] = notes
	}
	_, err = ar.collection.UpdateOne(ctx,
		bson.M{"_id": id, "resolvedAt": nil},
		bson.M{"$set": set},
	)
	return err
}

// ListActive returns unresolved alerts, newest first.
func (ar *AlertRepository) ListActive(ctx context.Context, limit int64) ([]models.Alert, error) {
	return ar.list(ctx, bson.M{"resolvedAt": nil}, limit)
}

func (ar *AlertRepository) ListByTourist(ctx context.Context, touristID string, limit int64) ([]models.Alert, error) {
	return ar.list(ctx, bson.M{"touristId": touristID}, limit)
}

// ListCreatedAfter returns alerts created strictly after the given
// time, oldest first. Used for websocket reconnection replay.
func (ar *AlertRepository) ListCreatedAfter(ctx context.Context, after time.Time, touristID string, limit int64) ([]models.Alert, error) {
	filter := bson.M{"createdAt": bson.M{"$gt": after}}
	if touristID != "" {
		filter["touristId"] = touristID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := ar.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.Alert
	err = cursor.All(ctx, &alerts)
	return alerts, err
}

// FindSince returns alerts with coordinates created at or after the
// cutoff. Feeds the nearby-alerts scoring factor; callers do the
// exact distance filtering.
func (ar *AlertRepository) FindSince(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	filter := bson.M{
		"createdAt": bson.M{"$gte": cutoff},
		"latitude":  bson.M{"$ne": nil},
	}
	return ar.list(ctx, filter, 2000)
}

// CountInBox counts all alerts ever recorded inside a bounding box.
// Feeds the historical-risk factor.
func (ar *AlertRepository) CountInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) (int64, error) {
	filter := bson.M{
		"latitude":  bson.M{"$gte": minLat, "$lte": maxLat},
		"longitude": bson.M{"$gte": minLon, "$lte": maxLon},
	}
	return ar.collection.CountDocuments(ctx, filter)
}

// HasOpenInBucketWindow reports whether an unresolved alert of the
// given kind exists for the tourist within the lookback window,
// optionally scoped to a zone.
func (ar *AlertRepository) HasOpenInBucketWindow(ctx context.Context, touristID string, kind models.AlertKind, zoneID *int64, lookback time.Duration) (bool, error) {
	filter := bson.M{
		"touristId":  touristID,
		"kind":       kind,
		"resolvedAt": nil,
		"createdAt":  bson.M{"$gte": time.Now().Add(-lookback)},
	}
	if zoneID != nil {
		filter["metadata.zone_id"] = *zoneID
	}

	count, err := ar.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPanic returns panic/sos alerts for the public listing.
func (ar *AlertRepository) ListPanic(ctx context.Context, since time.Time, showResolved bool, limit int64) ([]models.Alert, error) {
	filter := bson.M{
		"kind":      bson.M{"$in": []models.AlertKind{models.AlertPanic, models.AlertSOS}},
		"createdAt": bson.M{"$gte": since},
	}
	if !showResolved {
		filter["resolvedAt"] = nil
	}
	return ar.list(ctx, filter, limit)
}

func (ar *AlertRepository) list(ctx context.Context, filter bson.M, limit int64) ([]models.Alert, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := ar.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.Alert
	err = cursor.All(ctx, &alerts)
	return alerts, err
}
