package repositories

import (
	"context"
	"fmt"
	"time"

	"safehorizon/database"
	"safehorizon/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BroadcastRepository struct {
	db            *mongo.Database
	collection    *mongo.Collection
	ackCollection *mongo.Collection
}

func NewBroadcastRepository(db *mongo.Database) *BroadcastRepository {
	return &BroadcastRepository{
		db:            db,
		collection:    db.Collection("broadcasts"),
		ackCollection: db.Collection("broadcast_acks"),
	}
}

// NextBroadcastID allocates BCAST-YYYYMMDD-NNNN from the per-day
// atomic counter.
func (br *BroadcastRepository) NextBroadcastID(ctx context.Context, day time.Time) (string, error) {
	dayKey := day.UTC().Format("20060102")
	seq, err := database.NextSequence(ctx, br.db, "bcast-"+dayKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BCAST-%s-%04d", dayKey, seq), nil
}

func (br *BroadcastRepository) Insert(ctx context.Context, broadcast *models.Broadcast) error {
	id, err := database.NextSequence(ctx, br.db, "broadcasts")
	if err != nil {
		return err
	}

	broadcast.ID = id
	broadcast.SentAt = time.Now()

	_, err = br.collection.InsertOne(ctx, broadcast)
	return err
}

func (br *BroadcastRepository) GetByID(ctx context.Context, id int64) (*models.Broadcast, error) {
	var broadcast models.Broadcast
	err := br.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&broadcast)
	if err != nil {
		return nil, err
	}
	return &broadcast, nil
}

// SetDeliveryCounts records how many legs were submitted to their
// transports.
func (br *BroadcastRepository) SetDeliveryCounts(ctx context.Context, id int64, tourists, devices int) error {
	_, err := br.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"touristsNotified": tourists, "devicesNotified": devices}},
	)
	return err
}

func (br *BroadcastRepository) ListRecent(ctx context.Context, limit int64) ([]models.Broadcast, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := br.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var broadcasts []models.Broadcast
	err = cursor.All(ctx, &broadcasts)
	return broadcasts, err
}

// ListUnexpired returns broadcasts still live for tourist-side
// listings. Expired broadcasts remain in history but are filtered
// here.
func (br *BroadcastRepository) ListUnexpired(ctx context.Context, limit int64) ([]models.Broadcast, error) {
	now := time.Now()
	filter := bson.M{
		"$or": []bson.M{
			{"expiresAt": nil},
			{"expiresAt": bson.M{"$gt": now}},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := br.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var broadcasts []models.Broadcast
	err = cursor.All(ctx, &broadcasts)
	return broadcasts, err
}

// Acknowledge inserts the (broadcast, tourist) acknowledgment and
// bumps the counter only when the row is new. A repeat acknowledgment
// hits the unique index and leaves the counter untouched, so the
// counter always equals the number of ack rows.
func (br *BroadcastRepository) Acknowledge(ctx context.Context, ack *models.BroadcastAck) (bool, error) {
	ack.AcknowledgedAt = time.Now()

	_, err := br.ackCollection.InsertOne(ctx, ack)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}

	_, err = br.collection.UpdateOne(ctx,
		bson.M{"_id": ack.BroadcastID},
		bson.M{"$inc": bson.M{"acknowledgmentCount": 1}},
	)
	return true, err
}

func (br *BroadcastRepository) ListAcks(ctx context.Context, broadcastID int64) ([]models.BroadcastAck, error) {
	cursor, err := br.ackCollection.Find(ctx, bson.M{"broadcastId": broadcastID},
		options.Find().SetSort(bson.D{{Key: "acknowledgedAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var acks []models.BroadcastAck
	err = cursor.All(ctx, &acks)
	return acks, err
}
