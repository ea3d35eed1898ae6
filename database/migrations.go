package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the pipeline's invariants rely on.
// Unique indexes are load-bearing: alert dedup, E-FIR identity and
// chain uniqueness, broadcast acknowledgment idempotence, and the
// one-active-trip rule are all enforced here rather than in
// application code. Location collapse is not: the locations collection
// has no unique index, and LocationRepository.FindCollapsible checks it.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	type indexSpec struct {
		collection string
		models     []mongo.IndexModel
	}

	specs := []indexSpec{
		{
			collection: "tourists",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastSeen", Value: -1}}},
			},
		},
		{
			collection: "authorities",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "badgeNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "locations",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "touristId", Value: 1}, {Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "touristId", Value: 1}, {Key: "serverTime", Value: -1}}},
				{Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}}},
				{Keys: bson.D{{Key: "safetyScore", Value: 1}, {Key: "serverTime", Value: -1}}},
			},
		},
		{
			collection: "trips",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "touristId", Value: 1}, {Key: "createdAt", Value: -1}}},
				// one active trip per tourist
				{
					Keys:    bson.D{{Key: "touristId", Value: 1}},
					Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"status": "active"}),
				},
			},
		},
		{
			collection: "zones",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "updatedAt", Value: -1}}},
			},
		},
		{
			collection: "alerts",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "touristId", Value: 1}, {Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			// at-most-once alert creation per (tourist, kind, zone, bucket)
			// across all instances
			collection: "alert_dedup",
			models: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "touristId", Value: 1},
						{Key: "kind", Value: 1},
						{Key: "zoneId", Value: 1},
						{Key: "bucket", Value: 1},
					},
					Options: options.Index().SetUnique(true),
				},
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(7200)},
			},
		},
		{
			collection: "incidents",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "incidentNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "alertId", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "efirs",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "efirNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "txId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "blockHash", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "generatedAt", Value: -1}}},
			},
		},
		{
			collection: "broadcasts",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "broadcastId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "sentAt", Value: -1}}},
			},
		},
		{
			// idempotent acknowledgments
			collection: "broadcast_acks",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "broadcastId", Value: 1}, {Key: "touristId", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			collection: "devices",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "deviceToken", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "touristId", Value: 1}, {Key: "isActive", Value: 1}}},
			},
		},
	}

	for _, spec := range specs {
		if _, err := db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models); err != nil {
			return err
		}
		logrus.Debugf("indexes ensured for %s", spec.collection)
	}

	return nil
}

// NextSequence atomically increments and returns the named counter.
// Used for the integer ids of locations, alerts, trips, incidents,
// broadcasts and E-FIRs.
func NextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	res := db.Collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
