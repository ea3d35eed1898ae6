package repositories

import (
	"context"
	"time"

	"safehorizon/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TouristRepository struct {
	collection *mongo.Collection
}

func NewTouristRepository(db *mongo.Database) *TouristRepository {
	return &TouristRepository{
		collection: db.Collection("tourists"),
	}
}

func (tr *TouristRepository) Create(ctx context.Context, tourist *models.Tourist) error {
	tourist.CreatedAt = time.Now()
	tourist.UpdatedAt = tourist.CreatedAt

	_, err := tr.collection.InsertOne(ctx, tourist)
	return err
}

func (tr *TouristRepository) GetByID(ctx context.Context, id string) (*models.Tourist, error) {
	var tourist models.Tourist
	err := tr.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tourist)
	if err != nil {
		return nil, err
	}
	return &tourist, nil
}

func (tr *TouristRepository) GetByEmail(ctx context.Context, email string) (*models.Tourist, error) {
	var tourist models.Tourist
	err := tr.collection.FindOne(ctx, bson.M{"email": email}).Decode(&tourist)
	if err != nil {
		return nil, err
	}
	return &tourist, nil
}

func (tr *TouristRepository) UpdateProfile(ctx context.Context, id string, update models.UpdateTouristRequest) error {
	set := bson.M{"updatedAt": time.Now()}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if update.Phone != "" {
		set["phone"] = update.Phone
	}
	if update.EmergencyContact != "" {
		set["emergencyContact"] = update.EmergencyContact
	}
	if update.EmergencyPhone != "" {
		set["emergencyPhone"] = update.EmergencyPhone
	}

	_, err := tr.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// UpdateLastFix records the latest accepted location sample on the
// tourist row. lastSeen only moves forward: the $max guard keeps the
// monotonicity invariant even if updates race.
func (tr *TouristRepository) UpdateLastFix(ctx context.Context, id string, lat, lon float64, seenAt time.Time, safetyScore int) error {
	_, err := tr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{
				"lastLocation": models.GeoPoint{Lat: lat, Lon: lon},
				"safetyScore":  safetyScore,
				"updatedAt":    time.Now(),
			},
			"$max": bson.M{"lastSeen": seenAt},
		},
	)
	return err
}

func (tr *TouristRepository) Deactivate(ctx context.Context, id string) error {
	_, err := tr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	return err
}

// FindActiveSeenSince returns active tourists whose lastSeen is at or
// after the cutoff. Used by the broadcast dispatcher's "all" targeting.
func (tr *TouristRepository) FindActiveSeenSince(ctx context.Context, cutoff time.Time) ([]models.Tourist, error) {
	filter := bson.M{
		"isActive": true,
		"lastSeen": bson.M{"$gte": cutoff},
	}
	return tr.find(ctx, filter)
}

// FindActiveInBox returns active tourists with a last location inside
// the given bounding box, seen since the cutoff. Callers refine the
// box result with exact distance checks.
func (tr *TouristRepository) FindActiveInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64, cutoff time.Time) ([]models.Tourist, error) {
	filter := bson.M{
		"isActive":         true,
		"lastSeen":         bson.M{"$gte": cutoff},
		"lastLocation.lat": bson.M{"$gte": minLat, "$lte": maxLat},
		"lastLocation.lon": bson.M{"$gte": minLon, "$lte": maxLon},
	}
	return tr.find(ctx, filter)
}

// CountSeenInBox counts distinct tourists (other than excludeID) seen
// since the cutoff inside the box. Feeds the crowd-density factor.
func (tr *TouristRepository) CountSeenInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64, cutoff time.Time, excludeID string) (int64, error) {
	filter := bson.M{
		"_id":              bson.M{"$ne": excludeID},
		"isActive":         true,
		"lastSeen":         bson.M{"$gte": cutoff},
		"lastLocation.lat": bson.M{"$gte": minLat, "$lte": maxLat},
		"lastLocation.lon": bson.M{"$gte": minLon, "$lte": maxLon},
	}
	return tr.collection.CountDocuments(ctx, filter)
}

func (tr *TouristRepository) find(ctx context.Context, filter bson.M) ([]models.Tourist, error) {
	cursor, err := tr.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "lastSeen", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tourists []models.Tourist
	err = cursor.All(ctx, &tourists)
	return tourists, err
}
