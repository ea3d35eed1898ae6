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

type IncidentRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewIncidentRepository(db *mongo.Database) *IncidentRepository {
	return &IncidentRepository{
		db:         db,
		collection: db.Collection("incidents"),
	}
}

// NextNumber allocates INC-YYYYMMDD-NNNN from the per-day counter.
func (ir *IncidentRepository) NextNumber(ctx context.Context, day time.Time) (string, error) {
	dayKey := day.UTC().Format("20060102")
	seq, err := database.NextSequence(ctx, ir.db, "incident-"+dayKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INC-%s-%04d", dayKey, seq), nil
}

// Create inserts the incident. The unique index on alertId makes a
// second incident for the same alert a duplicate-key error, returned
// as created=false.
func (ir *IncidentRepository) Create(ctx context.Context, incident *models.Incident) (bool, error) {
	id, err := database.NextSequence(ctx, ir.db, "incidents")
	if err != nil {
		return false, err
	}

	now := time.Now()
	incident.ID = id
	incident.CreatedAt = now
	incident.UpdatedAt = now

	_, err = ir.collection.InsertOne(ctx, incident)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ir *IncidentRepository) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	var incident models.Incident
	err := ir.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&incident)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (ir *IncidentRepository) UpdateStatus(ctx context.Context, id int64, status models.IncidentStatus, assignedTo, notes string) error {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if assignedTo != "" {
		set["assignedTo"] = assignedTo
	}
	if notes != "" {
		set["resolutionNotes"] = notes
	}

	_, err := ir.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// SetEFIRReference links the incident to an issued E-FIR.
func (ir *IncidentRepository) SetEFIRReference(ctx context.Context, id int64, txID string) error {
	_, err := ir.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"efirReference": txID, "updatedAt": time.Now()}},
	)
	return err
}

func (ir *IncidentRepository) List(ctx context.Context, limit int64) ([]models.Incident, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := ir.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var incidents []models.Incident
	err = cursor.All(ctx, &incidents)
	return incidents, err
}
