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

type EFIRRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewEFIRRepository(db *mongo.Database) *EFIRRepository {
	return &EFIRRepository{
		db:         db,
		collection: db.Collection("efirs"),
	}
}

// NextNumber allocates the next EFIR-YYYYMMDD-NNNN for the given day.
// The per-day counter is atomic, so numbers are gap-free and monotonic
// even across instances.
func (er *EFIRRepository) NextNumber(ctx context.Context, day time.Time) (string, error) {
	dayKey := day.UTC().Format("20060102")
	seq, err := database.NextSequence(ctx, er.db, "efir-"+dayKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EFIR-%s-%04d", dayKey, seq), nil
}

func (er *EFIRRepository) Insert(ctx context.Context, efir *models.EFIR) error {
	id, err := database.NextSequence(ctx, er.db, "efirs")
	if err != nil {
		return err
	}
	efir.ID = id

	_, err = er.collection.InsertOne(ctx, efir)
	return err
}

// GetLatest returns the most recently issued E-FIR, or nil when the
// chain is empty.
func (er *EFIRRepository) GetLatest(ctx context.Context) (*models.EFIR, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var efir models.EFIR
	err := er.collection.FindOne(ctx, bson.M{}, opts).Decode(&efir)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &efir, nil
}

func (er *EFIRRepository) GetByTxID(ctx context.Context, txID string) (*models.EFIR, error) {
	var efir models.EFIR
	err := er.collection.FindOne(ctx, bson.M{"txId": txID}).Decode(&efir)
	if err != nil {
		return nil, err
	}
	return &efir, nil
}

// GetPredecessor returns the record issued immediately before the
// given one, or nil for the first record in the chain.
func (er *EFIRRepository) GetPredecessor(ctx context.Context, id int64) (*models.EFIR, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var efir models.EFIR
	err := er.collection.FindOne(ctx, bson.M{"_id": bson.M{"$lt": id}}, opts).Decode(&efir)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &efir, nil
}

func (er *EFIRRepository) ListByTourist(ctx context.Context, touristID string, limit int64) ([]models.EFIR, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := er.collection.Find(ctx, bson.M{"touristId": touristID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var efirs []models.EFIR
	err = cursor.All(ctx, &efirs)
	return efirs, err
}
