package repositories

import (
	"context"
	"time"

	"safehorizon/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuthorityRepository struct {
	collection *mongo.Collection
}

func NewAuthorityRepository(db *mongo.Database) *AuthorityRepository {
	return &AuthorityRepository{
		collection: db.Collection("authorities"),
	}
}

func (ar *AuthorityRepository) Create(ctx context.Context, authority *models.Authority) error {
	authority.CreatedAt = time.Now()
	authority.UpdatedAt = authority.CreatedAt

	_, err := ar.collection.InsertOne(ctx, authority)
	return err
}

func (ar *AuthorityRepository) GetByID(ctx context.Context, id string) (*models.Authority, error) {
	var authority models.Authority
	err := ar.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&authority)
	if err != nil {
		return nil, err
	}
	return &authority, nil
}

func (ar *AuthorityRepository) GetByEmail(ctx context.Context, email string) (*models.Authority, error) {
	var authority models.Authority
	err := ar.collection.FindOne(ctx, bson.M{"email": email}).Decode(&authority)
	if err != nil {
		return nil, err
	}
	return &authority, nil
}

// UpdateAssignment changes the mutable fields: rank and department.
func (ar *AuthorityRepository) UpdateAssignment(ctx context.Context, id, department, rank string) error {
	set := bson.M{"updatedAt": time.Now()}
	if department != "" {
		set["department"] = department
	}
	if rank != "" {
		set["rank"] = rank
	}

	_, err := ar.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
