package services

import (
	"context"
	"errors"

	"gad-esmeraldas/internal/contracts/models"
	"gad-esmeraldas/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository reads contracts for access evaluation
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		collection: mongodb.Database.Collection(models.CollectionName),
	}
}

var projection = bson.M{
	"processCode":          1,
	"title":                1,
	"contractType":         1,
	"currentPhase":         1,
	"requestingDepartment": 1,
	"budgetAmount":         1,
	"createdBy":            1,
	"createdAt":            1,
}

// GetByID returns the contract or nil if it does not exist
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	var contract models.Contract
	opts := options.FindOne().SetProjection(projection)
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&contract)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
