package migrations

import (
	"context"

	contractModels "gad-esmeraldas/internal/contracts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "004_create_contracts_department_index",
		Description: "Index contracts by requesting department",
		Up:          up004,
		Down:        down004,
	})
}

func up004(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "requestingDepartment", Value: 1}},
			Options: options.Index().SetName("requesting_department"),
		},
	}
	return createIndexes(ctx, db.Collection(contractModels.CollectionName), indexes)
}

func down004(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db.Collection(contractModels.CollectionName), "requesting_department")
}
