package migrations

import (
	"context"

	"gad-esmeraldas/internal/access/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "002_create_permission_templates_indexes",
		Description: "Create indexes for permission_templates collection",
		Up:          up002,
		Down:        down002,
	})
}

func up002(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}},
			Options: options.Index().SetName("is_active"),
		},
	}
	return createIndexes(ctx, db.Collection(models.TemplatesCollection), indexes)
}

func down002(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db.Collection(models.TemplatesCollection), "name_unique", "is_active")
}
