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
		Version:     "001_create_access_indexes",
		Description: "Create indexes for user_department_access collection",
		Up:          up001,
		Down:        down001,
	})
}

func up001(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		// At most one ACTIVE record per user and department
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "department", Value: 1},
			},
			Options: options.Index().
				SetName("user_department_active_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusActive}),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("user_status"),
		},
		{
			Keys:    bson.D{{Key: "department", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("department_status"),
		},
		// Expiry sweep
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "validity.endDate", Value: 1}},
			Options: options.Index().SetName("status_end_date"),
		},
	}
	return createIndexes(ctx, db.Collection(models.AccessCollection), indexes)
}

func down001(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db.Collection(models.AccessCollection),
		"user_department_active_unique", "user_status", "department_status", "status_end_date")
}
