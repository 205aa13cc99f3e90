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
		Version:     "003_create_permission_history_indexes",
		Description: "Create indexes for permission_history collection",
		Up:          up003,
		Down:        down003,
	})
}

func up003(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "accessRecordId", Value: 1}, {Key: "changeDate", Value: -1}},
			Options: options.Index().SetName("access_record_change_date"),
		},
		{
			Keys:    bson.D{{Key: "correlationId", Value: 1}},
			Options: options.Index().SetName("correlation_id").SetSparse(true),
		},
	}
	return createIndexes(ctx, db.Collection(models.HistoryCollection), indexes)
}

func down003(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db.Collection(models.HistoryCollection), "access_record_change_date", "correlation_id")
}
