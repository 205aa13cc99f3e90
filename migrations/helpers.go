package migrations

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// isIndexExistsError checks if error is due to index already existing
func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(85) || se.HasErrorCode(86)) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNamespaceNotFound reports errors from dropping indexes of a missing collection
func isNamespaceNotFound(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(26)
}

func createIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	opts := options.CreateIndexes().SetMaxTime(30 * time.Second)
	_, err := coll.Indexes().CreateMany(ctx, indexes, opts)
	if err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func dropIndexes(ctx context.Context, coll *mongo.Collection, names ...string) error {
	for _, name := range names {
		if _, err := coll.Indexes().DropOne(ctx, name); err != nil && !isNamespaceNotFound(err) {
			return err
		}
	}
	return nil
}
