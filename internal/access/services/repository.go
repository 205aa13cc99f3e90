package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/apperrors"
	"gad-esmeraldas/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence boundary of the access engine. Finders return
// (nil, nil) when nothing matches. Insert and Replace of access records must
// report a violation of the one-ACTIVE-record-per-(user, department) rule as
// an apperrors AlreadyExists error.
type Store interface {
	FindActiveAccess(ctx context.Context, userID, departmentID primitive.ObjectID) (*models.AccessRecord, error)
	FindAccessByID(ctx context.Context, id primitive.ObjectID) (*models.AccessRecord, error)
	FindAccessByUser(ctx context.Context, userID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error)
	FindAccessByDepartment(ctx context.Context, departmentID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error)
	FindExpiredActive(ctx context.Context, now time.Time) ([]models.AccessRecord, error)
	InsertAccess(ctx context.Context, rec *models.AccessRecord) error
	ReplaceAccess(ctx context.Context, rec *models.AccessRecord) error
	TouchLastAccessed(ctx context.Context, id primitive.ObjectID, at time.Time) error

	InsertHistory(ctx context.Context, entry *models.PermissionHistoryEntry) error
	FindHistory(ctx context.Context, accessID primitive.ObjectID) ([]models.PermissionHistoryEntry, error)

	InsertTemplate(ctx context.Context, tmpl *models.PermissionTemplate) error
	FindTemplateByID(ctx context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error)
	FindTemplateByName(ctx context.Context, name string) (*models.PermissionTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]models.PermissionTemplate, error)
	ReplaceTemplate(ctx context.Context, tmpl *models.PermissionTemplate) error

	// WithTransaction runs fn atomically when the backend supports it
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository handles database operations for access records, templates and history
type Repository struct {
	mongodb   *database.MongoDB
	access    *mongo.Collection
	templates *mongo.Collection
	history   *mongo.Collection

	noTransactions atomic.Bool
}

// NewRepository creates a new repository instance
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:   mongodb,
		access:    mongodb.Database.Collection(models.AccessCollection),
		templates: mongodb.Database.Collection(models.TemplatesCollection),
		history:   mongodb.Database.Collection(models.HistoryCollection),
	}
}

var _ Store = (*Repository)(nil)

// Access record operations

func (r *Repository) FindActiveAccess(ctx context.Context, userID, departmentID primitive.ObjectID) (*models.AccessRecord, error) {
	filter := bson.M{
		"user":       userID,
		"department": departmentID,
		"status":     models.StatusActive,
	}
	return findOne[models.AccessRecord](ctx, r.access, filter)
}

func (r *Repository) FindAccessByID(ctx context.Context, id primitive.ObjectID) (*models.AccessRecord, error) {
	return findOne[models.AccessRecord](ctx, r.access, bson.M{"_id": id})
}

func (r *Repository) FindAccessByUser(ctx context.Context, userID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	filter := bson.M{"user": userID}
	if !includeInactive {
		filter["status"] = models.StatusActive
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "assignment.isPrimary", Value: -1},
		{Key: "assignment.priority", Value: -1},
		{Key: "createdAt", Value: 1},
	})
	return findMany[models.AccessRecord](ctx, r.access, filter, opts)
}

func (r *Repository) FindAccessByDepartment(ctx context.Context, departmentID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	filter := bson.M{"department": departmentID}
	if !includeInactive {
		filter["status"] = models.StatusActive
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return findMany[models.AccessRecord](ctx, r.access, filter, opts)
}

func (r *Repository) FindExpiredActive(ctx context.Context, now time.Time) ([]models.AccessRecord, error) {
	filter := bson.M{
		"status":           models.StatusActive,
		"validity.endDate": bson.M{"$lt": now},
	}
	return findMany[models.AccessRecord](ctx, r.access, filter)
}

func (r *Repository) InsertAccess(ctx context.Context, rec *models.AccessRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	_, err := r.access.InsertOne(ctx, rec)
	return translateWriteError(err)
}

func (r *Repository) ReplaceAccess(ctx context.Context, rec *models.AccessRecord) error {
	res, err := r.access.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("access record", rec.ID.Hex())
	}
	return nil
}

func (r *Repository) TouchLastAccessed(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.access.UpdateByID(ctx, id, bson.M{"$set": bson.M{"lastAccessed": at}})
	return err
}

// History operations

func (r *Repository) InsertHistory(ctx context.Context, entry *models.PermissionHistoryEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.history.InsertOne(ctx, entry)
	return err
}

func (r *Repository) FindHistory(ctx context.Context, accessID primitive.ObjectID) ([]models.PermissionHistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "changeDate", Value: 1}})
	return findMany[models.PermissionHistoryEntry](ctx, r.history, bson.M{"accessRecordId": accessID}, opts)
}

// Template operations

func (r *Repository) InsertTemplate(ctx context.Context, tmpl *models.PermissionTemplate) error {
	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
	}
	_, err := r.templates.InsertOne(ctx, tmpl)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.AlreadyExists(fmt.Sprintf("template %q already exists", tmpl.Name))
	}
	return err
}

func (r *Repository) FindTemplateByID(ctx context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error) {
	return findOne[models.PermissionTemplate](ctx, r.templates, bson.M{"_id": id})
}

func (r *Repository) FindTemplateByName(ctx context.Context, name string) (*models.PermissionTemplate, error) {
	return findOne[models.PermissionTemplate](ctx, r.templates, bson.M{"name": name})
}

func (r *Repository) ListTemplates(ctx context.Context, activeOnly bool) ([]models.PermissionTemplate, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findMany[models.PermissionTemplate](ctx, r.templates, filter, opts)
}

func (r *Repository) ReplaceTemplate(ctx context.Context, tmpl *models.PermissionTemplate) error {
	res, err := r.templates.ReplaceOne(ctx, bson.M{"_id": tmpl.ID}, tmpl)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.AlreadyExists(fmt.Sprintf("template %q already exists", tmpl.Name))
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("permission template", tmpl.ID.Hex())
	}
	return nil
}

// WithTransaction runs fn inside a multi-document transaction. Standalone
// servers cannot run transactions; there fn runs without one and callers
// rely on their own compensation.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.noTransactions.Load() {
		return fn(ctx)
	}

	session, err := r.mongodb.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if database.IsTransactionUnsupported(err) {
		r.noTransactions.Store(true)
		slog.Warn("[Access] MongoDB deployment does not support transactions, writing without them")
		return fn(ctx)
	}
	return err
}

// translateWriteError maps the partial unique index violation to AlreadyExists
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.AlreadyExists("user already has active access to this department")
	}
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
