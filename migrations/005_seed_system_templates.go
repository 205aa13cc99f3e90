package migrations

import (
	"context"
	"time"

	"gad-esmeraldas/internal/access/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "005_seed_system_templates",
		Description: "Seed one system permission template per access level",
		Up:          up005,
		Down:        down005,
	})
}

var systemTemplates = []struct {
	name        string
	description string
	level       models.AccessLevel
}{
	{"Propietario de departamento", "Control total de los procesos del departamento", models.AccessLevelOwner},
	{"Colaborador", "Carga documentos y registra observaciones en procesos del departamento", models.AccessLevelContributor},
	{"Observador", "Consulta procesos y documentos del departamento", models.AccessLevelObserver},
	{"Repositorio institucional", "Consulta y exporta procesos de todos los departamentos", models.AccessLevelRepository},
}

func up005(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(models.TemplatesCollection)
	now := time.Now().UTC()

	for _, t := range systemTemplates {
		doc := models.PermissionTemplate{
			Name:                  t.name,
			Description:           t.description,
			DefaultAccessLevel:    t.level,
			PermissionTemplate:    models.DerivePermissions(t.level),
			ApplicableRoles:       []string{},
			ApplicableDepartments: []primitive.ObjectID{},
			IsActive:              true,
			IsSystem:              true,
			CreatedBy:             models.SystemActor,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		_, err := coll.UpdateOne(ctx,
			bson.M{"name": t.name},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func down005(ctx context.Context, db *mongo.Database) error {
	names := make([]string, 0, len(systemTemplates))
	for _, t := range systemTemplates {
		names = append(names, t.name)
	}
	_, err := db.Collection(models.TemplatesCollection).DeleteMany(ctx, bson.M{
		"name":     bson.M{"$in": names},
		"isSystem": true,
	})
	return err
}
