package routes

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gad-esmeraldas/internal/access/dto"
	"gad-esmeraldas/internal/access/middleware"
	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"
	"gad-esmeraldas/pkg/apperrors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestAPI(t *testing.T, ping func(context.Context) error) humatest.TestAPI {
	t.Helper()
	authz, err := services.NewMemoryAdminAuthorizer("")
	require.NoError(t, err)
	validate, err := dto.NewValidator()
	require.NoError(t, err)

	svc := services.NewService(nil, nil)
	auth := middleware.NewAuthMiddleware([]byte("secret"), authz, svc)
	_, api := humatest.New(t)
	NewRoutes(svc, authz, auth, validate, ping).RegisterUnifiedRoutes(api)
	return api
}

func TestStatusEndpoint(t *testing.T) {
	api := newTestAPI(t, func(context.Context) error { return nil })
	resp := api.Get("/access/status")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"healthy"`)

	api = newTestAPI(t, func(context.Context) error { return errors.New("no reachable servers") })
	resp = api.Get("/access/status")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "no reachable servers")
}

func TestCheckRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t, nil)
	resp := api.Post("/access/check", map[string]any{
		"user":       primitive.NewObjectID().Hex(),
		"department": primitive.NewObjectID().Hex(),
		"category":   "contracts",
		"permission": "canCreate",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	api := newTestAPI(t, nil)
	resp := api.Post("/access", map[string]any{
		"user":        "not-an-id",
		"department":  primitive.NewObjectID().Hex(),
		"accessLevel": "OWNER",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "user must be a valid ObjectID")
}

func TestToHumaError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperrors.Validation("bad level", map[string]string{"accessLevel": "unknown"}), http.StatusBadRequest},
		{"conflict", apperrors.AlreadyExists("user already has active access"), http.StatusConflict},
		{"not found", apperrors.NotFound("access", "abc"), http.StatusNotFound},
		{"invalid state", apperrors.InvalidState("already revoked"), http.StatusConflict},
		{"wrapped", errors.Join(errors.New("outer"), apperrors.NotFound("template", "x")), http.StatusNotFound},
		{"foreign", errors.New("socket closed"), http.StatusInternalServerError},
		{"passthrough", huma.Error403Forbidden("nope"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var se huma.StatusError
			require.True(t, errors.As(toHumaError(ctx, "test", tt.err), &se))
			assert.Equal(t, tt.status, se.GetStatus())
		})
	}
}

type authzFixture struct {
	api   humatest.TestAPI
	svc   *services.Service
	authz *services.AdminAuthorizer
	admin primitive.ObjectID
}

func newAuthzFixture(t *testing.T) *authzFixture {
	t.Helper()
	authz, err := services.NewMemoryAdminAuthorizer("")
	require.NoError(t, err)
	validate, err := dto.NewValidator()
	require.NoError(t, err)

	svc := services.NewService(&memStore{}, nil)
	auth := middleware.NewAuthMiddleware([]byte("secret"), authz, svc)
	_, api := humatest.New(t)
	NewRoutes(svc, authz, auth, validate, nil).RegisterUnifiedRoutes(api)

	admin := primitive.NewObjectID()
	require.NoError(t, authz.GrantRole(admin, services.RoleAccessAdmin))
	return &authzFixture{api: api, svc: svc, authz: authz, admin: admin}
}

func (f *authzFixture) grant(t *testing.T, user, dept primitive.ObjectID, level models.AccessLevel) *models.AccessRecord {
	t.Helper()
	rec, err := f.svc.CreateAccess(context.Background(), services.CreateAccessParams{
		User:        user,
		Department:  dept,
		AccessLevel: level,
	}, f.admin)
	require.NoError(t, err)
	return rec
}

func authHeader(t *testing.T, user primitive.ObjectID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.Hex(),
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Authorization: Bearer " + signed
}

func TestCrossDepartmentGrantNeedsBothDepartments(t *testing.T) {
	f := newAuthzFixture(t)
	owner, member := primitive.NewObjectID(), primitive.NewObjectID()
	d1, d2 := primitive.NewObjectID(), primitive.NewObjectID()
	f.grant(t, owner, d1, models.AccessLevelOwner)
	rec := f.grant(t, member, d1, models.AccessLevelContributor)
	as := authHeader(t, owner)

	putPath := "/access/" + rec.ID.Hex() + "/cross-department/" + d2.Hex()
	resp := f.api.Put(putPath, as, map[string]any{"accessLevel": "COLLABORATE"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Patch("/access/"+rec.ID.Hex(), as, map[string]any{
		"viewableDepartments": []map[string]any{{"department": d2.Hex(), "accessLevel": "COLLABORATE"}},
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	stored, err := f.svc.GetAccess(context.Background(), rec.ID)
	require.NoError(t, err)
	_, ok := stored.CrossDepartmentAccess.Grants(d2)
	assert.False(t, ok, "a refused update must not widen the record")

	f.grant(t, owner, d2, models.AccessLevelOwner)
	resp = f.api.Put(putPath, as, map[string]any{"accessLevel": "COLLABORATE"})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Patch("/access/"+rec.ID.Hex(), as, map[string]any{
		"viewableDepartments": []map[string]any{{"department": d2.Hex(), "accessLevel": "READ_ONLY"}},
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCreateAccessReach(t *testing.T) {
	f := newAuthzFixture(t)
	owner := primitive.NewObjectID()
	d1, d2 := primitive.NewObjectID(), primitive.NewObjectID()
	f.grant(t, owner, d1, models.AccessLevelOwner)
	as := authHeader(t, owner)

	resp := f.api.Post("/access", as, map[string]any{
		"user":        primitive.NewObjectID().Hex(),
		"department":  d1.Hex(),
		"accessLevel": "REPOSITORY",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Post("/access", as, map[string]any{
		"user":                primitive.NewObjectID().Hex(),
		"department":          d1.Hex(),
		"accessLevel":         "OBSERVER",
		"viewableDepartments": []map[string]any{{"department": d2.Hex(), "accessLevel": "READ_ONLY"}},
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	records, err := f.svc.GetDepartmentAccesses(context.Background(), d1, true)
	require.NoError(t, err)
	assert.Len(t, records, 1, "refused grants must not be stored")

	resp = f.api.Post("/access", as, map[string]any{
		"user":        primitive.NewObjectID().Hex(),
		"department":  d1.Hex(),
		"accessLevel": "OBSERVER",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = f.api.Post("/access", authHeader(t, f.admin), map[string]any{
		"user":        primitive.NewObjectID().Hex(),
		"department":  d1.Hex(),
		"accessLevel": "REPOSITORY",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestApplyRepositoryTemplateNeedsGlobalRole(t *testing.T) {
	f := newAuthzFixture(t)
	owner := primitive.NewObjectID()
	dept := primitive.NewObjectID()
	f.grant(t, owner, dept, models.AccessLevelOwner)
	tmpl, err := f.svc.CreateTemplate(context.Background(), services.TemplateParams{
		Name:               "Archivo central",
		DefaultAccessLevel: models.AccessLevelRepository,
	}, f.admin)
	require.NoError(t, err)

	body := map[string]any{"department": dept.Hex(), "users": []string{primitive.NewObjectID().Hex()}}
	resp := f.api.Post("/access/templates/"+tmpl.ID.Hex()+"/apply", authHeader(t, owner), body)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Post("/access/templates/"+tmpl.ID.Hex()+"/apply", authHeader(t, f.admin), body)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUsersReadTheirOwnRecords(t *testing.T) {
	f := newAuthzFixture(t)
	self, other := primitive.NewObjectID(), primitive.NewObjectID()
	dept := primitive.NewObjectID()
	own := f.grant(t, self, dept, models.AccessLevelContributor)
	foreign := f.grant(t, other, dept, models.AccessLevelObserver)
	as := authHeader(t, self)

	resp := f.api.Get("/access/users/"+self.Hex(), as)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), own.ID.Hex())

	resp = f.api.Get("/access/users/"+self.Hex()+"/effective", as)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Get("/access/"+own.ID.Hex(), as)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Get("/access/users/"+other.Hex(), as)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Get("/access/"+foreign.ID.Hex(), as)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestOwnerManagesOnlyOwnDepartment(t *testing.T) {
	f := newAuthzFixture(t)
	owner, member, outsider := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	d1, d2 := primitive.NewObjectID(), primitive.NewObjectID()
	f.grant(t, owner, d1, models.AccessLevelOwner)
	local := f.grant(t, member, d1, models.AccessLevelContributor)
	remote := f.grant(t, outsider, d2, models.AccessLevelContributor)
	as := authHeader(t, owner)

	resp := f.api.Get("/access/departments/"+d1.Hex(), as)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Get("/access/departments/"+d2.Hex(), as)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Post("/access/"+remote.ID.Hex()+"/deactivate", as, map[string]any{})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	stored, err := f.svc.GetAccess(context.Background(), remote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)

	resp = f.api.Get("/access/"+remote.ID.Hex()+"/history", as)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.api.Post("/access/"+local.ID.Hex()+"/deactivate", as, map[string]any{"reason": "left the unit"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUnknownRecordStatus(t *testing.T) {
	f := newAuthzFixture(t)
	caller, other := primitive.NewObjectID(), primitive.NewObjectID()
	rec := f.grant(t, other, primitive.NewObjectID(), models.AccessLevelObserver)
	missing := primitive.NewObjectID().Hex()

	resp := f.api.Get("/access/"+missing, authHeader(t, caller))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.api.Get("/access/" + missing)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.api.Get("/access/"+rec.ID.Hex(), authHeader(t, caller))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
