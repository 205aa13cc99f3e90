package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gad-esmeraldas/internal/access/dto"
	"gad-esmeraldas/internal/access/middleware"
	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"
	"gad-esmeraldas/pkg/apperrors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var security = []map[string][]string{{"bearerAuth": {}}, {"cookieAuth": {}}}

// Routes registers the access endpoints
type Routes struct {
	service    *services.Service
	authorizer *services.AdminAuthorizer
	auth       *middleware.AuthMiddleware
	validate   *validator.Validate
	ping       func(ctx context.Context) error
	now        func() time.Time
}

// NewRoutes creates the access routes. ping reports storage health for the status endpoint.
func NewRoutes(service *services.Service, authorizer *services.AdminAuthorizer, auth *middleware.AuthMiddleware, validate *validator.Validate, ping func(ctx context.Context) error) *Routes {
	return &Routes{
		service:    service,
		authorizer: authorizer,
		auth:       auth,
		validate:   validate,
		ping:       ping,
		now:        time.Now,
	}
}

// RegisterUnifiedRoutes registers all access routes with the Huma API
func (r *Routes) RegisterUnifiedRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "access-get-status",
		Method:      http.MethodGet,
		Path:        "/access/status",
		Summary:     "Get access module status",
		Tags:        []string{"Module Status"},
	}, r.getStatus)

	// Permission checks
	huma.Register(api, huma.Operation{
		OperationID: "access-check-permission",
		Method:      http.MethodPost,
		Path:        "/access/check",
		Summary:     "Check a user permission",
		Description: "Evaluates one permission for a user's active access in a department, optionally on a contract",
		Tags:        []string{"Access / Checks"},
		Security:    security,
	}, r.checkPermission)

	huma.Register(api, huma.Operation{
		OperationID: "access-check-batch",
		Method:      http.MethodPost,
		Path:        "/access/check/batch",
		Summary:     "Check several permissions",
		Description: "Evaluates up to 100 checks for one user; a failing entry does not affect the others",
		Tags:        []string{"Access / Checks"},
		Security:    security,
	}, r.batchCheck)

	huma.Register(api, huma.Operation{
		OperationID: "access-check-action",
		Method:      http.MethodPost,
		Path:        "/access/check/action",
		Summary:     "Check a system action",
		Tags:        []string{"Access / Checks"},
		Security:    security,
	}, r.checkAction)

	// Access records
	huma.Register(api, huma.Operation{
		OperationID:   "access-create",
		Method:        http.MethodPost,
		Path:          "/access",
		Summary:       "Grant department access",
		Tags:          []string{"Access / Records"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, r.createAccess)

	huma.Register(api, huma.Operation{
		OperationID: "access-get",
		Method:      http.MethodGet,
		Path:        "/access/{id}",
		Summary:     "Get an access record",
		Tags:        []string{"Access / Records"},
		Security:    security,
	}, r.getAccess)

	huma.Register(api, huma.Operation{
		OperationID: "access-update",
		Method:      http.MethodPatch,
		Path:        "/access/{id}",
		Summary:     "Update an access record",
		Description: "Partial update; changing the access level re-derives permissions unless a matrix is given",
		Tags:        []string{"Access / Records"},
		Security:    security,
	}, r.updateAccess)

	huma.Register(api, huma.Operation{
		OperationID: "access-deactivate",
		Method:      http.MethodPost,
		Path:        "/access/{id}/deactivate",
		Summary:     "Revoke an access record",
		Tags:        []string{"Access / Lifecycle"},
		Security:    security,
	}, r.transition(r.service.DeactivateAccess))

	huma.Register(api, huma.Operation{
		OperationID: "access-reactivate",
		Method:      http.MethodPost,
		Path:        "/access/{id}/reactivate",
		Summary:     "Reactivate an access record",
		Tags:        []string{"Access / Lifecycle"},
		Security:    security,
	}, r.transition(r.service.ReactivateAccess))

	huma.Register(api, huma.Operation{
		OperationID: "access-suspend",
		Method:      http.MethodPost,
		Path:        "/access/{id}/suspend",
		Summary:     "Suspend an access record",
		Tags:        []string{"Access / Lifecycle"},
		Security:    security,
	}, r.transition(r.service.SuspendAccess))

	huma.Register(api, huma.Operation{
		OperationID: "access-history",
		Method:      http.MethodGet,
		Path:        "/access/{id}/history",
		Summary:     "Get the permission history of an access record",
		Tags:        []string{"Access / Lifecycle"},
		Security:    security,
	}, r.getHistory)

	huma.Register(api, huma.Operation{
		OperationID: "access-add-cross-department",
		Method:      http.MethodPut,
		Path:        "/access/{id}/cross-department/{department_id}",
		Summary:     "Grant visibility into another department",
		Tags:        []string{"Access / Cross-department"},
		Security:    security,
	}, r.addCrossDepartment)

	huma.Register(api, huma.Operation{
		OperationID: "access-remove-cross-department",
		Method:      http.MethodDelete,
		Path:        "/access/{id}/cross-department/{department_id}",
		Summary:     "Remove visibility into another department",
		Tags:        []string{"Access / Cross-department"},
		Security:    security,
	}, r.removeCrossDepartment)

	// Listings
	huma.Register(api, huma.Operation{
		OperationID: "access-list-user",
		Method:      http.MethodGet,
		Path:        "/access/users/{user_id}",
		Summary:     "List a user's access records",
		Tags:        []string{"Access / Listings"},
		Security:    security,
	}, r.listUserAccess)

	huma.Register(api, huma.Operation{
		OperationID: "access-user-effective",
		Method:      http.MethodGet,
		Path:        "/access/users/{user_id}/effective",
		Summary:     "Get a user's effective permissions",
		Tags:        []string{"Access / Listings"},
		Security:    security,
	}, r.effectivePermissions)

	huma.Register(api, huma.Operation{
		OperationID: "access-list-department",
		Method:      http.MethodGet,
		Path:        "/access/departments/{department_id}",
		Summary:     "List a department's access records",
		Tags:        []string{"Access / Listings"},
		Security:    security,
	}, r.listDepartmentAccess)

	huma.Register(api, huma.Operation{
		OperationID: "access-transfer-ownership",
		Method:      http.MethodPost,
		Path:        "/access/departments/{department_id}/transfer-ownership",
		Summary:     "Transfer department ownership",
		Description: "Promotes the new owner and demotes the previous owner to contributor as one operation",
		Tags:        []string{"Access / Lifecycle"},
		Security:    security,
	}, r.transferOwnership)

	// Templates
	huma.Register(api, huma.Operation{
		OperationID:   "access-templates-create",
		Method:        http.MethodPost,
		Path:          "/access/templates",
		Summary:       "Create a permission template",
		Tags:          []string{"Access / Templates"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, r.createTemplate)

	huma.Register(api, huma.Operation{
		OperationID: "access-templates-list",
		Method:      http.MethodGet,
		Path:        "/access/templates",
		Summary:     "List permission templates",
		Tags:        []string{"Access / Templates"},
		Security:    security,
	}, r.listTemplates)

	huma.Register(api, huma.Operation{
		OperationID: "access-templates-get",
		Method:      http.MethodGet,
		Path:        "/access/templates/{id}",
		Summary:     "Get a permission template",
		Tags:        []string{"Access / Templates"},
		Security:    security,
	}, r.getTemplate)

	huma.Register(api, huma.Operation{
		OperationID: "access-templates-update",
		Method:      http.MethodPut,
		Path:        "/access/templates/{id}",
		Summary:     "Update a permission template",
		Tags:        []string{"Access / Templates"},
		Security:    security,
	}, r.updateTemplate)

	huma.Register(api, huma.Operation{
		OperationID: "access-templates-deactivate",
		Method:      http.MethodDelete,
		Path:        "/access/templates/{id}",
		Summary:     "Deactivate a permission template",
		Description: "Templates are never deleted; system templates cannot be deactivated",
		Tags:        []string{"Access / Templates"},
		Security:    security,
	}, r.deactivateTemplate)

	huma.Register(api, huma.Operation{
		OperationID: "access-templates-apply",
		Method:      http.MethodPost,
		Path:        "/access/templates/{id}/apply",
		Summary:     "Apply a template to users",
		Description: "Creates or updates each user's access in the department; per-user failures are reported, not rolled back",
		Tags:        []string{"Access / Templates"},
		Security:    security,
	}, r.applyTemplate)

	// Administrative roles
	huma.Register(api, huma.Operation{
		OperationID: "access-admin-roles-list",
		Method:      http.MethodGet,
		Path:        "/access/admin-roles/{user_id}",
		Summary:     "List a user's administrative roles",
		Tags:        []string{"Access / Administration"},
		Security:    security,
	}, r.listAdminRoles)

	huma.Register(api, huma.Operation{
		OperationID: "access-admin-roles-grant",
		Method:      http.MethodPut,
		Path:        "/access/admin-roles/{user_id}/{role}",
		Summary:     "Grant an administrative role",
		Tags:        []string{"Access / Administration"},
		Security:    security,
	}, r.grantAdminRole)

	huma.Register(api, huma.Operation{
		OperationID: "access-admin-roles-revoke",
		Method:      http.MethodDelete,
		Path:        "/access/admin-roles/{user_id}/{role}",
		Summary:     "Revoke an administrative role",
		Tags:        []string{"Access / Administration"},
		Security:    security,
	}, r.revokeAdminRole)
}

// toHumaError maps service errors onto HTTP problems
func toHumaError(ctx context.Context, action string, err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
		details := make([]error, 0, len(appErr.Details))
		for field, msg := range appErr.Details {
			details = append(details, &huma.ErrorDetail{Location: field, Message: msg})
		}
		return huma.NewError(appErr.HTTPStatus, appErr.Message, details...)
	}

	slog.ErrorContext(ctx, "Access operation failed", "action", action, "error", err)
	return huma.Error500InternalServerError("Failed to " + action)
}

// validateBody runs the struct validator and reports every violation
func (r *Routes) validateBody(body interface{}) error {
	messages := dto.ValidateStruct(r.validate, body)
	if len(messages) == 0 {
		return nil
	}
	details := make([]error, 0, len(messages))
	for _, msg := range messages {
		details = append(details, &huma.ErrorDetail{Location: "body", Message: msg})
	}
	return huma.Error422UnprocessableEntity("Validation failed", details...)
}

func parsePath(field, value string) (primitive.ObjectID, error) {
	id, err := dto.ParseObjectID(field, value)
	if err != nil {
		return primitive.NilObjectID, huma.Error400BadRequest(err.Error())
	}
	return id, nil
}

func badRequest(err error) error {
	return huma.Error400BadRequest(err.Error())
}

func (r *Routes) getStatus(ctx context.Context, _ *dto.GetStatusInput) (*dto.StatusOutput, error) {
	out := &dto.StatusOutput{Body: dto.StatusResponse{Module: "access", Status: "healthy"}}
	if r.ping != nil {
		if err := r.ping(ctx); err != nil {
			out.Body.Status = "unhealthy"
			out.Body.Message = err.Error()
		}
	}
	return out, nil
}

func (r *Routes) checkPermission(ctx context.Context, input *dto.CheckPermissionInput) (*dto.DecisionOutput, error) {
	if _, err := r.auth.RequireAuth(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	check, err := input.Body.ToPermissionCheck(r.now())
	if err != nil {
		return nil, badRequest(err)
	}

	d, err := r.service.CheckUserPermission(ctx, check)
	if err != nil {
		return nil, toHumaError(ctx, "check permission", err)
	}
	return &dto.DecisionOutput{Body: dto.ToDecisionResponse(d)}, nil
}

func (r *Routes) batchCheck(ctx context.Context, input *dto.BatchCheckInput) (*dto.BatchCheckOutput, error) {
	if _, err := r.auth.RequireAuth(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	user, items, rejected, err := input.Body.ToBatchItems()
	if err != nil {
		return nil, badRequest(err)
	}

	out := &dto.BatchCheckOutput{}
	out.Body.Results = dto.MergeBatchResponses(len(input.Body.Checks), r.service.BatchCheckPermissions(ctx, user, items), rejected)
	return out, nil
}

func (r *Routes) checkAction(ctx context.Context, input *dto.SystemActionInput) (*dto.DecisionOutput, error) {
	if _, err := r.auth.RequireAuth(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	user, err := dto.ParseObjectID("user", input.Body.User)
	if err != nil {
		return nil, badRequest(err)
	}
	dept, err := dto.ParseObjectID("department", input.Body.Department)
	if err != nil {
		return nil, badRequest(err)
	}
	var contractID *primitive.ObjectID
	if input.Body.ContractID != "" {
		id, err := dto.ParseObjectID("contractId", input.Body.ContractID)
		if err != nil {
			return nil, badRequest(err)
		}
		contractID = &id
	}

	d, err := r.service.CanPerformSystemAction(ctx, user, dept, models.SystemAction(strings.ToLower(input.Body.Action)), contractID)
	if err != nil {
		return nil, toHumaError(ctx, "check action", err)
	}
	return &dto.DecisionOutput{Body: dto.ToDecisionResponse(d)}, nil
}

func (r *Routes) createAccess(ctx context.Context, input *dto.CreateAccessInput) (*dto.AccessRecordOutput, error) {
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	params, err := input.Body.ToCreateParams()
	if err != nil {
		return nil, badRequest(err)
	}
	actor, err := r.auth.RequireAccessManager(ctx, input.Authorization, input.Cookie, params.Department)
	if err != nil {
		return nil, err
	}
	if err := r.authorizeReach(ctx, input.Authorization, input.Cookie, nil, &params.AccessLevel, params.ViewableDepartments); err != nil {
		return nil, err
	}

	rec, err := r.service.CreateAccess(ctx, params, actor)
	if err != nil {
		return nil, toHumaError(ctx, "create access", err)
	}
	return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(rec)}, nil
}

// loadRecord authenticates the caller before revealing whether the record exists
func (r *Routes) loadRecord(ctx context.Context, authHeader, cookieHeader, hexID string) (*models.AccessRecord, error) {
	if _, err := r.auth.RequireAuth(ctx, authHeader, cookieHeader); err != nil {
		return nil, err
	}
	id, err := parsePath("id", hexID)
	if err != nil {
		return nil, err
	}
	rec, err := r.service.GetAccess(ctx, id)
	if err != nil {
		return nil, toHumaError(ctx, "load access", err)
	}
	return rec, nil
}

func (r *Routes) getAccess(ctx context.Context, input *dto.AccessIDInput) (*dto.AccessRecordOutput, error) {
	rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireSelfOrReader(ctx, input.Authorization, input.Cookie, rec.User); err != nil {
		if _, mErr := r.auth.RequireAccessReader(ctx, input.Authorization, input.Cookie, rec.Department); mErr != nil {
			return nil, err
		}
	}
	return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(rec)}, nil
}

func (r *Routes) updateAccess(ctx context.Context, input *dto.UpdateAccessInput) (*dto.AccessRecordOutput, error) {
	rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
	if err != nil {
		return nil, err
	}
	actor, err := r.auth.RequireAccessManager(ctx, input.Authorization, input.Cookie, rec.Department)
	if err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	patch, err := input.Body.ToUpdateParams()
	if err != nil {
		return nil, badRequest(err)
	}
	if err := r.authorizeReach(ctx, input.Authorization, input.Cookie, rec, patch.AccessLevel, patch.ViewableDepartments); err != nil {
		return nil, err
	}

	updated, err := r.service.UpdateAccess(ctx, rec.ID, patch, actor)
	if err != nil {
		return nil, toHumaError(ctx, "update access", err)
	}
	return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(updated)}, nil
}

type transitionFunc func(ctx context.Context, id, actor primitive.ObjectID, reason string) (*models.AccessRecord, error)

// transition builds the handler shared by deactivate, reactivate and suspend
func (r *Routes) transition(fn transitionFunc) func(context.Context, *dto.StatusChangeInput) (*dto.AccessRecordOutput, error) {
	return func(ctx context.Context, input *dto.StatusChangeInput) (*dto.AccessRecordOutput, error) {
		rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
		if err != nil {
			return nil, err
		}
		actor, err := r.auth.RequireAccessManager(ctx, input.Authorization, input.Cookie, rec.Department)
		if err != nil {
			return nil, err
		}
		if err := r.validateBody(input.Body); err != nil {
			return nil, err
		}

		updated, err := fn(ctx, rec.ID, actor, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(ctx, "change access status", err)
		}
		return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(updated)}, nil
	}
}

func (r *Routes) getHistory(ctx context.Context, input *dto.AccessIDInput) (*dto.HistoryOutput, error) {
	rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireHistoryReader(ctx, input.Authorization, input.Cookie, rec.Department); err != nil {
		return nil, err
	}

	entries, err := r.service.GetHistory(ctx, rec.ID)
	if err != nil {
		return nil, toHumaError(ctx, "load history", err)
	}
	out := &dto.HistoryOutput{}
	out.Body.Entries = dto.ToHistoryResponses(entries)
	return out, nil
}

// authorizeReach covers what a grant lets its holder see outside its own
// department. Every viewable department that is new or re-levelled needs
// manager rights there, and a level implying global access needs a global
// access role. current is nil for new records.
func (r *Routes) authorizeReach(ctx context.Context, authHeader, cookieHeader string, current *models.AccessRecord, level *models.AccessLevel, viewable []models.ViewableDepartment) error {
	alreadyGlobal := current != nil && current.CrossDepartmentAccess.HasGlobalAccess
	if level != nil && level.ImpliesGlobalAccess() && !alreadyGlobal {
		if _, err := r.auth.RequireGlobalAccessManager(ctx, authHeader, cookieHeader); err != nil {
			return err
		}
	}

	for _, vd := range viewable {
		if current != nil {
			if existing, ok := current.CrossDepartmentAccess.Grants(vd.Department); ok && existing.AccessLevel == vd.AccessLevel {
				continue
			}
		}
		if _, err := r.auth.RequireAccessManager(ctx, authHeader, cookieHeader, vd.Department); err != nil {
			return err
		}
	}
	return nil
}

// authorizeCrossDepartment requires management rights in both the record's
// department and the department whose data becomes visible.
func (r *Routes) authorizeCrossDepartment(ctx context.Context, authHeader, cookieHeader string, rec *models.AccessRecord, target primitive.ObjectID) (primitive.ObjectID, error) {
	actor, err := r.auth.RequireAccessManager(ctx, authHeader, cookieHeader, rec.Department)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := r.auth.RequireAccessManager(ctx, authHeader, cookieHeader, target); err != nil {
		return primitive.NilObjectID, err
	}
	return actor, nil
}

func (r *Routes) addCrossDepartment(ctx context.Context, input *dto.AddCrossDepartmentInput) (*dto.AccessRecordOutput, error) {
	rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
	if err != nil {
		return nil, err
	}
	target, err := parsePath("department_id", input.DepartmentID)
	if err != nil {
		return nil, err
	}
	actor, err := r.authorizeCrossDepartment(ctx, input.Authorization, input.Cookie, rec, target)
	if err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}

	updated, err := r.service.AddCrossDepartmentAccess(ctx, rec.ID, target, models.CrossDepartmentLevel(input.Body.AccessLevel), actor)
	if err != nil {
		return nil, toHumaError(ctx, "grant cross-department access", err)
	}
	return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(updated)}, nil
}

func (r *Routes) removeCrossDepartment(ctx context.Context, input *dto.RemoveCrossDepartmentInput) (*dto.AccessRecordOutput, error) {
	rec, err := r.loadRecord(ctx, input.Authorization, input.Cookie, input.ID)
	if err != nil {
		return nil, err
	}
	target, err := parsePath("department_id", input.DepartmentID)
	if err != nil {
		return nil, err
	}
	actor, err := r.auth.RequireAccessManager(ctx, input.Authorization, input.Cookie, rec.Department)
	if err != nil {
		return nil, err
	}

	updated, err := r.service.RemoveCrossDepartmentAccess(ctx, rec.ID, target, actor)
	if err != nil {
		return nil, toHumaError(ctx, "remove cross-department access", err)
	}
	return &dto.AccessRecordOutput{Body: dto.ToAccessRecordResponse(updated)}, nil
}

func (r *Routes) listUserAccess(ctx context.Context, input *dto.UserAccessInput) (*dto.AccessListOutput, error) {
	user, err := parsePath("user_id", input.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireSelfOrReader(ctx, input.Authorization, input.Cookie, user); err != nil {
		return nil, err
	}

	records, err := r.service.GetUserAccesses(ctx, user, input.IncludeInactive)
	if err != nil {
		return nil, toHumaError(ctx, "list user access", err)
	}
	out := &dto.AccessListOutput{}
	out.Body.Records = dto.ToAccessRecordResponses(records)
	out.Body.Total = len(records)
	return out, nil
}

func (r *Routes) effectivePermissions(ctx context.Context, input *dto.EffectivePermissionsInput) (*dto.EffectivePermissionsOutput, error) {
	user, err := parsePath("user_id", input.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireSelfOrReader(ctx, input.Authorization, input.Cookie, user); err != nil {
		return nil, err
	}

	effective, err := r.service.GetEffectivePermissions(ctx, user)
	if err != nil {
		return nil, toHumaError(ctx, "load effective permissions", err)
	}
	out := &dto.EffectivePermissionsOutput{}
	out.Body.User = user.Hex()
	out.Body.Departments = dto.ToEffectiveResponses(effective)
	return out, nil
}

func (r *Routes) listDepartmentAccess(ctx context.Context, input *dto.DepartmentAccessInput) (*dto.AccessListOutput, error) {
	dept, err := parsePath("department_id", input.DepartmentID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireAccessReader(ctx, input.Authorization, input.Cookie, dept); err != nil {
		return nil, err
	}

	records, err := r.service.GetDepartmentAccesses(ctx, dept, input.IncludeInactive)
	if err != nil {
		return nil, toHumaError(ctx, "list department access", err)
	}
	out := &dto.AccessListOutput{}
	out.Body.Records = dto.ToAccessRecordResponses(records)
	out.Body.Total = len(records)
	return out, nil
}

func (r *Routes) transferOwnership(ctx context.Context, input *dto.TransferOwnershipInput) (*dto.TransferOwnershipOutput, error) {
	dept, err := parsePath("department_id", input.DepartmentID)
	if err != nil {
		return nil, err
	}
	actor, err := r.auth.RequireAccessManager(ctx, input.Authorization, input.Cookie, dept)
	if err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	from, err := dto.ParseObjectID("fromUser", input.Body.FromUser)
	if err != nil {
		return nil, badRequest(err)
	}
	to, err := dto.ParseObjectID("toUser", input.Body.ToUser)
	if err != nil {
		return nil, badRequest(err)
	}

	result, err := r.service.TransferOwnership(ctx, dept, from, to, actor)
	if err != nil {
		return nil, toHumaError(ctx, "transfer ownership", err)
	}
	out := &dto.TransferOwnershipOutput{}
	out.Body.PreviousOwner = dto.ToAccessRecordResponse(result.PreviousOwner)
	out.Body.NewOwner = dto.ToAccessRecordResponse(result.NewOwner)
	out.Body.CorrelationID = result.CorrelationID
	return out, nil
}

func (r *Routes) createTemplate(ctx context.Context, input *dto.CreateTemplateInput) (*dto.TemplateOutput, error) {
	actor, err := r.auth.RequireTemplateManager(ctx, input.Authorization, input.Cookie)
	if err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	params, err := input.Body.ToTemplateParams()
	if err != nil {
		return nil, badRequest(err)
	}

	tmpl, err := r.service.CreateTemplate(ctx, params, actor)
	if err != nil {
		return nil, toHumaError(ctx, "create template", err)
	}
	return &dto.TemplateOutput{Body: dto.ToTemplateResponse(tmpl)}, nil
}

func (r *Routes) listTemplates(ctx context.Context, input *dto.ListTemplatesInput) (*dto.TemplateListOutput, error) {
	if _, err := r.auth.RequireAuth(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}

	templates, err := r.service.ListTemplates(ctx, input.ActiveOnly)
	if err != nil {
		return nil, toHumaError(ctx, "list templates", err)
	}
	out := &dto.TemplateListOutput{}
	out.Body.Templates = dto.ToTemplateResponses(templates)
	out.Body.Total = len(templates)
	return out, nil
}

func (r *Routes) getTemplate(ctx context.Context, input *dto.TemplateIDInput) (*dto.TemplateOutput, error) {
	if _, err := r.auth.RequireAuth(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	id, err := parsePath("id", input.ID)
	if err != nil {
		return nil, err
	}

	tmpl, err := r.service.GetTemplate(ctx, id)
	if err != nil {
		return nil, toHumaError(ctx, "load template", err)
	}
	return &dto.TemplateOutput{Body: dto.ToTemplateResponse(tmpl)}, nil
}

func (r *Routes) updateTemplate(ctx context.Context, input *dto.UpdateTemplateInput) (*dto.TemplateOutput, error) {
	if _, err := r.auth.RequireTemplateManager(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	id, err := parsePath("id", input.ID)
	if err != nil {
		return nil, err
	}
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	patch, err := input.Body.ToTemplateUpdate()
	if err != nil {
		return nil, badRequest(err)
	}

	tmpl, err := r.service.UpdateTemplate(ctx, id, patch)
	if err != nil {
		return nil, toHumaError(ctx, "update template", err)
	}
	return &dto.TemplateOutput{Body: dto.ToTemplateResponse(tmpl)}, nil
}

func (r *Routes) deactivateTemplate(ctx context.Context, input *dto.TemplateIDInput) (*dto.TemplateOutput, error) {
	if _, err := r.auth.RequireTemplateManager(ctx, input.Authorization, input.Cookie); err != nil {
		return nil, err
	}
	id, err := parsePath("id", input.ID)
	if err != nil {
		return nil, err
	}

	tmpl, err := r.service.DeactivateTemplate(ctx, id)
	if err != nil {
		return nil, toHumaError(ctx, "deactivate template", err)
	}
	return &dto.TemplateOutput{Body: dto.ToTemplateResponse(tmpl)}, nil
}

func (r *Routes) applyTemplate(ctx context.Context, input *dto.ApplyTemplateInput) (*dto.ApplyTemplateOutput, error) {
	if err := r.validateBody(input.Body); err != nil {
		return nil, err
	}
	id, err := parsePath("id", input.ID)
	if err != nil {
		return nil, err
	}
	dept, err := dto.ParseObjectID("department", input.Body.Department)
	if err != nil {
		return nil, badRequest(err)
	}
	actor, err := r.auth.RequireTemplateApplier(ctx, input.Authorization, input.Cookie, dept)
	if err != nil {
		return nil, err
	}
	tmpl, err := r.service.GetTemplate(ctx, id)
	if err != nil {
		return nil, toHumaError(ctx, "load template", err)
	}
	if tmpl.DefaultAccessLevel.ImpliesGlobalAccess() {
		if _, err := r.auth.RequireGlobalAccessManager(ctx, input.Authorization, input.Cookie); err != nil {
			return nil, err
		}
	}
	users := make([]primitive.ObjectID, 0, len(input.Body.Users))
	for _, u := range input.Body.Users {
		user, err := dto.ParseObjectID("users", u)
		if err != nil {
			return nil, badRequest(err)
		}
		users = append(users, user)
	}

	result, err := r.service.ApplyTemplateToUsers(ctx, id, users, dept, actor)
	if err != nil {
		return nil, toHumaError(ctx, "apply template", err)
	}
	out := &dto.ApplyTemplateOutput{}
	out.Body.Template = result.TemplateID.Hex()
	out.Body.CorrelationID = result.CorrelationID
	out.Body.Results = dto.ToApplicationResponses(result.Results)
	return out, nil
}

func (r *Routes) listAdminRoles(ctx context.Context, input *dto.AdminRolesInput) (*dto.AdminRolesOutput, error) {
	user, err := parsePath("user_id", input.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := r.auth.RequireSelfOrReader(ctx, input.Authorization, input.Cookie, user); err != nil {
		return nil, err
	}

	roles, err := r.authorizer.RolesFor(user)
	if err != nil {
		return nil, toHumaError(ctx, "list roles", err)
	}
	out := &dto.AdminRolesOutput{}
	out.Body.User = user.Hex()
	out.Body.Roles = make([]string, 0, len(roles))
	for _, role := range roles {
		out.Body.Roles = append(out.Body.Roles, strings.TrimPrefix(role, "role:"))
	}
	return out, nil
}

func (r *Routes) grantAdminRole(ctx context.Context, input *dto.AdminRoleInput) (*dto.AdminRolesOutput, error) {
	return r.changeAdminRole(ctx, input, r.authorizer.GrantRole)
}

func (r *Routes) revokeAdminRole(ctx context.Context, input *dto.AdminRoleInput) (*dto.AdminRolesOutput, error) {
	return r.changeAdminRole(ctx, input, r.authorizer.RevokeRole)
}

func (r *Routes) changeAdminRole(ctx context.Context, input *dto.AdminRoleInput, change func(primitive.ObjectID, string) error) (*dto.AdminRolesOutput, error) {
	actor, err := r.auth.RequireRoleManager(ctx, input.Authorization, input.Cookie)
	if err != nil {
		return nil, err
	}
	user, err := parsePath("user_id", input.UserID)
	if err != nil {
		return nil, err
	}
	if err := change(user, "role:"+input.Role); err != nil {
		return nil, toHumaError(ctx, "change role", err)
	}
	slog.InfoContext(ctx, "Administrative role changed", "actor", actor.Hex(), "user", user.Hex(), "role", input.Role)

	return r.listAdminRoles(ctx, &dto.AdminRolesInput{Authorization: input.Authorization, Cookie: input.Cookie, UserID: input.UserID})
}
