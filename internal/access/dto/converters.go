package dto

import (
	"fmt"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseObjectID parses a hex ObjectID received in a path or body
func ParseObjectID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, fmt.Errorf("%s must be a valid ObjectID", field)
	}
	return id, nil
}

func parseObjectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	if hexes == nil {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := ParseObjectID(field, h)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseViewable(in []ViewableDepartmentRequest) ([]models.ViewableDepartment, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]models.ViewableDepartment, 0, len(in))
	for _, vd := range in {
		dept, err := ParseObjectID("viewableDepartments.department", vd.Department)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ViewableDepartment{
			Department:  dept,
			AccessLevel: models.CrossDepartmentLevel(vd.AccessLevel),
		})
	}
	return out, nil
}

// ToCreateParams converts a create request into service parameters
func (r CreateAccessRequest) ToCreateParams() (services.CreateAccessParams, error) {
	user, err := ParseObjectID("user", r.User)
	if err != nil {
		return services.CreateAccessParams{}, err
	}
	dept, err := ParseObjectID("department", r.Department)
	if err != nil {
		return services.CreateAccessParams{}, err
	}
	viewable, err := parseViewable(r.ViewableDepartments)
	if err != nil {
		return services.CreateAccessParams{}, err
	}

	params := services.CreateAccessParams{
		User:                user,
		Department:          dept,
		AccessLevel:         models.AccessLevel(r.AccessLevel),
		Permissions:         r.Permissions,
		ViewableDepartments: viewable,
		AssignmentReason:    r.AssignmentReason,
		IsPrimary:           r.IsPrimary,
		Priority:            r.Priority,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		IsTemporary:         r.IsTemporary,
		AutoExpireAfterDays: r.AutoExpireAfterDays,
	}
	if r.Restrictions != nil {
		params.Restrictions = *r.Restrictions
	}
	return params, nil
}

// ToUpdateParams converts a patch request into service parameters
func (r UpdateAccessRequest) ToUpdateParams() (services.UpdateAccessParams, error) {
	viewable, err := parseViewable(r.ViewableDepartments)
	if err != nil {
		return services.UpdateAccessParams{}, err
	}

	params := services.UpdateAccessParams{
		Permissions:         r.Permissions,
		Restrictions:        r.Restrictions,
		ViewableDepartments: viewable,
		AssignmentReason:    r.AssignmentReason,
		IsPrimary:           r.IsPrimary,
		Priority:            r.Priority,
		EndDate:             r.EndDate,
		IsTemporary:         r.IsTemporary,
		Reason:              r.Reason,
	}
	if r.AccessLevel != nil {
		level := models.AccessLevel(*r.AccessLevel)
		params.AccessLevel = &level
	}
	return params, nil
}

// ToPermissionCheck converts a check request into a service check.
// Request circumstances are stamped with at.
func (r CheckPermissionRequest) ToPermissionCheck(at time.Time) (services.PermissionCheck, error) {
	user, err := ParseObjectID("user", r.User)
	if err != nil {
		return services.PermissionCheck{}, err
	}
	dept, err := ParseObjectID("department", r.Department)
	if err != nil {
		return services.PermissionCheck{}, err
	}
	perm, ok := models.ParsePermission(r.Category, r.Permission)
	if !ok {
		// Unknown flags are evaluated and denied rather than rejected
		perm = models.Permission{Category: models.Category(r.Category), Flag: models.Flag(r.Permission)}
	}

	check := services.PermissionCheck{UserID: user, DepartmentID: dept, Permission: perm}
	if r.ContractID != "" {
		id, err := ParseObjectID("contractId", r.ContractID)
		if err != nil {
			return services.PermissionCheck{}, err
		}
		check.ContractID = &id
	}
	if r.Context != nil {
		check.Context = &models.RestrictionContext{
			ContractType: r.Context.ContractType,
			Phase:        r.Context.Phase,
			Amount:       r.Context.Amount,
			At:           at,
			IP:           r.Context.IP,
		}
	}
	return check, nil
}

// ToBatchItems converts batch entries into service items. Entries with
// malformed IDs are left out of items and reported in rejected, keyed by
// their position in the request.
func (r BatchCheckRequest) ToBatchItems() (primitive.ObjectID, []services.BatchCheckItem, map[int]BatchCheckResultResponse, error) {
	user, err := ParseObjectID("user", r.User)
	if err != nil {
		return primitive.NilObjectID, nil, nil, err
	}

	items := make([]services.BatchCheckItem, 0, len(r.Checks))
	rejected := make(map[int]BatchCheckResultResponse)
	for i, c := range r.Checks {
		perm, ok := models.ParsePermission(c.Category, c.Permission)
		if !ok {
			perm = models.Permission{Category: models.Category(c.Category), Flag: models.Flag(c.Permission)}
		}
		reject := func(err error) {
			rejected[i] = BatchCheckResultResponse{
				Department: c.Department,
				Permission: perm.String(),
				ContractID: c.ContractID,
				Error:      err.Error(),
			}
		}

		dept, err := ParseObjectID("department", c.Department)
		if err != nil {
			reject(err)
			continue
		}
		item := services.BatchCheckItem{DepartmentID: dept, Permission: perm}
		if c.ContractID != "" {
			id, err := ParseObjectID("contractId", c.ContractID)
			if err != nil {
				reject(err)
				continue
			}
			item.ContractID = &id
		}
		items = append(items, item)
	}
	return user, items, rejected, nil
}

// MergeBatchResponses puts checked results and rejected entries back in request order
func MergeBatchResponses(total int, results []services.BatchCheckResult, rejected map[int]BatchCheckResultResponse) []BatchCheckResultResponse {
	checked := ToBatchResponses(results)
	out := make([]BatchCheckResultResponse, 0, total)
	next := 0
	for i := 0; i < total; i++ {
		if resp, ok := rejected[i]; ok {
			out = append(out, resp)
			continue
		}
		if next < len(checked) {
			out = append(out, checked[next])
			next++
		}
	}
	return out
}

// ToTemplateParams converts a template request into service parameters
func (r TemplateRequest) ToTemplateParams() (services.TemplateParams, error) {
	depts, err := parseObjectIDs("applicableDepartments", r.ApplicableDepartments)
	if err != nil {
		return services.TemplateParams{}, err
	}
	return services.TemplateParams{
		Name:                  r.Name,
		Description:           r.Description,
		DefaultAccessLevel:    models.AccessLevel(r.DefaultAccessLevel),
		Permissions:           r.Permissions,
		ApplicableRoles:       r.ApplicableRoles,
		ApplicableDepartments: depts,
	}, nil
}

// ToTemplateUpdate converts a template patch into service parameters
func (r UpdateTemplateRequest) ToTemplateUpdate() (services.TemplateUpdate, error) {
	depts, err := parseObjectIDs("applicableDepartments", r.ApplicableDepartments)
	if err != nil {
		return services.TemplateUpdate{}, err
	}
	update := services.TemplateUpdate{
		Name:                  r.Name,
		Description:           r.Description,
		Permissions:           r.Permissions,
		ApplicableRoles:       r.ApplicableRoles,
		ApplicableDepartments: depts,
		IsActive:              r.IsActive,
	}
	if r.DefaultAccessLevel != nil {
		level := models.AccessLevel(*r.DefaultAccessLevel)
		update.DefaultAccessLevel = &level
	}
	return update, nil
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

func toViewableResponses(in []models.ViewableDepartment) []ViewableDepartmentResponse {
	out := make([]ViewableDepartmentResponse, 0, len(in))
	for _, vd := range in {
		out = append(out, ViewableDepartmentResponse{
			Department:  vd.Department.Hex(),
			AccessLevel: string(vd.AccessLevel),
			GrantedBy:   hexOrEmpty(vd.GrantedBy),
			GrantedAt:   vd.GrantedAt,
		})
	}
	return out
}

// ToAccessRecordResponse converts an access record to its API form
func ToAccessRecordResponse(rec *models.AccessRecord) AccessRecordResponse {
	resp := AccessRecordResponse{
		ID:                  rec.ID.Hex(),
		User:                rec.User.Hex(),
		Department:          rec.Department.Hex(),
		AccessLevel:         string(rec.AccessLevel),
		Permissions:         rec.Permissions,
		Restrictions:        rec.Restrictions,
		ViewableDepartments: toViewableResponses(rec.CrossDepartmentAccess.ViewableDepartments),
		HasGlobalAccess:     rec.CrossDepartmentAccess.HasGlobalAccess,
		AssignedBy:          hexOrEmpty(rec.Assignment.AssignedBy),
		AssignedAt:          rec.Assignment.AssignedAt,
		AssignmentReason:    rec.Assignment.AssignmentReason,
		IsPrimary:           rec.Assignment.IsPrimary,
		Priority:            rec.Assignment.Priority,
		StartDate:           rec.Validity.StartDate,
		EndDate:             rec.Validity.EndDate,
		IsTemporary:         rec.Validity.IsTemporary,
		Status:              string(rec.Status),
		StatusReason:        rec.StatusReason,
		IsActive:            rec.IsActive,
		LastAccessed:        rec.LastAccessed,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
	if rec.Assignment.TemplateID != nil {
		resp.TemplateID = rec.Assignment.TemplateID.Hex()
	}
	return resp
}

func ToAccessRecordResponses(records []models.AccessRecord) []AccessRecordResponse {
	out := make([]AccessRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, ToAccessRecordResponse(&records[i]))
	}
	return out
}

func ToHistoryResponses(entries []models.PermissionHistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:             e.ID.Hex(),
			AccessRecordID: e.AccessRecordID.Hex(),
			ActionType:     string(e.ActionType),
			ChangedBy:      hexOrEmpty(e.ChangedBy),
			ChangeDate:     e.ChangeDate,
			PreviousValues: e.PreviousValues,
			NewValues:      e.NewValues,
			Reason:         e.Reason,
			CorrelationID:  e.CorrelationID,
		})
	}
	return out
}

func ToTemplateResponse(t *models.PermissionTemplate) TemplateResponse {
	depts := make([]string, 0, len(t.ApplicableDepartments))
	for _, d := range t.ApplicableDepartments {
		depts = append(depts, d.Hex())
	}
	roles := t.ApplicableRoles
	if roles == nil {
		roles = []string{}
	}
	return TemplateResponse{
		ID:                    t.ID.Hex(),
		Name:                  t.Name,
		Description:           t.Description,
		DefaultAccessLevel:    string(t.DefaultAccessLevel),
		Permissions:           t.PermissionTemplate,
		ApplicableRoles:       roles,
		ApplicableDepartments: depts,
		IsActive:              t.IsActive,
		IsSystem:              t.IsSystem,
		UsageCount:            t.UsageCount,
		LastUsed:              t.LastUsed,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

func ToTemplateResponses(templates []models.PermissionTemplate) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, ToTemplateResponse(&templates[i]))
	}
	return out
}

func ToDecisionResponse(d *services.Decision) DecisionResponse {
	return DecisionResponse{
		Allowed:     d.Allowed,
		Reason:      d.Reason,
		AccessLevel: string(d.AccessLevel),
	}
}

func ToBatchResponses(results []services.BatchCheckResult) []BatchCheckResultResponse {
	out := make([]BatchCheckResultResponse, 0, len(results))
	for _, r := range results {
		resp := BatchCheckResultResponse{
			Department: r.DepartmentID.Hex(),
			Permission: r.Permission,
			Error:      r.Error,
		}
		if r.ContractID != nil {
			resp.ContractID = r.ContractID.Hex()
		}
		if r.Decision != nil {
			d := ToDecisionResponse(r.Decision)
			resp.Decision = &d
		}
		out = append(out, resp)
	}
	return out
}

func ToEffectiveResponses(in []services.EffectivePermissions) []EffectivePermissionsResponse {
	out := make([]EffectivePermissionsResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EffectivePermissionsResponse{
			AccessID:            e.AccessID.Hex(),
			Department:          e.Department.Hex(),
			AccessLevel:         string(e.AccessLevel),
			Permissions:         e.Permissions,
			IsPrimary:           e.IsPrimary,
			HasGlobalAccess:     e.HasGlobalAccess,
			ViewableDepartments: toViewableResponses(e.ViewableDepartments),
		})
	}
	return out
}

func ToApplicationResponses(in []services.TemplateApplication) []TemplateApplicationResponse {
	out := make([]TemplateApplicationResponse, 0, len(in))
	for _, a := range in {
		resp := TemplateApplicationResponse{
			User:   a.UserID.Hex(),
			Status: a.Status,
			Error:  a.Error,
		}
		if a.AccessID != nil {
			resp.AccessID = a.AccessID.Hex()
		}
		out = append(out, resp)
	}
	return out
}
