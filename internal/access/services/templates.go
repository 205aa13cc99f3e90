package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/apperrors"
	"gad-esmeraldas/pkg/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template application outcomes per user
const (
	ApplyCreated = "created"
	ApplyUpdated = "updated"
	ApplyError   = "error"
)

const (
	templateNameMin = 3
	templateNameMax = 100
)

// TemplateParams describes a new template. A nil Permissions derives the
// matrix from DefaultAccessLevel.
type TemplateParams struct {
	Name                  string
	Description           string
	DefaultAccessLevel    models.AccessLevel
	Permissions           *models.PermissionMatrix
	ApplicableRoles       []string
	ApplicableDepartments []primitive.ObjectID
	IsSystem              bool
}

// TemplateUpdate is a partial template update. Nil fields are left unchanged.
type TemplateUpdate struct {
	Name                  *string
	Description           *string
	DefaultAccessLevel    *models.AccessLevel
	Permissions           *models.PermissionMatrix
	ApplicableRoles       []string
	ApplicableDepartments []primitive.ObjectID
	IsActive              *bool
}

// TemplateApplication is one user's outcome of ApplyTemplateToUsers
type TemplateApplication struct {
	UserID   primitive.ObjectID  `json:"userId"`
	Status   string              `json:"status"`
	AccessID *primitive.ObjectID `json:"accessId,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type ApplyTemplateResult struct {
	TemplateID    primitive.ObjectID    `json:"templateId"`
	DepartmentID  primitive.ObjectID    `json:"departmentId"`
	CorrelationID string                `json:"correlationId"`
	Results       []TemplateApplication `json:"results"`
}

func validateTemplateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < templateNameMin || n > templateNameMax {
		return "", apperrors.Validation(
			fmt.Sprintf("template name must be between %d and %d characters", templateNameMin, templateNameMax),
			map[string]string{"name": name},
		)
	}
	return name, nil
}

// CreateTemplate stores a new permission template
func (s *Service) CreateTemplate(ctx context.Context, params TemplateParams, actor primitive.ObjectID) (*models.PermissionTemplate, error) {
	name, err := validateTemplateName(params.Name)
	if err != nil {
		return nil, err
	}
	if !params.DefaultAccessLevel.IsValid() {
		return nil, apperrors.Validation("invalid access level", map[string]string{"defaultAccessLevel": string(params.DefaultAccessLevel)})
	}

	existing, err := s.store.FindTemplateByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing template: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists(fmt.Sprintf("template %q already exists", name))
	}

	matrix := models.DerivePermissions(params.DefaultAccessLevel)
	if params.Permissions != nil {
		matrix = *params.Permissions
	}

	now := s.now()
	tmpl := &models.PermissionTemplate{
		Name:                  name,
		Description:           params.Description,
		DefaultAccessLevel:    params.DefaultAccessLevel,
		PermissionTemplate:    matrix,
		ApplicableRoles:       nonNil(params.ApplicableRoles),
		ApplicableDepartments: nonNil(params.ApplicableDepartments),
		IsActive:              true,
		IsSystem:              params.IsSystem,
		CreatedBy:             actor,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.InsertTemplate(ctx, tmpl); err != nil {
		if apperrors.IsAlreadyExists(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	slog.Info("[Access] Permission template created", "template_id", tmpl.ID.Hex(), "name", name, "actor", actor.Hex())
	return tmpl, nil
}

// GetTemplate returns one template
func (s *Service) GetTemplate(ctx context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error) {
	tmpl, err := s.store.FindTemplateByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tmpl == nil {
		return nil, apperrors.NotFound("permission template", id.Hex())
	}
	return tmpl, nil
}

// ListTemplates lists templates ordered by name
func (s *Service) ListTemplates(ctx context.Context, activeOnly bool) ([]models.PermissionTemplate, error) {
	templates, err := s.store.ListTemplates(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate changes a template. Changing the level without a matrix
// re-derives the matrix, as for access records.
func (s *Service) UpdateTemplate(ctx context.Context, id primitive.ObjectID, patch TemplateUpdate) (*models.PermissionTemplate, error) {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := validateTemplateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		if name != tmpl.Name {
			other, err := s.store.FindTemplateByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to check existing template: %w", err)
			}
			if other != nil && other.ID != tmpl.ID {
				return nil, apperrors.AlreadyExists(fmt.Sprintf("template %q already exists", name))
			}
			tmpl.Name = name
		}
	}
	if patch.Description != nil {
		tmpl.Description = *patch.Description
	}

	switch {
	case patch.DefaultAccessLevel != nil && *patch.DefaultAccessLevel != tmpl.DefaultAccessLevel:
		if !patch.DefaultAccessLevel.IsValid() {
			return nil, apperrors.Validation("invalid access level", map[string]string{"defaultAccessLevel": string(*patch.DefaultAccessLevel)})
		}
		tmpl.DefaultAccessLevel = *patch.DefaultAccessLevel
		tmpl.PermissionTemplate = models.DerivePermissions(tmpl.DefaultAccessLevel)
		if patch.Permissions != nil {
			tmpl.PermissionTemplate = *patch.Permissions
		}
	case patch.Permissions != nil:
		tmpl.PermissionTemplate = *patch.Permissions
	}

	if patch.ApplicableRoles != nil {
		tmpl.ApplicableRoles = patch.ApplicableRoles
	}
	if patch.ApplicableDepartments != nil {
		tmpl.ApplicableDepartments = patch.ApplicableDepartments
	}
	if patch.IsActive != nil {
		if !*patch.IsActive && tmpl.IsSystem {
			return nil, apperrors.InvalidState("system templates cannot be deactivated")
		}
		tmpl.IsActive = *patch.IsActive
	}
	tmpl.UpdatedAt = s.now()

	if err := s.store.ReplaceTemplate(ctx, tmpl); err != nil {
		if apperrors.IsAlreadyExists(err) || apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tmpl, nil
}

// DeactivateTemplate retires a template. Records created from it are unaffected.
func (s *Service) DeactivateTemplate(ctx context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error) {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, apperrors.InvalidState("template is already inactive")
	}
	inactive := false
	return s.UpdateTemplate(ctx, id, TemplateUpdate{IsActive: &inactive})
}

// ApplyTemplateToUsers gives every user the template's level and matrix in
// the department, creating or updating their ACTIVE record. Each user is
// handled independently: one failure is reported in its result and never
// rolls back or stops the others.
func (s *Service) ApplyTemplateToUsers(ctx context.Context, templateID primitive.ObjectID, userIDs []primitive.ObjectID, departmentID, actor primitive.ObjectID) (*ApplyTemplateResult, error) {
	tmpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, apperrors.InvalidState("template is not active")
	}
	if departmentID.IsZero() {
		return nil, apperrors.Validation("department is required", map[string]string{"department": "required"})
	}
	if !tmpl.AppliesTo(departmentID) {
		return nil, apperrors.Validation("template is not applicable to this department", map[string]string{"department": departmentID.Hex()})
	}

	result := &ApplyTemplateResult{
		TemplateID:    tmpl.ID,
		DepartmentID:  departmentID,
		CorrelationID: uuid.New().String(),
		Results:       make([]TemplateApplication, 0, len(userIDs)),
	}

	applied := 0
	for _, userID := range userIDs {
		res := s.applyTemplateToUser(ctx, tmpl, userID, departmentID, actor, result.CorrelationID)
		metrics.RecordTemplateApplication(res.Status)
		if res.Status != ApplyError {
			applied++
		}
		result.Results = append(result.Results, res)
	}

	if applied > 0 {
		now := s.now()
		tmpl.UsageCount += applied
		tmpl.LastUsed = &now
		if err := s.store.ReplaceTemplate(ctx, tmpl); err != nil {
			slog.Warn("[Access] Failed to update template usage", "template_id", tmpl.ID.Hex(), "error", err)
		}
	}

	slog.Info("[Access] Permission template applied",
		"template_id", tmpl.ID.Hex(),
		"department_id", departmentID.Hex(),
		"users", len(userIDs),
		"applied", applied,
		"correlation_id", result.CorrelationID)
	return result, nil
}

func (s *Service) applyTemplateToUser(ctx context.Context, tmpl *models.PermissionTemplate, userID, departmentID, actor primitive.ObjectID, correlationID string) TemplateApplication {
	res := TemplateApplication{UserID: userID}
	reason := "Applied template: " + tmpl.Name

	var (
		rec    *models.AccessRecord
		action models.HistoryAction
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.findLiveAccess(ctx, userID, departmentID)
		if err != nil {
			return fmt.Errorf("failed to check existing access: %w", err)
		}

		if existing == nil {
			matrix := tmpl.PermissionTemplate
			templateID := tmpl.ID
			rec, err = s.createAccess(ctx, CreateAccessParams{
				User:             userID,
				Department:       departmentID,
				AccessLevel:      tmpl.DefaultAccessLevel,
				Permissions:      &matrix,
				AssignmentReason: reason,
				TemplateID:       &templateID,
			}, actor, correlationID)
			action = models.HistoryCreated
			return err
		}

		updated := existing.Clone()
		templateID := tmpl.ID
		updated.AccessLevel = tmpl.DefaultAccessLevel
		updated.Permissions = tmpl.PermissionTemplate
		updated.CrossDepartmentAccess.HasGlobalAccess = tmpl.DefaultAccessLevel.ImpliesGlobalAccess()
		updated.Assignment.TemplateID = &templateID
		s.stamp(updated, actor)

		entry := s.newHistoryEntry(updated, models.HistoryUpdated, actor, existing.Snapshot(), reason, correlationID)
		if err := s.writeTransition(ctx, updated, entry, false); err != nil {
			return err
		}
		rec = updated
		action = models.HistoryUpdated
		return nil
	})
	if err != nil {
		res.Status = ApplyError
		res.Error = err.Error()
		slog.Warn("[Access] Template application failed for user",
			"template_id", tmpl.ID.Hex(), "user_id", userID.Hex(), "error", err)
		return res
	}

	s.afterChange(ctx, rec, action, actor)
	res.AccessID = &rec.ID
	res.Status = ApplyUpdated
	if action == models.HistoryCreated {
		res.Status = ApplyCreated
	}
	return res
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
