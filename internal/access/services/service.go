package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/apperrors"
	"gad-esmeraldas/pkg/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Denial and grant reasons returned by permission checks
const (
	ReasonNoAccess         = "No access found"
	ReasonContractNotFound = "Contract not found"
	ReasonNoContractAccess = "No access to this contract"
	ReasonGranted          = "Permission granted"
	ReasonDenied           = "Permission denied"
	ReasonUnknownAction    = "Unknown action"
)

// ContractLookup loads the contract fields the evaluator needs. It returns
// (nil, nil) when the contract does not exist.
type ContractLookup interface {
	FindContract(ctx context.Context, id primitive.ObjectID) (*models.ContractRef, error)
}

// Decision is the typed outcome of a permission check. Denials are never errors.
type Decision struct {
	Allowed     bool                `json:"allowed"`
	Reason      string              `json:"reason"`
	AccessLevel models.AccessLevel  `json:"accessLevel,omitempty"`
	AccessID    *primitive.ObjectID `json:"accessId,omitempty"`
}

// Service is the access lifecycle manager and evaluator
type Service struct {
	store     Store
	contracts ContractLookup
	cache     DecisionCache
	cacheTTL  time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithDecisionCache enables caching of permission decisions for at most ttl
func WithDecisionCache(cache DecisionCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithClock replaces the wall clock used for expiry and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new service instance
func NewService(store Store, contracts ContractLookup, opts ...Option) *Service {
	s := &Service{
		store:     store,
		contracts: contracts,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccessParams describes a new grant. Nil pointers take defaults:
// Permissions derive from AccessLevel, AssignedBy is the actor, StartDate is now.
type CreateAccessParams struct {
	User                primitive.ObjectID
	Department          primitive.ObjectID
	AccessLevel         models.AccessLevel
	Permissions         *models.PermissionMatrix
	Restrictions        models.Restrictions
	ViewableDepartments []models.ViewableDepartment
	AssignedBy          *primitive.ObjectID
	AssignmentReason    string
	IsPrimary           bool
	Priority            int
	TemplateID          *primitive.ObjectID
	StartDate           *time.Time
	EndDate             *time.Time
	IsTemporary         bool
	AutoExpireAfterDays int
}

// UpdateAccessParams is a partial update. Nil fields are left unchanged.
type UpdateAccessParams struct {
	AccessLevel         *models.AccessLevel
	Permissions         *models.PermissionMatrix
	Restrictions        *models.Restrictions
	ViewableDepartments []models.ViewableDepartment
	AssignmentReason    *string
	IsPrimary           *bool
	Priority            *int
	EndDate             *time.Time
	IsTemporary         *bool
	Reason              string
}

// TransferResult holds both records touched by an ownership transfer
type TransferResult struct {
	PreviousOwner *models.AccessRecord `json:"previousOwner"`
	NewOwner      *models.AccessRecord `json:"newOwner"`
	CorrelationID string               `json:"correlationId"`
}

// CreateAccess grants a user access to a department
func (s *Service) CreateAccess(ctx context.Context, params CreateAccessParams, actor primitive.ObjectID) (*models.AccessRecord, error) {
	var rec *models.AccessRecord
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.createAccess(ctx, params, actor, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, rec, models.HistoryCreated, actor)
	return rec, nil
}

func (s *Service) createAccess(ctx context.Context, params CreateAccessParams, actor primitive.ObjectID, correlationID string) (*models.AccessRecord, error) {
	now := s.now()
	rec, err := s.buildRecord(params, actor, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.findLiveAccess(ctx, params.User, params.Department)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing access: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("user already has active access to this department")
	}

	entry := s.newHistoryEntry(rec, models.HistoryCreated, actor, nil, params.AssignmentReason, correlationID)
	if err := s.writeTransition(ctx, rec, entry, true); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) buildRecord(params CreateAccessParams, actor primitive.ObjectID, now time.Time) (*models.AccessRecord, error) {
	if params.User.IsZero() {
		return nil, apperrors.Validation("user is required", map[string]string{"user": "required"})
	}
	if params.Department.IsZero() {
		return nil, apperrors.Validation("department is required", map[string]string{"department": "required"})
	}
	if !params.AccessLevel.IsValid() {
		return nil, apperrors.Validation("invalid access level", map[string]string{"accessLevel": string(params.AccessLevel)})
	}
	if err := params.Restrictions.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error(), map[string]string{"restrictions": "invalid"})
	}
	if err := validateViewable(params.ViewableDepartments, params.Department); err != nil {
		return nil, err
	}

	validity, err := buildValidity(params, now)
	if err != nil {
		return nil, err
	}

	permissions := models.DerivePermissions(params.AccessLevel)
	if params.Permissions != nil {
		permissions = *params.Permissions
	}

	assignedBy := actor
	if params.AssignedBy != nil {
		assignedBy = *params.AssignedBy
	}

	viewable := s.stampViewable(params.ViewableDepartments, actor)

	return &models.AccessRecord{
		User:         params.User,
		Department:   params.Department,
		AccessLevel:  params.AccessLevel,
		Permissions:  permissions,
		Restrictions: params.Restrictions,
		CrossDepartmentAccess: models.CrossDepartmentAccess{
			ViewableDepartments: viewable,
			HasGlobalAccess:     params.AccessLevel.ImpliesGlobalAccess(),
		},
		Assignment: models.Assignment{
			AssignedBy:       assignedBy,
			AssignedAt:       now,
			AssignmentReason: params.AssignmentReason,
			IsPrimary:        params.IsPrimary,
			Priority:         params.Priority,
			TemplateID:       params.TemplateID,
		},
		Validity:  validity,
		Status:    models.StatusActive,
		IsActive:  true,
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func buildValidity(params CreateAccessParams, now time.Time) (models.Validity, error) {
	v := models.Validity{
		StartDate:           now,
		EndDate:             params.EndDate,
		IsTemporary:         params.IsTemporary,
		AutoExpireAfterDays: params.AutoExpireAfterDays,
	}
	if params.StartDate != nil {
		v.StartDate = *params.StartDate
	}
	if v.AutoExpireAfterDays < 0 {
		return v, apperrors.Validation("autoExpireAfterDays must not be negative", map[string]string{"autoExpireAfterDays": "min=0"})
	}
	if v.EndDate == nil && v.IsTemporary && v.AutoExpireAfterDays > 0 {
		end := v.StartDate.AddDate(0, 0, v.AutoExpireAfterDays)
		v.EndDate = &end
	}
	if v.EndDate != nil && v.EndDate.Before(v.StartDate) {
		return v, apperrors.Validation("endDate must not be before startDate", map[string]string{"endDate": "before startDate"})
	}
	return v, nil
}

func validateViewable(viewable []models.ViewableDepartment, own primitive.ObjectID) error {
	for _, vd := range viewable {
		if vd.Department.IsZero() {
			return apperrors.Validation("cross-department grant requires a department", nil)
		}
		if vd.Department == own {
			return apperrors.Validation("cross-department grant cannot target the record's own department", nil)
		}
		if !vd.AccessLevel.IsValid() {
			return apperrors.Validation("invalid cross-department access level", map[string]string{"accessLevel": string(vd.AccessLevel)})
		}
	}
	return nil
}

// UpdateAccess applies a partial update. A level change re-derives the
// permission matrix and discards any matrix in the patch; otherwise a
// supplied matrix replaces the current one as-is.
func (s *Service) UpdateAccess(ctx context.Context, id primitive.ObjectID, patch UpdateAccessParams, actor primitive.ObjectID) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := current.Clone()
	before := current.Snapshot()

	switch {
	case patch.AccessLevel != nil && *patch.AccessLevel != rec.AccessLevel:
		if !patch.AccessLevel.IsValid() {
			return nil, apperrors.Validation("invalid access level", map[string]string{"accessLevel": string(*patch.AccessLevel)})
		}
		rec.AccessLevel = *patch.AccessLevel
		rec.Permissions = models.DerivePermissions(rec.AccessLevel)
		rec.CrossDepartmentAccess.HasGlobalAccess = rec.AccessLevel.ImpliesGlobalAccess()
	case patch.Permissions != nil:
		rec.Permissions = *patch.Permissions
	}

	if patch.Restrictions != nil {
		if err := patch.Restrictions.Validate(); err != nil {
			return nil, apperrors.Validation(err.Error(), map[string]string{"restrictions": "invalid"})
		}
		rec.Restrictions = *patch.Restrictions
	}
	if patch.ViewableDepartments != nil {
		if err := validateViewable(patch.ViewableDepartments, rec.Department); err != nil {
			return nil, err
		}
		rec.CrossDepartmentAccess.ViewableDepartments = s.stampViewable(patch.ViewableDepartments, actor)
	}
	if patch.AssignmentReason != nil {
		rec.Assignment.AssignmentReason = *patch.AssignmentReason
	}
	if patch.IsPrimary != nil {
		rec.Assignment.IsPrimary = *patch.IsPrimary
	}
	if patch.Priority != nil {
		rec.Assignment.Priority = *patch.Priority
	}
	if patch.IsTemporary != nil {
		rec.Validity.IsTemporary = *patch.IsTemporary
	}
	if patch.EndDate != nil {
		if patch.EndDate.Before(rec.Validity.StartDate) {
			return nil, apperrors.Validation("endDate must not be before startDate", map[string]string{"endDate": "before startDate"})
		}
		end := *patch.EndDate
		rec.Validity.EndDate = &end
	}

	if err := s.commit(ctx, rec, models.HistoryUpdated, actor, before, patch.Reason); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) stampViewable(viewable []models.ViewableDepartment, actor primitive.ObjectID) []models.ViewableDepartment {
	now := s.now()
	out := make([]models.ViewableDepartment, len(viewable))
	for i, vd := range viewable {
		if vd.GrantedBy.IsZero() {
			vd.GrantedBy = actor
		}
		if vd.GrantedAt.IsZero() {
			vd.GrantedAt = now
		}
		out[i] = vd
	}
	return out
}

// DeactivateAccess revokes a grant. Revoking an inactive record is an error.
func (s *Service) DeactivateAccess(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID, reason string) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return nil, apperrors.InvalidState("access is already inactive")
	}

	rec := current.Clone()
	rec.Status = models.StatusRevoked
	rec.IsActive = false
	rec.StatusReason = reason

	if err := s.commit(ctx, rec, models.HistoryRevoked, actor, current.Snapshot(), reason); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReactivateAccess returns a revoked, expired or suspended record to ACTIVE.
// Suspended records are recorded as ACTIVATED, inactive ones as RESTORED.
func (s *Service) ReactivateAccess(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID, reason string) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}

	action := models.HistoryRestored
	switch {
	case current.IsActive && current.Status == models.StatusActive:
		return nil, apperrors.InvalidState("access is already active")
	case current.IsActive && current.Status == models.StatusSuspended:
		action = models.HistoryActivated
	case current.IsActive:
		return nil, apperrors.InvalidState(fmt.Sprintf("access in status %s cannot be reactivated", current.Status))
	}
	if IsExpired(current, s.now()) {
		return nil, apperrors.InvalidState("access validity has ended; extend endDate before reactivating")
	}

	existing, err := s.findLiveAccess(ctx, current.User, current.Department)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing access: %w", err)
	}
	if existing != nil && existing.ID != current.ID {
		return nil, apperrors.AlreadyExists("user already has active access to this department")
	}

	rec := current.Clone()
	rec.Status = models.StatusActive
	rec.IsActive = true
	rec.StatusReason = reason

	if err := s.commit(ctx, rec, action, actor, current.Snapshot(), reason); err != nil {
		return nil, err
	}
	return rec, nil
}

// SuspendAccess temporarily withdraws an ACTIVE grant
func (s *Service) SuspendAccess(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID, reason string) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusActive || !current.IsActive {
		return nil, apperrors.InvalidState(fmt.Sprintf("access in status %s cannot be suspended", current.Status))
	}

	rec := current.Clone()
	rec.Status = models.StatusSuspended
	rec.StatusReason = reason

	if err := s.commit(ctx, rec, models.HistorySuspended, actor, current.Snapshot(), reason); err != nil {
		return nil, err
	}
	return rec, nil
}

// TransferOwnership moves OWNER from one user to another within a department.
// The previous owner is demoted to CONTRIBUTOR. All writes share one
// transaction; without transaction support a failed demotion is compensated.
func (s *Service) TransferOwnership(ctx context.Context, departmentID, fromUserID, toUserID, actor primitive.ObjectID) (*TransferResult, error) {
	if fromUserID == toUserID {
		return nil, apperrors.Validation("cannot transfer ownership to the same user", nil)
	}
	if toUserID.IsZero() {
		return nil, apperrors.Validation("target user is required", map[string]string{"toUser": "required"})
	}

	from, err := s.findLiveAccess(ctx, fromUserID, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current owner: %w", err)
	}
	if from == nil || from.AccessLevel != models.AccessLevelOwner {
		return nil, apperrors.InvalidState("user is not an owner of this department")
	}

	correlationID := uuid.New().String()
	reason := fmt.Sprintf("Ownership transferred from %s to %s", fromUserID.Hex(), toUserID.Hex())
	result := &TransferResult{CorrelationID: correlationID}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		newOwner, undo, err := s.promoteOwner(ctx, departmentID, toUserID, actor, reason, correlationID)
		if err != nil {
			return err
		}

		demoted := from.Clone()
		demoted.AccessLevel = models.AccessLevelContributor
		demoted.Permissions = models.DerivePermissions(models.AccessLevelContributor)
		demoted.CrossDepartmentAccess.HasGlobalAccess = false
		demoted.Assignment.IsPrimary = false
		s.stamp(demoted, actor)

		entry := s.newHistoryEntry(demoted, models.HistoryUpdated, actor, from.Snapshot(), reason, correlationID)
		if err := s.writeTransition(ctx, demoted, entry, false); err != nil {
			if undoErr := undo(ctx); undoErr != nil {
				slog.Error("[Access] Failed to compensate ownership transfer",
					"department_id", departmentID.Hex(), "correlation_id", correlationID, "error", undoErr)
			}
			return fmt.Errorf("failed to demote previous owner: %w", err)
		}

		result.PreviousOwner = demoted
		result.NewOwner = newOwner
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, result.NewOwner, models.HistoryUpdated, actor)
	s.afterChange(ctx, result.PreviousOwner, models.HistoryUpdated, actor)
	slog.Info("[Access] Ownership transferred",
		"department_id", departmentID.Hex(),
		"from_user", fromUserID.Hex(),
		"to_user", toUserID.Hex(),
		"correlation_id", correlationID)
	return result, nil
}

// promoteOwner upgrades or creates the new owner's record and returns a
// function that reverts that write.
func (s *Service) promoteOwner(ctx context.Context, departmentID, userID, actor primitive.ObjectID, reason, correlationID string) (*models.AccessRecord, func(context.Context) error, error) {
	existing, err := s.findLiveAccess(ctx, userID, departmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load target user's access: %w", err)
	}

	if existing == nil {
		created, err := s.createAccess(ctx, CreateAccessParams{
			User:             userID,
			Department:       departmentID,
			AccessLevel:      models.AccessLevelOwner,
			AssignmentReason: reason,
			IsPrimary:        true,
		}, actor, correlationID)
		if err != nil {
			return nil, nil, err
		}

		undo := func(ctx context.Context) error {
			reverted := created.Clone()
			reverted.Status = models.StatusRevoked
			reverted.IsActive = false
			reverted.StatusReason = "Ownership transfer rolled back"
			s.stamp(reverted, actor)
			entry := s.newHistoryEntry(reverted, models.HistoryRevoked, actor, created.Snapshot(), reverted.StatusReason, correlationID)
			return s.writeTransition(ctx, reverted, entry, false)
		}
		return created, undo, nil
	}

	upgraded := existing.Clone()
	upgraded.AccessLevel = models.AccessLevelOwner
	upgraded.Permissions = models.DerivePermissions(models.AccessLevelOwner)
	upgraded.CrossDepartmentAccess.HasGlobalAccess = false
	s.stamp(upgraded, actor)

	entry := s.newHistoryEntry(upgraded, models.HistoryUpdated, actor, existing.Snapshot(), reason, correlationID)
	if err := s.writeTransition(ctx, upgraded, entry, false); err != nil {
		return nil, nil, err
	}

	undo := func(ctx context.Context) error {
		restored := existing.Clone()
		s.stamp(restored, actor)
		entry := s.newHistoryEntry(restored, models.HistoryUpdated, actor, upgraded.Snapshot(), "Ownership transfer rolled back", correlationID)
		return s.writeTransition(ctx, restored, entry, false)
	}
	return upgraded, undo, nil
}

// AddCrossDepartmentAccess grants (or re-levels) visibility into another department
func (s *Service) AddCrossDepartmentAccess(ctx context.Context, id, targetDepartment primitive.ObjectID, level models.CrossDepartmentLevel, actor primitive.ObjectID) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}
	grant := models.ViewableDepartment{
		Department:  targetDepartment,
		AccessLevel: level,
		GrantedBy:   actor,
		GrantedAt:   s.now(),
	}
	if err := validateViewable([]models.ViewableDepartment{grant}, current.Department); err != nil {
		return nil, err
	}

	rec := current.Clone()
	replaced := false
	for i, vd := range rec.CrossDepartmentAccess.ViewableDepartments {
		if vd.Department == targetDepartment {
			rec.CrossDepartmentAccess.ViewableDepartments[i] = grant
			replaced = true
			break
		}
	}
	if !replaced {
		rec.CrossDepartmentAccess.ViewableDepartments = append(rec.CrossDepartmentAccess.ViewableDepartments, grant)
	}

	reason := fmt.Sprintf("Cross-department %s access to %s", level, targetDepartment.Hex())
	if err := s.commit(ctx, rec, models.HistoryUpdated, actor, current.Snapshot(), reason); err != nil {
		return nil, err
	}
	return rec, nil
}

// RemoveCrossDepartmentAccess withdraws visibility into another department
func (s *Service) RemoveCrossDepartmentAccess(ctx context.Context, id, targetDepartment, actor primitive.ObjectID) (*models.AccessRecord, error) {
	current, err := s.loadAccess(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := current.CrossDepartmentAccess.Grants(targetDepartment); !ok {
		return nil, apperrors.NotFound("cross-department grant", targetDepartment.Hex())
	}

	rec := current.Clone()
	kept := rec.CrossDepartmentAccess.ViewableDepartments[:0]
	for _, vd := range rec.CrossDepartmentAccess.ViewableDepartments {
		if vd.Department != targetDepartment {
			kept = append(kept, vd)
		}
	}
	rec.CrossDepartmentAccess.ViewableDepartments = kept

	reason := fmt.Sprintf("Cross-department access to %s removed", targetDepartment.Hex())
	if err := s.commit(ctx, rec, models.HistoryUpdated, actor, current.Snapshot(), reason); err != nil {
		return nil, err
	}
	return rec, nil
}

// ExpireAccesses moves every ACTIVE record whose endDate has passed to
// EXPIRED. Failures on individual records do not stop the sweep.
func (s *Service) ExpireAccesses(ctx context.Context) (int, error) {
	now := s.now()
	records, err := s.store.FindExpiredActive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired access records: %w", err)
	}

	var errs []error
	expired := 0
	for i := range records {
		current := &records[i]
		rec := expiredCopy(current)

		err := s.commit(ctx, rec, models.HistoryExpired, models.SystemActor, current.Snapshot(), rec.StatusReason)
		if err != nil {
			slog.Error("[Access] Failed to expire access record", "access_id", current.ID.Hex(), "error", err)
			errs = append(errs, err)
			continue
		}
		expired++
	}

	metrics.RecordExpired(expired)
	return expired, errors.Join(errs...)
}

func expiredCopy(current *models.AccessRecord) *models.AccessRecord {
	rec := current.Clone()
	rec.Status = models.StatusExpired
	rec.IsActive = false
	rec.StatusReason = "Validity period ended"
	return rec
}

// findLiveAccess returns the user's ACTIVE record in the department. A record
// the sweep has not reached yet but whose validity already ended is expired
// in place and not returned.
func (s *Service) findLiveAccess(ctx context.Context, userID, departmentID primitive.ObjectID) (*models.AccessRecord, error) {
	current, err := s.store.FindActiveAccess(ctx, userID, departmentID)
	if err != nil || current == nil || !IsExpired(current, s.now()) {
		return current, err
	}

	rec := expiredCopy(current)
	s.stamp(rec, models.SystemActor)
	entry := s.newHistoryEntry(rec, models.HistoryExpired, models.SystemActor, current.Snapshot(), rec.StatusReason, "")
	if err := s.writeTransition(ctx, rec, entry, false); err != nil {
		return nil, fmt.Errorf("failed to expire stale access record: %w", err)
	}
	s.afterChange(ctx, rec, models.HistoryExpired, models.SystemActor)
	return nil, nil
}

// GetAccess returns one access record
func (s *Service) GetAccess(ctx context.Context, id primitive.ObjectID) (*models.AccessRecord, error) {
	return s.loadAccess(ctx, id)
}

// GetUserAccesses lists a user's records, primary and higher priority first
func (s *Service) GetUserAccesses(ctx context.Context, userID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	records, err := s.store.FindAccessByUser(ctx, userID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list user access: %w", err)
	}
	return records, nil
}

// GetDepartmentAccesses lists the records granted in a department
func (s *Service) GetDepartmentAccesses(ctx context.Context, departmentID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	records, err := s.store.FindAccessByDepartment(ctx, departmentID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list department access: %w", err)
	}
	return records, nil
}

// GetHistory returns the transitions of one record, oldest first
func (s *Service) GetHistory(ctx context.Context, id primitive.ObjectID) ([]models.PermissionHistoryEntry, error) {
	if _, err := s.loadAccess(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.store.FindHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// EffectivePermissions is one department's contribution to a user's access
type EffectivePermissions struct {
	AccessID            primitive.ObjectID          `json:"accessId"`
	Department          primitive.ObjectID          `json:"department"`
	AccessLevel         models.AccessLevel          `json:"accessLevel"`
	Permissions         models.PermissionMatrix     `json:"permissions"`
	IsPrimary           bool                        `json:"isPrimary"`
	HasGlobalAccess     bool                        `json:"hasGlobalAccess"`
	ViewableDepartments []models.ViewableDepartment `json:"viewableDepartments"`
}

// GetEffectivePermissions summarizes every grant currently in effect for a user
func (s *Service) GetEffectivePermissions(ctx context.Context, userID primitive.ObjectID) ([]EffectivePermissions, error) {
	records, err := s.store.FindAccessByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list user access: %w", err)
	}

	now := s.now()
	out := make([]EffectivePermissions, 0, len(records))
	for i := range records {
		rec := &records[i]
		if !isInEffect(rec, now) {
			continue
		}
		out = append(out, EffectivePermissions{
			AccessID:            rec.ID,
			Department:          rec.Department,
			AccessLevel:         rec.AccessLevel,
			Permissions:         rec.Permissions,
			IsPrimary:           rec.Assignment.IsPrimary,
			HasGlobalAccess:     rec.CrossDepartmentAccess.HasGlobalAccess,
			ViewableDepartments: rec.CrossDepartmentAccess.ViewableDepartments,
		})
	}
	return out, nil
}

func (s *Service) loadAccess(ctx context.Context, id primitive.ObjectID) (*models.AccessRecord, error) {
	rec, err := s.store.FindAccessByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load access record: %w", err)
	}
	if rec == nil {
		return nil, apperrors.NotFound("access record", id.Hex())
	}
	return rec, nil
}

// commit persists one transition of rec together with its history entry
func (s *Service) commit(ctx context.Context, rec *models.AccessRecord, action models.HistoryAction, actor primitive.ObjectID, before *models.AccessSnapshot, reason string) error {
	s.stamp(rec, actor)
	entry := s.newHistoryEntry(rec, action, actor, before, reason, "")

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		return s.writeTransition(ctx, rec, entry, false)
	})
	if err != nil {
		return err
	}

	s.afterChange(ctx, rec, action, actor)
	return nil
}

func (s *Service) writeTransition(ctx context.Context, rec *models.AccessRecord, entry *models.PermissionHistoryEntry, insert bool) error {
	if insert {
		if err := s.store.InsertAccess(ctx, rec); err != nil {
			if apperrors.IsAlreadyExists(err) {
				return err
			}
			return fmt.Errorf("failed to create access record: %w", err)
		}
	} else if err := s.store.ReplaceAccess(ctx, rec); err != nil {
		if apperrors.IsAlreadyExists(err) || apperrors.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to update access record: %w", err)
	}

	entry.AccessRecordID = rec.ID
	if err := s.store.InsertHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

func (s *Service) stamp(rec *models.AccessRecord, actor primitive.ObjectID) {
	rec.UpdatedBy = actor
	rec.UpdatedAt = s.now()
}

func (s *Service) newHistoryEntry(rec *models.AccessRecord, action models.HistoryAction, actor primitive.ObjectID, before *models.AccessSnapshot, reason, correlationID string) *models.PermissionHistoryEntry {
	return &models.PermissionHistoryEntry{
		AccessRecordID: rec.ID,
		User:           rec.User,
		Department:     rec.Department,
		ActionType:     action,
		ChangedBy:      actor,
		ChangeDate:     s.now(),
		PreviousValues: before,
		NewValues:      rec.Snapshot(),
		Reason:         reason,
		CorrelationID:  correlationID,
	}
}

func (s *Service) afterChange(ctx context.Context, rec *models.AccessRecord, action models.HistoryAction, actor primitive.ObjectID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, rec.User, rec.Department)
	}
	metrics.RecordTransition(string(action))
	slog.Info("[Access] Access record changed",
		"action", action,
		"access_id", rec.ID.Hex(),
		"user_id", rec.User.Hex(),
		"department_id", rec.Department.Hex(),
		"actor", actor.Hex())
}
