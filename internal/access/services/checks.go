package services

import (
	"context"
	"fmt"
	"log/slog"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PermissionCheck asks whether a user may use one permission in a department,
// optionally on a contract and under request circumstances.
type PermissionCheck struct {
	UserID       primitive.ObjectID
	DepartmentID primitive.ObjectID
	Permission   models.Permission
	ContractID   *primitive.ObjectID
	Context      *models.RestrictionContext
}

// BatchCheckItem is one entry of a batch check for a single user
type BatchCheckItem struct {
	DepartmentID primitive.ObjectID  `json:"departmentId"`
	Permission   models.Permission   `json:"permission"`
	ContractID   *primitive.ObjectID `json:"contractId,omitempty"`
}

// BatchCheckResult carries either a decision or the error that prevented it
type BatchCheckResult struct {
	DepartmentID primitive.ObjectID  `json:"departmentId"`
	Permission   string              `json:"permission"`
	ContractID   *primitive.ObjectID `json:"contractId,omitempty"`
	Decision     *Decision           `json:"decision,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// CheckUserPermission evaluates a permission for the user's ACTIVE record in
// the department. Denials are returned as decisions; errors mean the check
// itself could not be performed.
func (s *Service) CheckUserPermission(ctx context.Context, check PermissionCheck) (*Decision, error) {
	cacheable := s.cache != nil && check.Context == nil
	field := decisionField(check.Permission, check.ContractID)
	if cacheable {
		if d, ok := s.cache.Get(ctx, check.UserID, check.DepartmentID, field); ok {
			metrics.RecordCacheLookup(true)
			metrics.RecordDecision(string(check.Permission.Category), d.Allowed, d.Reason)
			if d.Allowed && d.AccessID != nil {
				s.touchLastAccessed(ctx, *d.AccessID)
			}
			return d, nil
		}
		metrics.RecordCacheLookup(false)
	}

	rec, err := s.store.FindActiveAccess(ctx, check.UserID, check.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load access record: %w", err)
	}
	if rec == nil {
		d := &Decision{Allowed: false, Reason: ReasonNoAccess}
		s.finishCheck(ctx, check, field, nil, d, cacheable)
		return d, nil
	}

	now := s.now()
	var contract *models.ContractRef
	if check.ContractID != nil {
		contract, err = s.contracts.FindContract(ctx, *check.ContractID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contract: %w", err)
		}
		if contract == nil {
			d := &Decision{Allowed: false, Reason: ReasonContractNotFound}
			s.finishCheck(ctx, check, field, rec, d, false)
			return d, nil
		}
		if !CanAccessContract(rec, contract, now) {
			d := &Decision{Allowed: false, Reason: ReasonNoContractAccess, AccessLevel: rec.AccessLevel}
			s.finishCheck(ctx, check, field, rec, d, cacheable)
			return d, nil
		}
	}

	if check.Context != nil {
		rc := withContractFacts(*check.Context, contract)
		if ok, reason := rec.Restrictions.Permits(rc); !ok {
			d := &Decision{Allowed: false, Reason: reason, AccessLevel: rec.AccessLevel}
			s.finishCheck(ctx, check, field, rec, d, false)
			return d, nil
		}
	}

	d := &Decision{Allowed: HasPermission(rec, check.Permission, now), AccessLevel: rec.AccessLevel}
	d.Reason = ReasonDenied
	if d.Allowed {
		d.Reason = ReasonGranted
		d.AccessID = &rec.ID
		s.touchLastAccessed(ctx, rec.ID)
	}
	s.finishCheck(ctx, check, field, rec, d, cacheable)
	return d, nil
}

// BatchCheckPermissions runs several checks for one user. A failing item is
// reported in its own result and does not affect the others.
func (s *Service) BatchCheckPermissions(ctx context.Context, userID primitive.ObjectID, items []BatchCheckItem) []BatchCheckResult {
	results := make([]BatchCheckResult, len(items))
	for i, item := range items {
		results[i] = BatchCheckResult{
			DepartmentID: item.DepartmentID,
			Permission:   item.Permission.String(),
			ContractID:   item.ContractID,
		}
		d, err := s.CheckUserPermission(ctx, PermissionCheck{
			UserID:       userID,
			DepartmentID: item.DepartmentID,
			Permission:   item.Permission,
			ContractID:   item.ContractID,
		})
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Decision = d
	}
	return results
}

// CanPerformSystemAction maps a system action to its permission flag and checks it
func (s *Service) CanPerformSystemAction(ctx context.Context, userID, departmentID primitive.ObjectID, action models.SystemAction, contractID *primitive.ObjectID) (*Decision, error) {
	p, ok := models.SystemActions[action]
	if !ok {
		return &Decision{Allowed: false, Reason: ReasonUnknownAction}, nil
	}
	return s.CheckUserPermission(ctx, PermissionCheck{
		UserID:       userID,
		DepartmentID: departmentID,
		Permission:   p,
		ContractID:   contractID,
	})
}

func (s *Service) finishCheck(ctx context.Context, check PermissionCheck, field string, rec *models.AccessRecord, d *Decision, cache bool) {
	metrics.RecordDecision(string(check.Permission.Category), d.Allowed, d.Reason)
	if !cache {
		return
	}

	// A cached decision must not outlive a validity boundary
	ttl := s.cacheTTL
	if rec != nil {
		now := s.now()
		if rec.Validity.EndDate != nil {
			ttl = min(ttl, rec.Validity.EndDate.Sub(now))
		}
		if rec.Validity.StartDate.After(now) {
			ttl = min(ttl, rec.Validity.StartDate.Sub(now))
		}
	}
	s.cache.Set(ctx, check.UserID, check.DepartmentID, field, d, ttl)
}

// touchLastAccessed is best effort; a failed stamp never fails the check
func (s *Service) touchLastAccessed(ctx context.Context, id primitive.ObjectID) {
	if err := s.store.TouchLastAccessed(ctx, id, s.now()); err != nil {
		slog.Debug("[Access] Failed to update lastAccessed", "access_id", id.Hex(), "error", err)
	}
}

func decisionField(p models.Permission, contractID *primitive.ObjectID) string {
	if contractID == nil {
		return p.String()
	}
	return p.String() + "@" + contractID.Hex()
}

// withContractFacts fills request fields the caller left empty from the contract
func withContractFacts(rc models.RestrictionContext, contract *models.ContractRef) models.RestrictionContext {
	if contract == nil {
		return rc
	}
	if rc.ContractType == "" {
		rc.ContractType = contract.ContractType
	}
	if rc.Phase == "" {
		rc.Phase = contract.Phase
	}
	if rc.Amount == nil {
		rc.Amount = contract.Amount
	}
	return rc
}
