package services

import (
	"time"

	"gad-esmeraldas/internal/access/models"
)

// IsExpired reports whether the record's validity window has closed
func IsExpired(rec *models.AccessRecord, now time.Time) bool {
	return rec.Validity.EndDate != nil && rec.Validity.EndDate.Before(now)
}

// isInEffect is the state gate shared by every evaluation: the record must be
// active, in ACTIVE status, started and not expired.
func isInEffect(rec *models.AccessRecord, now time.Time) bool {
	if rec == nil || !rec.IsActive || rec.Status != models.StatusActive {
		return false
	}
	if !rec.Validity.StartDate.IsZero() && rec.Validity.StartDate.After(now) {
		return false
	}
	return !IsExpired(rec, now)
}

// HasPermission evaluates one flag of the record. It fails closed.
func HasPermission(rec *models.AccessRecord, p models.Permission, now time.Time) bool {
	if !isInEffect(rec, now) {
		return false
	}
	return rec.Permissions.Allows(p)
}

// CanAccessContract decides whether the record grants visibility of contract
func CanAccessContract(rec *models.AccessRecord, contract *models.ContractRef, now time.Time) bool {
	if contract == nil || !isInEffect(rec, now) {
		return false
	}

	if contract.RequestingDepartment == rec.Department {
		return HasPermission(rec, models.ContractsViewDepartment, now)
	}

	if rec.CrossDepartmentAccess.HasGlobalAccess && HasPermission(rec, models.ContractsViewAll, now) {
		return true
	}

	_, granted := rec.CrossDepartmentAccess.Grants(contract.RequestingDepartment)
	return granted
}
