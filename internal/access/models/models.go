package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessStatus is the lifecycle state of an access record
type AccessStatus string

const (
	StatusActive    AccessStatus = "ACTIVE"
	StatusSuspended AccessStatus = "SUSPENDED"
	StatusExpired   AccessStatus = "EXPIRED"
	StatusRevoked   AccessStatus = "REVOKED"
	StatusPending   AccessStatus = "PENDING"
)

// HistoryAction is the kind of transition recorded in the permission history
type HistoryAction string

const (
	HistoryCreated   HistoryAction = "CREATED"
	HistoryUpdated   HistoryAction = "UPDATED"
	HistoryActivated HistoryAction = "ACTIVATED"
	HistorySuspended HistoryAction = "SUSPENDED"
	HistoryRevoked   HistoryAction = "REVOKED"
	HistoryExpired   HistoryAction = "EXPIRED"
	HistoryRestored  HistoryAction = "RESTORED"
)

// SystemActor stamps changes made by the service itself (expiry sweep, seeding)
var SystemActor = primitive.NilObjectID

// ViewableDepartment is an explicit visibility grant into another department
type ViewableDepartment struct {
	Department  primitive.ObjectID   `json:"department" bson:"department"`
	AccessLevel CrossDepartmentLevel `json:"accessLevel" bson:"accessLevel"`
	GrantedBy   primitive.ObjectID   `json:"grantedBy,omitempty" bson:"grantedBy,omitempty"`
	GrantedAt   time.Time            `json:"grantedAt" bson:"grantedAt"`
}

type CrossDepartmentAccess struct {
	ViewableDepartments []ViewableDepartment `json:"viewableDepartments" bson:"viewableDepartments"`
	HasGlobalAccess     bool                 `json:"hasGlobalAccess" bson:"hasGlobalAccess"`
}

// Grants returns the explicit grant into department, if any
func (c CrossDepartmentAccess) Grants(department primitive.ObjectID) (ViewableDepartment, bool) {
	for _, vd := range c.ViewableDepartments {
		if vd.Department == department {
			return vd, true
		}
	}
	return ViewableDepartment{}, false
}

type Assignment struct {
	AssignedBy       primitive.ObjectID  `json:"assignedBy" bson:"assignedBy"`
	AssignedAt       time.Time           `json:"assignedAt" bson:"assignedAt"`
	AssignmentReason string              `json:"assignmentReason,omitempty" bson:"assignmentReason,omitempty"`
	IsPrimary        bool                `json:"isPrimary" bson:"isPrimary"`
	Priority         int                 `json:"priority" bson:"priority"`
	TemplateID       *primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`
}

type Validity struct {
	StartDate           time.Time  `json:"startDate" bson:"startDate"`
	EndDate             *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	IsTemporary         bool       `json:"isTemporary" bson:"isTemporary"`
	AutoExpireAfterDays int        `json:"autoExpireAfterDays,omitempty" bson:"autoExpireAfterDays,omitempty"`
}

// AccessRecord is one user's grant to one department (UserDepartmentAccess)
type AccessRecord struct {
	ID                    primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	User                  primitive.ObjectID    `json:"user" bson:"user"`
	Department            primitive.ObjectID    `json:"department" bson:"department"`
	AccessLevel           AccessLevel           `json:"accessLevel" bson:"accessLevel"`
	Permissions           PermissionMatrix      `json:"permissions" bson:"permissions"`
	Restrictions          Restrictions          `json:"restrictions" bson:"restrictions"`
	CrossDepartmentAccess CrossDepartmentAccess `json:"crossDepartmentAccess" bson:"crossDepartmentAccess"`
	Assignment            Assignment            `json:"assignment" bson:"assignment"`
	Validity              Validity              `json:"validity" bson:"validity"`
	Status                AccessStatus          `json:"status" bson:"status"`
	StatusReason          string                `json:"statusReason,omitempty" bson:"statusReason,omitempty"`
	IsActive              bool                  `json:"isActive" bson:"isActive"`
	LastAccessed          *time.Time            `json:"lastAccessed,omitempty" bson:"lastAccessed,omitempty"`
	CreatedBy             primitive.ObjectID    `json:"createdBy" bson:"createdBy"`
	UpdatedBy             primitive.ObjectID    `json:"updatedBy" bson:"updatedBy"`
	CreatedAt             time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// Snapshot captures the mutable part of a record for the history log
func (r *AccessRecord) Snapshot() *AccessSnapshot {
	viewable := make([]ViewableDepartment, len(r.CrossDepartmentAccess.ViewableDepartments))
	copy(viewable, r.CrossDepartmentAccess.ViewableDepartments)

	return &AccessSnapshot{
		AccessLevel: r.AccessLevel,
		Permissions: r.Permissions,
		CrossDepartmentAccess: CrossDepartmentAccess{
			ViewableDepartments: viewable,
			HasGlobalAccess:     r.CrossDepartmentAccess.HasGlobalAccess,
		},
		Validity: r.Validity,
		Status:   r.Status,
		IsActive: r.IsActive,
	}
}

// Clone returns a deep copy of the record
func (r *AccessRecord) Clone() *AccessRecord {
	c := *r
	c.CrossDepartmentAccess.ViewableDepartments = append([]ViewableDepartment(nil), r.CrossDepartmentAccess.ViewableDepartments...)
	c.Restrictions = r.Restrictions.clone()
	if r.Validity.EndDate != nil {
		end := *r.Validity.EndDate
		c.Validity.EndDate = &end
	}
	if r.Assignment.TemplateID != nil {
		id := *r.Assignment.TemplateID
		c.Assignment.TemplateID = &id
	}
	if r.LastAccessed != nil {
		at := *r.LastAccessed
		c.LastAccessed = &at
	}
	return &c
}

type AccessSnapshot struct {
	AccessLevel           AccessLevel           `json:"accessLevel" bson:"accessLevel"`
	Permissions           PermissionMatrix      `json:"permissions" bson:"permissions"`
	CrossDepartmentAccess CrossDepartmentAccess `json:"crossDepartmentAccess" bson:"crossDepartmentAccess"`
	Validity              Validity              `json:"validity" bson:"validity"`
	Status                AccessStatus          `json:"status" bson:"status"`
	IsActive              bool                  `json:"isActive" bson:"isActive"`
}

// PermissionHistoryEntry is an immutable record of one lifecycle transition
type PermissionHistoryEntry struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccessRecordID primitive.ObjectID `json:"accessRecordId" bson:"accessRecordId"`
	User           primitive.ObjectID `json:"user" bson:"user"`
	Department     primitive.ObjectID `json:"department" bson:"department"`
	ActionType     HistoryAction      `json:"actionType" bson:"actionType"`
	ChangedBy      primitive.ObjectID `json:"changedBy" bson:"changedBy"`
	ChangeDate     time.Time          `json:"changeDate" bson:"changeDate"`
	PreviousValues *AccessSnapshot    `json:"previousValues,omitempty" bson:"previousValues,omitempty"`
	NewValues      *AccessSnapshot    `json:"newValues,omitempty" bson:"newValues,omitempty"`
	Reason         string             `json:"reason,omitempty" bson:"reason,omitempty"`
	CorrelationID  string             `json:"correlationId,omitempty" bson:"correlationId,omitempty"`
}

// PermissionTemplate is a named, reusable permission matrix
type PermissionTemplate struct {
	ID                    primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name                  string               `json:"name" bson:"name"`
	Description           string               `json:"description,omitempty" bson:"description,omitempty"`
	DefaultAccessLevel    AccessLevel          `json:"defaultAccessLevel" bson:"defaultAccessLevel"`
	PermissionTemplate    PermissionMatrix     `json:"permissionTemplate" bson:"permissionTemplate"`
	ApplicableRoles       []string             `json:"applicableRoles" bson:"applicableRoles"`
	ApplicableDepartments []primitive.ObjectID `json:"applicableDepartments" bson:"applicableDepartments"`
	IsActive              bool                 `json:"isActive" bson:"isActive"`
	IsSystem              bool                 `json:"isSystem" bson:"isSystem"`
	UsageCount            int                  `json:"usageCount" bson:"usageCount"`
	LastUsed              *time.Time           `json:"lastUsed,omitempty" bson:"lastUsed,omitempty"`
	CreatedBy             primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	CreatedAt             time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// AppliesTo reports whether the template may be applied in department.
// An empty department list means the template is usable everywhere.
func (t *PermissionTemplate) AppliesTo(department primitive.ObjectID) bool {
	if len(t.ApplicableDepartments) == 0 {
		return true
	}
	for _, d := range t.ApplicableDepartments {
		if d == department {
			return true
		}
	}
	return false
}

// ContractRef is the slice of a contract the evaluator needs
type ContractRef struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id"`
	RequestingDepartment primitive.ObjectID `json:"requestingDepartment" bson:"requestingDepartment"`
	CreatedBy            primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	ContractType         string             `json:"contractType,omitempty" bson:"contractType,omitempty"`
	Phase                string             `json:"phase,omitempty" bson:"phase,omitempty"`
	Amount               *float64           `json:"amount,omitempty" bson:"amount,omitempty"`
}

// Collection names
const (
	AccessCollection    = "user_department_access"
	TemplatesCollection = "permission_templates"
	HistoryCollection   = "permission_history"
)
