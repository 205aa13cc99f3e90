package dto

import (
	"time"

	"gad-esmeraldas/internal/access/models"
)

// ViewableDepartmentRequest is an explicit cross-department grant in a request body
type ViewableDepartmentRequest struct {
	Department  string `json:"department" validate:"required,object_id" description:"Department ObjectID"`
	AccessLevel string `json:"accessLevel" validate:"required,cross_department_level" enum:"READ_ONLY,OBSERVE_COMMENT,COLLABORATE" description:"Depth of the grant"`
}

// CreateAccessRequest is the body of POST /access
type CreateAccessRequest struct {
	User                string                      `json:"user" validate:"required,object_id" description:"User ObjectID"`
	Department          string                      `json:"department" validate:"required,object_id" description:"Department ObjectID"`
	AccessLevel         string                      `json:"accessLevel" validate:"required,access_level" enum:"OWNER,CONTRIBUTOR,OBSERVER,REPOSITORY" description:"Access level in the department"`
	Permissions         *models.PermissionMatrix    `json:"permissions,omitempty" description:"Explicit permission matrix; derived from the access level when omitted"`
	Restrictions        *models.Restrictions        `json:"restrictions,omitempty" description:"Contextual restrictions"`
	ViewableDepartments []ViewableDepartmentRequest `json:"viewableDepartments,omitempty" validate:"omitempty,max=50,dive" description:"Explicit cross-department grants"`
	AssignmentReason    string                      `json:"assignmentReason,omitempty" validate:"max=500" maxLength:"500" description:"Why the access was granted"`
	IsPrimary           bool                        `json:"isPrimary,omitempty" description:"Whether this is the user's primary department"`
	Priority            int                         `json:"priority,omitempty" validate:"min=0,max=100" minimum:"0" maximum:"100" description:"Ordering among the user's grants"`
	StartDate           *time.Time                  `json:"startDate,omitempty" description:"Start of validity; defaults to now"`
	EndDate             *time.Time                  `json:"endDate,omitempty" description:"End of validity"`
	IsTemporary         bool                        `json:"isTemporary,omitempty" description:"Whether the grant is temporary"`
	AutoExpireAfterDays int                         `json:"autoExpireAfterDays,omitempty" validate:"min=0,max=3650" minimum:"0" maximum:"3650" description:"Derives the end date from the start date when no end date is given"`
}

// UpdateAccessRequest is the body of PATCH /access/{id}. Omitted fields are unchanged.
type UpdateAccessRequest struct {
	AccessLevel         *string                     `json:"accessLevel,omitempty" validate:"omitempty,access_level" enum:"OWNER,CONTRIBUTOR,OBSERVER,REPOSITORY" description:"New access level; re-derives permissions unless permissions are given"`
	Permissions         *models.PermissionMatrix    `json:"permissions,omitempty" description:"Replacement permission matrix"`
	Restrictions        *models.Restrictions        `json:"restrictions,omitempty" description:"Replacement restrictions"`
	ViewableDepartments []ViewableDepartmentRequest `json:"viewableDepartments,omitempty" validate:"omitempty,max=50,dive" description:"Replacement cross-department grants"`
	AssignmentReason    *string                     `json:"assignmentReason,omitempty" validate:"omitempty,max=500" maxLength:"500" description:"Assignment reason"`
	IsPrimary           *bool                       `json:"isPrimary,omitempty" description:"Primary department flag"`
	Priority            *int                        `json:"priority,omitempty" validate:"omitempty,min=0,max=100" minimum:"0" maximum:"100" description:"Ordering among the user's grants"`
	EndDate             *time.Time                  `json:"endDate,omitempty" description:"End of validity"`
	IsTemporary         *bool                       `json:"isTemporary,omitempty" description:"Temporary flag"`
	Reason              string                      `json:"reason,omitempty" validate:"max=500" maxLength:"500" description:"Reason recorded in the history log"`
}

// StatusChangeRequest carries the optional reason of a lifecycle transition
type StatusChangeRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500" maxLength:"500" description:"Reason recorded in the history log"`
}

// CheckContext describes the circumstances of a request for restriction checks
type CheckContext struct {
	ContractType string   `json:"contractType,omitempty" description:"Contract type; taken from the contract when omitted"`
	Phase        string   `json:"phase,omitempty" description:"Contract phase; taken from the contract when omitted"`
	Amount       *float64 `json:"amount,omitempty" description:"Contract amount; taken from the contract when omitted"`
	IP           string   `json:"ip,omitempty" validate:"omitempty,ip" description:"Client IP address"`
}

// CheckPermissionRequest is the body of POST /access/check
type CheckPermissionRequest struct {
	User       string        `json:"user" validate:"required,object_id" description:"User ObjectID"`
	Department string        `json:"department" validate:"required,object_id" description:"Department ObjectID"`
	Category   string        `json:"category" validate:"required" enum:"contracts,documents,interactions,special" description:"Permission category"`
	Permission string        `json:"permission" validate:"required" description:"Permission flag, e.g. canEdit"`
	ContractID string        `json:"contractId,omitempty" validate:"omitempty,object_id" description:"Contract the action targets"`
	Context    *CheckContext `json:"context,omitempty" description:"Request circumstances; restrictions are evaluated only when present"`
}

// BatchCheckItemRequest is one entry of a batch permission check. Malformed
// IDs fail only their own entry.
type BatchCheckItemRequest struct {
	Department string `json:"department" validate:"required" description:"Department ObjectID"`
	Category   string `json:"category" validate:"required" description:"Permission category"`
	Permission string `json:"permission" validate:"required" description:"Permission flag"`
	ContractID string `json:"contractId,omitempty" description:"Contract the action targets"`
}

// BatchCheckRequest is the body of POST /access/check/batch
type BatchCheckRequest struct {
	User   string                  `json:"user" validate:"required,object_id" description:"User ObjectID"`
	Checks []BatchCheckItemRequest `json:"checks" validate:"required,min=1,max=100,dive" minItems:"1" maxItems:"100" description:"Checks to evaluate"`
}

// SystemActionRequest is the body of POST /access/check/action
type SystemActionRequest struct {
	User       string `json:"user" validate:"required,object_id" description:"User ObjectID"`
	Department string `json:"department" validate:"required,object_id" description:"Department ObjectID"`
	Action     string `json:"action" validate:"required" description:"System action, e.g. create_contract"`
	ContractID string `json:"contractId,omitempty" validate:"omitempty,object_id" description:"Contract the action targets"`
}

// CrossDepartmentRequest is the body of PUT /access/{id}/cross-department/{department_id}
type CrossDepartmentRequest struct {
	AccessLevel string `json:"accessLevel" validate:"required,cross_department_level" enum:"READ_ONLY,OBSERVE_COMMENT,COLLABORATE" description:"Depth of the grant"`
}

// TransferOwnershipRequest is the body of POST /access/departments/{department_id}/transfer-ownership
type TransferOwnershipRequest struct {
	FromUser string `json:"fromUser" validate:"required,object_id" description:"Current owner"`
	ToUser   string `json:"toUser" validate:"required,object_id,nefield=FromUser" description:"New owner"`
}

// TemplateRequest is the body of POST /access/templates
type TemplateRequest struct {
	Name                  string                   `json:"name" validate:"required,template_name" minLength:"3" maxLength:"100" description:"Unique template name"`
	Description           string                   `json:"description,omitempty" validate:"max=500" maxLength:"500" description:"Template description"`
	DefaultAccessLevel    string                   `json:"defaultAccessLevel" validate:"required,access_level" enum:"OWNER,CONTRIBUTOR,OBSERVER,REPOSITORY" description:"Access level assigned by the template"`
	Permissions           *models.PermissionMatrix `json:"permissions,omitempty" description:"Permission matrix; derived from the access level when omitted"`
	ApplicableRoles       []string                 `json:"applicableRoles,omitempty" validate:"omitempty,max=20,dive,min=1,max=50" description:"Informational role labels"`
	ApplicableDepartments []string                 `json:"applicableDepartments,omitempty" validate:"omitempty,dive,object_id" description:"Departments the template may be applied in; empty means all"`
}

// UpdateTemplateRequest is the body of PUT /access/templates/{id}. Omitted fields are unchanged.
type UpdateTemplateRequest struct {
	Name                  *string                  `json:"name,omitempty" validate:"omitempty,template_name" minLength:"3" maxLength:"100" description:"Unique template name"`
	Description           *string                  `json:"description,omitempty" validate:"omitempty,max=500" maxLength:"500" description:"Template description"`
	DefaultAccessLevel    *string                  `json:"defaultAccessLevel,omitempty" validate:"omitempty,access_level" enum:"OWNER,CONTRIBUTOR,OBSERVER,REPOSITORY" description:"Access level assigned by the template"`
	Permissions           *models.PermissionMatrix `json:"permissions,omitempty" description:"Permission matrix"`
	ApplicableRoles       []string                 `json:"applicableRoles,omitempty" validate:"omitempty,max=20,dive,min=1,max=50" description:"Informational role labels"`
	ApplicableDepartments []string                 `json:"applicableDepartments,omitempty" validate:"omitempty,dive,object_id" description:"Departments the template may be applied in"`
	IsActive              *bool                    `json:"isActive,omitempty" description:"Whether the template can be applied"`
}

// ApplyTemplateRequest is the body of POST /access/templates/{id}/apply
type ApplyTemplateRequest struct {
	Department string   `json:"department" validate:"required,object_id" description:"Department the users receive access to"`
	Users      []string `json:"users" validate:"required,min=1,max=500,dive,object_id" minItems:"1" maxItems:"500" description:"Users to apply the template to"`
}

// GetStatusInput is the input of GET /access/status
type GetStatusInput struct{}

type CheckPermissionInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	Body          CheckPermissionRequest
}

type BatchCheckInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	Body          BatchCheckRequest
}

type SystemActionInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	Body          SystemActionRequest
}

type CreateAccessInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	Body          CreateAccessRequest
}

// AccessIDInput addresses a single access record
type AccessIDInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Access record ObjectID"`
}

type UpdateAccessInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Access record ObjectID"`
	Body          UpdateAccessRequest
}

type StatusChangeInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Access record ObjectID"`
	Body          StatusChangeRequest
}

type AddCrossDepartmentInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Access record ObjectID"`
	DepartmentID  string `path:"department_id" required:"true" description:"Target department ObjectID"`
	Body          CrossDepartmentRequest
}

type RemoveCrossDepartmentInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Access record ObjectID"`
	DepartmentID  string `path:"department_id" required:"true" description:"Target department ObjectID"`
}

type UserAccessInput struct {
	Authorization   string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie          string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	UserID          string `path:"user_id" required:"true" description:"User ObjectID"`
	IncludeInactive bool   `query:"include_inactive" default:"false" description:"Include revoked, suspended and expired records"`
}

type EffectivePermissionsInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	UserID        string `path:"user_id" required:"true" description:"User ObjectID"`
}

type DepartmentAccessInput struct {
	Authorization   string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie          string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	DepartmentID    string `path:"department_id" required:"true" description:"Department ObjectID"`
	IncludeInactive bool   `query:"include_inactive" default:"false" description:"Include revoked, suspended and expired records"`
}

type TransferOwnershipInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	DepartmentID  string `path:"department_id" required:"true" description:"Department ObjectID"`
	Body          TransferOwnershipRequest
}

type CreateTemplateInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	Body          TemplateRequest
}

type ListTemplatesInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ActiveOnly    bool   `query:"active_only" default:"true" description:"Only list templates that can be applied"`
}

type TemplateIDInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Template ObjectID"`
}

type UpdateTemplateInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Template ObjectID"`
	Body          UpdateTemplateRequest
}

type ApplyTemplateInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	ID            string `path:"id" required:"true" description:"Template ObjectID"`
	Body          ApplyTemplateRequest
}

// AdminRoleInput addresses one casbin role of one user
type AdminRoleInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	UserID        string `path:"user_id" required:"true" description:"User ObjectID"`
	Role          string `path:"role" required:"true" enum:"access_admin,auditor,super_admin" description:"Administrative role"`
}

type AdminRolesInput struct {
	Authorization string `header:"Authorization" description:"Bearer token for authentication"`
	Cookie        string `header:"Cookie" description:"Cookie header containing gad_auth_token"`
	UserID        string `path:"user_id" required:"true" description:"User ObjectID"`
}
