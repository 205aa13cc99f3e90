package dto

import (
	"time"

	"gad-esmeraldas/internal/access/models"
)

// ViewableDepartmentResponse is an explicit cross-department grant in API responses
type ViewableDepartmentResponse struct {
	Department  string    `json:"department" description:"Department ObjectID"`
	AccessLevel string    `json:"accessLevel" description:"Depth of the grant"`
	GrantedBy   string    `json:"grantedBy,omitempty" description:"User who granted it"`
	GrantedAt   time.Time `json:"grantedAt" description:"When it was granted"`
}

// AccessRecordResponse is an access record in API responses
type AccessRecordResponse struct {
	ID                  string                       `json:"id" description:"Access record ObjectID"`
	User                string                       `json:"user" description:"User ObjectID"`
	Department          string                       `json:"department" description:"Department ObjectID"`
	AccessLevel         string                       `json:"accessLevel" description:"Access level"`
	Permissions         models.PermissionMatrix      `json:"permissions" description:"Effective permission matrix"`
	Restrictions        models.Restrictions          `json:"restrictions" description:"Contextual restrictions"`
	ViewableDepartments []ViewableDepartmentResponse `json:"viewableDepartments" description:"Explicit cross-department grants"`
	HasGlobalAccess     bool                         `json:"hasGlobalAccess" description:"Read visibility into every department"`
	AssignedBy          string                       `json:"assignedBy" description:"User who assigned the access"`
	AssignedAt          time.Time                    `json:"assignedAt" description:"Assignment timestamp"`
	AssignmentReason    string                       `json:"assignmentReason,omitempty" description:"Why the access was granted"`
	IsPrimary           bool                         `json:"isPrimary" description:"Primary department flag"`
	Priority            int                          `json:"priority" description:"Ordering among the user's grants"`
	TemplateID          string                       `json:"templateId,omitempty" description:"Template the access was created from"`
	StartDate           time.Time                    `json:"startDate" description:"Start of validity"`
	EndDate             *time.Time                   `json:"endDate,omitempty" description:"End of validity"`
	IsTemporary         bool                         `json:"isTemporary" description:"Temporary flag"`
	Status              string                       `json:"status" description:"Lifecycle status"`
	StatusReason        string                       `json:"statusReason,omitempty" description:"Reason of the last status change"`
	IsActive            bool                         `json:"isActive" description:"Active flag"`
	LastAccessed        *time.Time                   `json:"lastAccessed,omitempty" description:"Last allowed permission check"`
	CreatedAt           time.Time                    `json:"createdAt" description:"Creation timestamp"`
	UpdatedAt           time.Time                    `json:"updatedAt" description:"Last update timestamp"`
}

// HistoryEntryResponse is one permission history entry in API responses
type HistoryEntryResponse struct {
	ID             string                 `json:"id" description:"History entry ObjectID"`
	AccessRecordID string                 `json:"accessRecordId" description:"Access record ObjectID"`
	ActionType     string                 `json:"actionType" description:"Transition kind"`
	ChangedBy      string                 `json:"changedBy" description:"User who made the change"`
	ChangeDate     time.Time              `json:"changeDate" description:"When the change happened"`
	PreviousValues *models.AccessSnapshot `json:"previousValues,omitempty" description:"State before the change"`
	NewValues      *models.AccessSnapshot `json:"newValues,omitempty" description:"State after the change"`
	Reason         string                 `json:"reason,omitempty" description:"Reason given for the change"`
	CorrelationID  string                 `json:"correlationId,omitempty" description:"Groups entries written by one compound operation"`
}

// TemplateResponse is a permission template in API responses
type TemplateResponse struct {
	ID                    string                  `json:"id" description:"Template ObjectID"`
	Name                  string                  `json:"name" description:"Unique template name"`
	Description           string                  `json:"description,omitempty" description:"Template description"`
	DefaultAccessLevel    string                  `json:"defaultAccessLevel" description:"Access level assigned by the template"`
	Permissions           models.PermissionMatrix `json:"permissions" description:"Permission matrix"`
	ApplicableRoles       []string                `json:"applicableRoles" description:"Informational role labels"`
	ApplicableDepartments []string                `json:"applicableDepartments" description:"Departments the template may be applied in"`
	IsActive              bool                    `json:"isActive" description:"Whether the template can be applied"`
	IsSystem              bool                    `json:"isSystem" description:"Seeded system template"`
	UsageCount            int                     `json:"usageCount" description:"Number of successful applications"`
	LastUsed              *time.Time              `json:"lastUsed,omitempty" description:"Last application"`
	CreatedAt             time.Time               `json:"createdAt" description:"Creation timestamp"`
	UpdatedAt             time.Time               `json:"updatedAt" description:"Last update timestamp"`
}

// DecisionResponse is the outcome of a permission check
type DecisionResponse struct {
	Allowed     bool   `json:"allowed" description:"Whether the action is permitted"`
	Reason      string `json:"reason" description:"Why the action was allowed or denied"`
	AccessLevel string `json:"accessLevel,omitempty" description:"Access level of the evaluated record"`
}

// BatchCheckResultResponse is one entry of a batch check result
type BatchCheckResultResponse struct {
	Department string            `json:"department" description:"Department ObjectID"`
	Permission string            `json:"permission" description:"category.flag"`
	ContractID string            `json:"contractId,omitempty" description:"Contract ObjectID"`
	Decision   *DecisionResponse `json:"decision,omitempty" description:"Decision, absent when the check failed"`
	Error      string            `json:"error,omitempty" description:"Failure of this entry"`
}

// EffectivePermissionsResponse is one department's contribution to a user's access
type EffectivePermissionsResponse struct {
	AccessID            string                       `json:"accessId" description:"Access record ObjectID"`
	Department          string                       `json:"department" description:"Department ObjectID"`
	AccessLevel         string                       `json:"accessLevel" description:"Access level"`
	Permissions         models.PermissionMatrix      `json:"permissions" description:"Permission matrix"`
	IsPrimary           bool                         `json:"isPrimary" description:"Primary department flag"`
	HasGlobalAccess     bool                         `json:"hasGlobalAccess" description:"Read visibility into every department"`
	ViewableDepartments []ViewableDepartmentResponse `json:"viewableDepartments" description:"Explicit cross-department grants"`
}

// TemplateApplicationResponse is one user's outcome of a template application
type TemplateApplicationResponse struct {
	User     string `json:"user" description:"User ObjectID"`
	Status   string `json:"status" enum:"created,updated,error" description:"Outcome"`
	AccessID string `json:"accessId,omitempty" description:"Created or updated access record"`
	Error    string `json:"error,omitempty" description:"Failure reason"`
}

// StatusResponse is the access module status
type StatusResponse struct {
	Module  string `json:"module" description:"Module name"`
	Status  string `json:"status" enum:"healthy,unhealthy" description:"Module health status"`
	Message string `json:"message,omitempty" description:"Optional status message or error details"`
}

type StatusOutput struct {
	Body StatusResponse `json:"body"`
}

type AccessRecordOutput struct {
	Body AccessRecordResponse `json:"body"`
}

type AccessListOutput struct {
	Body struct {
		Records []AccessRecordResponse `json:"records" description:"Access records"`
		Total   int                    `json:"total" description:"Number of records"`
	}
}

type HistoryOutput struct {
	Body struct {
		Entries []HistoryEntryResponse `json:"entries" description:"History entries, oldest first"`
	}
}

type DecisionOutput struct {
	Body DecisionResponse `json:"body"`
}

type BatchCheckOutput struct {
	Body struct {
		Results []BatchCheckResultResponse `json:"results" description:"Results in request order"`
	}
}

type EffectivePermissionsOutput struct {
	Body struct {
		User        string                         `json:"user" description:"User ObjectID"`
		Departments []EffectivePermissionsResponse `json:"departments" description:"Grants currently in effect"`
	}
}

type TransferOwnershipOutput struct {
	Body struct {
		PreviousOwner AccessRecordResponse `json:"previousOwner" description:"Demoted record"`
		NewOwner      AccessRecordResponse `json:"newOwner" description:"Promoted record"`
		CorrelationID string               `json:"correlationId" description:"Correlation ID shared by both history entries"`
	}
}

type TemplateOutput struct {
	Body TemplateResponse `json:"body"`
}

type TemplateListOutput struct {
	Body struct {
		Templates []TemplateResponse `json:"templates" description:"Permission templates"`
		Total     int                `json:"total" description:"Number of templates"`
	}
}

type ApplyTemplateOutput struct {
	Body struct {
		Template      string                        `json:"template" description:"Template ObjectID"`
		CorrelationID string                        `json:"correlationId" description:"Correlation ID of this application"`
		Results       []TemplateApplicationResponse `json:"results" description:"Per-user outcome in request order"`
	}
}

type AdminRolesOutput struct {
	Body struct {
		User  string   `json:"user" description:"User ObjectID"`
		Roles []string `json:"roles" description:"Administrative roles"`
	}
}
