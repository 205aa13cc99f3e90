package models

// AccessLevel is the coarse role a user holds in a department
type AccessLevel string

const (
	AccessLevelOwner       AccessLevel = "OWNER"
	AccessLevelContributor AccessLevel = "CONTRIBUTOR"
	AccessLevelObserver    AccessLevel = "OBSERVER"
	AccessLevelRepository  AccessLevel = "REPOSITORY"
)

// AccessLevels lists every named level in descending order of authority
var AccessLevels = []AccessLevel{
	AccessLevelOwner,
	AccessLevelRepository,
	AccessLevelContributor,
	AccessLevelObserver,
}

// IsValid reports whether l is one of the named access levels
func (l AccessLevel) IsValid() bool {
	switch l {
	case AccessLevelOwner, AccessLevelContributor, AccessLevelObserver, AccessLevelRepository:
		return true
	}
	return false
}

// ImpliesGlobalAccess reports whether the level grants read visibility into every department
func (l AccessLevel) ImpliesGlobalAccess() bool {
	return l == AccessLevelRepository
}

// CrossDepartmentLevel is the depth of an explicit grant into another department
type CrossDepartmentLevel string

const (
	CrossDepartmentReadOnly       CrossDepartmentLevel = "READ_ONLY"
	CrossDepartmentObserveComment CrossDepartmentLevel = "OBSERVE_COMMENT"
	CrossDepartmentCollaborate    CrossDepartmentLevel = "COLLABORATE"
)

func (l CrossDepartmentLevel) IsValid() bool {
	switch l {
	case CrossDepartmentReadOnly, CrossDepartmentObserveComment, CrossDepartmentCollaborate:
		return true
	}
	return false
}

// Category names one of the four groups of a permission matrix
type Category string

const (
	CategoryContracts    Category = "contracts"
	CategoryDocuments    Category = "documents"
	CategoryInteractions Category = "interactions"
	CategorySpecial      Category = "special"
)

// Flag names a single capability inside a category
type Flag string

// Permission addresses one flag of a permission matrix
type Permission struct {
	Category Category `json:"category" bson:"category"`
	Flag     Flag     `json:"permission" bson:"permission"`
}

func (p Permission) String() string {
	return string(p.Category) + "." + string(p.Flag)
}

// Every addressable permission. Go code should use these values; string
// lookups from the outside go through ParsePermission.
var (
	ContractsCreate         = Permission{CategoryContracts, "canCreate"}
	ContractsViewOwn        = Permission{CategoryContracts, "canViewOwn"}
	ContractsViewDepartment = Permission{CategoryContracts, "canViewDepartment"}
	ContractsViewAll        = Permission{CategoryContracts, "canViewAll"}
	ContractsEdit           = Permission{CategoryContracts, "canEdit"}
	ContractsDelete         = Permission{CategoryContracts, "canDelete"}

	DocumentsUpload    = Permission{CategoryDocuments, "canUpload"}
	DocumentsDownload  = Permission{CategoryDocuments, "canDownload"}
	DocumentsView      = Permission{CategoryDocuments, "canView"}
	DocumentsDelete    = Permission{CategoryDocuments, "canDelete"}
	DocumentsManageAll = Permission{CategoryDocuments, "canManageAll"}

	InteractionsAddObservations       = Permission{CategoryInteractions, "canAddObservations"}
	InteractionsEditOwnObservations   = Permission{CategoryInteractions, "canEditOwnObservations"}
	InteractionsDeleteOwnObservations = Permission{CategoryInteractions, "canDeleteOwnObservations"}
	InteractionsViewAllObservations   = Permission{CategoryInteractions, "canViewAllObservations"}

	SpecialViewFinancialData   = Permission{CategorySpecial, "canViewFinancialData"}
	SpecialExportData          = Permission{CategorySpecial, "canExportData"}
	SpecialViewCrossDepartment = Permission{CategorySpecial, "canViewCrossDepartment"}
	SpecialManagePermissions   = Permission{CategorySpecial, "canManagePermissions"}
)

// AllPermissions is the full catalog in matrix order
var AllPermissions = []Permission{
	ContractsCreate, ContractsViewOwn, ContractsViewDepartment, ContractsViewAll, ContractsEdit, ContractsDelete,
	DocumentsUpload, DocumentsDownload, DocumentsView, DocumentsDelete, DocumentsManageAll,
	InteractionsAddObservations, InteractionsEditOwnObservations, InteractionsDeleteOwnObservations, InteractionsViewAllObservations,
	SpecialViewFinancialData, SpecialExportData, SpecialViewCrossDepartment, SpecialManagePermissions,
}

// ParsePermission resolves a category/flag pair received from outside the process
func ParsePermission(category, flag string) (Permission, bool) {
	for _, p := range AllPermissions {
		if string(p.Category) == category && string(p.Flag) == flag {
			return p, true
		}
	}
	return Permission{}, false
}

// SystemAction is a user-facing operation of the procurement application
type SystemAction string

const (
	ActionCreateContract      SystemAction = "create_contract"
	ActionViewContract        SystemAction = "view_contract"
	ActionEditContract        SystemAction = "edit_contract"
	ActionDeleteContract      SystemAction = "delete_contract"
	ActionUploadDocument      SystemAction = "upload_document"
	ActionDownloadDocument    SystemAction = "download_document"
	ActionViewDocument        SystemAction = "view_document"
	ActionDeleteDocument      SystemAction = "delete_document"
	ActionManageDocuments     SystemAction = "manage_documents"
	ActionAddObservation      SystemAction = "add_observation"
	ActionEditObservation     SystemAction = "edit_observation"
	ActionDeleteObservation   SystemAction = "delete_observation"
	ActionViewObservations    SystemAction = "view_observations"
	ActionViewFinancialData   SystemAction = "view_financial_data"
	ActionViewCrossDepartment SystemAction = "view_cross_department"
	ActionExportData          SystemAction = "export_data"
	ActionManagePermissions   SystemAction = "manage_permissions"
)

// SystemActions maps every system action to the matrix flag that gates it
var SystemActions = map[SystemAction]Permission{
	ActionCreateContract:      ContractsCreate,
	ActionViewContract:        ContractsViewDepartment,
	ActionEditContract:        ContractsEdit,
	ActionDeleteContract:      ContractsDelete,
	ActionUploadDocument:      DocumentsUpload,
	ActionDownloadDocument:    DocumentsDownload,
	ActionViewDocument:        DocumentsView,
	ActionDeleteDocument:      DocumentsDelete,
	ActionManageDocuments:     DocumentsManageAll,
	ActionAddObservation:      InteractionsAddObservations,
	ActionEditObservation:     InteractionsEditOwnObservations,
	ActionDeleteObservation:   InteractionsDeleteOwnObservations,
	ActionViewObservations:    InteractionsViewAllObservations,
	ActionViewFinancialData:   SpecialViewFinancialData,
	ActionViewCrossDepartment: SpecialViewCrossDepartment,
	ActionExportData:          SpecialExportData,
	ActionManagePermissions:   SpecialManagePermissions,
}
