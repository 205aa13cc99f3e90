package models

type ContractPermissions struct {
	CanCreate         bool `json:"canCreate" bson:"canCreate"`
	CanViewOwn        bool `json:"canViewOwn" bson:"canViewOwn"`
	CanViewDepartment bool `json:"canViewDepartment" bson:"canViewDepartment"`
	CanViewAll        bool `json:"canViewAll" bson:"canViewAll"`
	CanEdit           bool `json:"canEdit" bson:"canEdit"`
	CanDelete         bool `json:"canDelete" bson:"canDelete"`
}

type DocumentPermissions struct {
	CanUpload    bool `json:"canUpload" bson:"canUpload"`
	CanDownload  bool `json:"canDownload" bson:"canDownload"`
	CanView      bool `json:"canView" bson:"canView"`
	CanDelete    bool `json:"canDelete" bson:"canDelete"`
	CanManageAll bool `json:"canManageAll" bson:"canManageAll"`
}

type InteractionPermissions struct {
	CanAddObservations       bool `json:"canAddObservations" bson:"canAddObservations"`
	CanEditOwnObservations   bool `json:"canEditOwnObservations" bson:"canEditOwnObservations"`
	CanDeleteOwnObservations bool `json:"canDeleteOwnObservations" bson:"canDeleteOwnObservations"`
	CanViewAllObservations   bool `json:"canViewAllObservations" bson:"canViewAllObservations"`
}

type SpecialPermissions struct {
	CanViewFinancialData   bool `json:"canViewFinancialData" bson:"canViewFinancialData"`
	CanExportData          bool `json:"canExportData" bson:"canExportData"`
	CanViewCrossDepartment bool `json:"canViewCrossDepartment" bson:"canViewCrossDepartment"`
	CanManagePermissions   bool `json:"canManagePermissions" bson:"canManagePermissions"`
}

// PermissionMatrix is the complete set of capability flags of one grant
type PermissionMatrix struct {
	Contracts    ContractPermissions    `json:"contracts" bson:"contracts"`
	Documents    DocumentPermissions    `json:"documents" bson:"documents"`
	Interactions InteractionPermissions `json:"interactions" bson:"interactions"`
	Special      SpecialPermissions     `json:"special" bson:"special"`
}

// DerivePermissions returns the default matrix of an access level.
// Unrecognised levels get the read-only fallback; the function never fails.
func DerivePermissions(level AccessLevel) PermissionMatrix {
	m := readOnlyMatrix()

	switch level {
	case AccessLevelOwner:
		m.Contracts.CanCreate = true
		m.Contracts.CanEdit = true
		m.Contracts.CanDelete = true
		m.Documents.CanUpload = true
		m.Documents.CanDelete = true
		m.Documents.CanManageAll = true
		m.Interactions.CanAddObservations = true
		m.Interactions.CanEditOwnObservations = true
		m.Interactions.CanDeleteOwnObservations = true
		m.Special.CanViewFinancialData = true
		m.Special.CanExportData = true
		m.Special.CanManagePermissions = true
	case AccessLevelRepository:
		m.Contracts.CanViewAll = true
		m.Interactions.CanAddObservations = true
		m.Interactions.CanEditOwnObservations = true
		m.Special.CanViewFinancialData = true
		m.Special.CanExportData = true
		m.Special.CanViewCrossDepartment = true
	case AccessLevelContributor:
		m.Documents.CanUpload = true
		m.Interactions.CanAddObservations = true
		m.Interactions.CanEditOwnObservations = true
	case AccessLevelObserver:
		m.Interactions.CanAddObservations = true
		m.Interactions.CanEditOwnObservations = true
	}

	return m
}

// readOnlyMatrix is the most restrictive matrix: view and download only
func readOnlyMatrix() PermissionMatrix {
	return PermissionMatrix{
		Contracts: ContractPermissions{
			CanViewOwn:        true,
			CanViewDepartment: true,
		},
		Documents: DocumentPermissions{
			CanDownload: true,
			CanView:     true,
		},
		Interactions: InteractionPermissions{
			CanViewAllObservations: true,
		},
	}
}

// Allows reports the value of one flag. Permissions outside the catalog are denied.
func (m PermissionMatrix) Allows(p Permission) bool {
	switch p {
	case ContractsCreate:
		return m.Contracts.CanCreate
	case ContractsViewOwn:
		return m.Contracts.CanViewOwn
	case ContractsViewDepartment:
		return m.Contracts.CanViewDepartment
	case ContractsViewAll:
		return m.Contracts.CanViewAll
	case ContractsEdit:
		return m.Contracts.CanEdit
	case ContractsDelete:
		return m.Contracts.CanDelete
	case DocumentsUpload:
		return m.Documents.CanUpload
	case DocumentsDownload:
		return m.Documents.CanDownload
	case DocumentsView:
		return m.Documents.CanView
	case DocumentsDelete:
		return m.Documents.CanDelete
	case DocumentsManageAll:
		return m.Documents.CanManageAll
	case InteractionsAddObservations:
		return m.Interactions.CanAddObservations
	case InteractionsEditOwnObservations:
		return m.Interactions.CanEditOwnObservations
	case InteractionsDeleteOwnObservations:
		return m.Interactions.CanDeleteOwnObservations
	case InteractionsViewAllObservations:
		return m.Interactions.CanViewAllObservations
	case SpecialViewFinancialData:
		return m.Special.CanViewFinancialData
	case SpecialExportData:
		return m.Special.CanExportData
	case SpecialViewCrossDepartment:
		return m.Special.CanViewCrossDepartment
	case SpecialManagePermissions:
		return m.Special.CanManagePermissions
	}
	return false
}

// Granted lists the permissions set to true, in catalog order
func (m PermissionMatrix) Granted() []Permission {
	var granted []Permission
	for _, p := range AllPermissions {
		if m.Allows(p) {
			granted = append(granted, p)
		}
	}
	return granted
}
