package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePermissions_DefaultTable(t *testing.T) {
	type row struct {
		create, viewAll, edit, del                bool
		docUpload, docDelete, docManageAll        bool
		financial, export, crossDepartment        bool
		deleteOwnObservations, managePermissions bool
	}

	tests := []struct {
		level AccessLevel
		want  row
	}{
		{AccessLevelOwner, row{true, false, true, true, true, true, true, true, true, false, true, true}},
		{AccessLevelRepository, row{false, true, false, false, false, false, false, true, true, true, false, false}},
		{AccessLevelContributor, row{false, false, false, false, true, false, false, false, false, false, false, false}},
		{AccessLevelObserver, row{false, false, false, false, false, false, false, false, false, false, false, false}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			m := DerivePermissions(tt.level)
			got := row{
				m.Contracts.CanCreate, m.Contracts.CanViewAll, m.Contracts.CanEdit, m.Contracts.CanDelete,
				m.Documents.CanUpload, m.Documents.CanDelete, m.Documents.CanManageAll,
				m.Special.CanViewFinancialData, m.Special.CanExportData, m.Special.CanViewCrossDepartment,
				m.Interactions.CanDeleteOwnObservations, m.Special.CanManagePermissions,
			}
			assert.Equal(t, tt.want, got)

			// Shared by every named level
			assert.True(t, m.Contracts.CanViewOwn)
			assert.True(t, m.Contracts.CanViewDepartment)
			assert.True(t, m.Documents.CanDownload)
			assert.True(t, m.Documents.CanView)
			assert.True(t, m.Interactions.CanAddObservations)
			assert.True(t, m.Interactions.CanEditOwnObservations)
			assert.True(t, m.Interactions.CanViewAllObservations)
		})
	}
}

func TestDerivePermissions_UnknownLevelFallsBackToReadOnly(t *testing.T) {
	m := DerivePermissions(AccessLevel("ADMINISTRATOR"))

	want := []Permission{
		ContractsViewOwn,
		ContractsViewDepartment,
		DocumentsDownload,
		DocumentsView,
		InteractionsViewAllObservations,
	}
	assert.Equal(t, want, m.Granted())
}

func TestPermissionMatrix_Allows(t *testing.T) {
	m := DerivePermissions(AccessLevelContributor)

	assert.True(t, m.Allows(DocumentsUpload))
	assert.False(t, m.Allows(ContractsCreate))
	assert.False(t, m.Allows(Permission{Category: "contracts", Flag: "canFly"}))
	assert.False(t, m.Allows(Permission{Category: "budget", Flag: "canView"}))
}

func TestAllows_CoversEveryCatalogEntry(t *testing.T) {
	// A matrix with every flag set must allow every catalog permission,
	// otherwise Allows is missing a case.
	var all PermissionMatrix
	all.Contracts = ContractPermissions{true, true, true, true, true, true}
	all.Documents = DocumentPermissions{true, true, true, true, true}
	all.Interactions = InteractionPermissions{true, true, true, true}
	all.Special = SpecialPermissions{true, true, true, true}

	for _, p := range AllPermissions {
		assert.True(t, all.Allows(p), p.String())
	}
	assert.Len(t, all.Granted(), len(AllPermissions))
}

func TestAccessLevel_IsValid(t *testing.T) {
	for _, level := range AccessLevels {
		assert.True(t, level.IsValid(), level)
	}
	assert.False(t, AccessLevel("").IsValid())
	assert.False(t, AccessLevel("owner").IsValid())
	assert.True(t, AccessLevelRepository.ImpliesGlobalAccess())
	assert.False(t, AccessLevelOwner.ImpliesGlobalAccess())
}
