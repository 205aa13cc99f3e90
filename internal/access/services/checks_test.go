package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCheckUserPermission_Reasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, dept, otherDept := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	env.grant(t, user, dept, models.AccessLevelContributor)

	ownContract := &models.ContractRef{ID: primitive.NewObjectID(), RequestingDepartment: dept}
	foreignContract := &models.ContractRef{ID: primitive.NewObjectID(), RequestingDepartment: otherDept}
	missing := primitive.NewObjectID()
	env.contracts.On("FindContract", mock.Anything, ownContract.ID).Return(ownContract, nil)
	env.contracts.On("FindContract", mock.Anything, foreignContract.ID).Return(foreignContract, nil)
	env.contracts.On("FindContract", mock.Anything, missing).Return(nil, nil)

	tests := []struct {
		name        string
		check       PermissionCheck
		wantAllowed bool
		wantReason  string
		wantLevel   models.AccessLevel
	}{
		{
			name:       "no record in department",
			check:      PermissionCheck{UserID: user, DepartmentID: otherDept, Permission: models.DocumentsUpload},
			wantReason: ReasonNoAccess,
		},
		{
			name:        "granted flag",
			check:       PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsUpload},
			wantAllowed: true,
			wantReason:  ReasonGranted,
			wantLevel:   models.AccessLevelContributor,
		},
		{
			name:       "denied flag",
			check:      PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.ContractsCreate},
			wantReason: ReasonDenied,
			wantLevel:  models.AccessLevelContributor,
		},
		{
			name:       "unknown flag is denied",
			check:      PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.Permission{Category: "budget", Flag: "canSpend"}},
			wantReason: ReasonDenied,
			wantLevel:  models.AccessLevelContributor,
		},
		{
			name:       "missing contract",
			check:      PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsUpload, ContractID: &missing},
			wantReason: ReasonContractNotFound,
		},
		{
			name:       "contract in another department",
			check:      PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsView, ContractID: &foreignContract.ID},
			wantReason: ReasonNoContractAccess,
			wantLevel:  models.AccessLevelContributor,
		},
		{
			name:        "contract in own department",
			check:       PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsUpload, ContractID: &ownContract.ID},
			wantAllowed: true,
			wantReason:  ReasonGranted,
			wantLevel:   models.AccessLevelContributor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := env.svc.CheckUserPermission(ctx, tt.check)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantLevel, d.AccessLevel)
		})
	}
}

func TestCheckUserPermission_StampsLastAccessed(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	rec := env.grant(t, user, dept, models.AccessLevelObserver)

	_, err := env.svc.CheckUserPermission(context.Background(), PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.ContractsCreate})
	require.NoError(t, err)
	assert.NotContains(t, env.store.touched, rec.ID, "denials do not count as access")

	_, err = env.svc.CheckUserPermission(context.Background(), PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsView})
	require.NoError(t, err)
	assert.Equal(t, env.clock.now, env.store.touched[rec.ID])
}

func TestCheckUserPermission_CacheHitCountsAsAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	rec := env.grant(t, user, dept, models.AccessLevelObserver)
	check := PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsView}
	granted := metrics.DecisionCounter(string(models.CategoryDocuments), true, ReasonGranted)

	_, err := env.svc.CheckUserPermission(ctx, check)
	require.NoError(t, err)
	before := testutil.ToFloat64(granted)

	env.clock.now = env.clock.now.Add(time.Minute)
	d, err := env.svc.CheckUserPermission(ctx, check)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, before+1, testutil.ToFloat64(granted), "cached decisions are still counted")
	assert.Equal(t, env.clock.now, env.store.touched[rec.ID], "cached grants still stamp lastAccessed")
}

func TestCheckUserPermission_CacheInvalidatedOnChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	rec := env.grant(t, user, dept, models.AccessLevelObserver)
	check := PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsUpload}

	d, err := env.svc.CheckUserPermission(ctx, check)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	_, cached := env.cache.Get(ctx, user, dept, decisionField(models.DocumentsUpload, nil))
	assert.True(t, cached)

	level := models.AccessLevelContributor
	_, err = env.svc.UpdateAccess(ctx, rec.ID, UpdateAccessParams{AccessLevel: &level}, env.admin)
	require.NoError(t, err)

	d, err = env.svc.CheckUserPermission(ctx, check)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "stale decision must not survive an update")
}

func TestCheckUserPermission_CacheTTLBoundedByEndDate(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	end := env.clock.now.Add(30 * time.Second)
	_, err := env.svc.CreateAccess(context.Background(), CreateAccessParams{
		User: user, Department: dept, AccessLevel: models.AccessLevelObserver, EndDate: &end,
	}, env.admin)
	require.NoError(t, err)

	_, err = env.svc.CheckUserPermission(context.Background(), PermissionCheck{UserID: user, DepartmentID: dept, Permission: models.DocumentsView})
	require.NoError(t, err)

	key := decisionKey(user, dept) + "|" + decisionField(models.DocumentsView, nil)
	assert.Equal(t, 30*time.Second, env.cache.ttls[key])
}

func TestCheckUserPermission_MissingContractNotCached(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	env.grant(t, user, dept, models.AccessLevelOwner)
	contractID := primitive.NewObjectID()
	env.contracts.On("FindContract", mock.Anything, contractID).Return(nil, nil)

	d, err := env.svc.CheckUserPermission(context.Background(), PermissionCheck{
		UserID: user, DepartmentID: dept, Permission: models.ContractsEdit, ContractID: &contractID,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonContractNotFound, d.Reason)

	_, cached := env.cache.Get(context.Background(), user, dept, decisionField(models.ContractsEdit, &contractID))
	assert.False(t, cached)
}

func TestCheckUserPermission_ContractLookupError(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	env.grant(t, user, dept, models.AccessLevelOwner)
	contractID := primitive.NewObjectID()
	env.contracts.On("FindContract", mock.Anything, contractID).Return(nil, errors.New("connection reset"))

	_, err := env.svc.CheckUserPermission(context.Background(), PermissionCheck{
		UserID: user, DepartmentID: dept, Permission: models.ContractsEdit, ContractID: &contractID,
	})
	assert.Error(t, err)
}

func TestCheckUserPermission_Restrictions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	limit := 10000.0
	_, err := env.svc.CreateAccess(ctx, CreateAccessParams{
		User: user, Department: dept, AccessLevel: models.AccessLevelOwner,
		Restrictions: models.Restrictions{
			AllowedContractTypes: []string{"bien"},
			MaxAmount:            &limit,
		},
	}, env.admin)
	require.NoError(t, err)

	big := 25000.0
	contract := &models.ContractRef{ID: primitive.NewObjectID(), RequestingDepartment: dept, ContractType: "bien", Amount: &big}
	env.contracts.On("FindContract", mock.Anything, contract.ID).Return(contract, nil)

	// Without request circumstances restrictions are not evaluated
	d, err := env.svc.CheckUserPermission(ctx, PermissionCheck{
		UserID: user, DepartmentID: dept, Permission: models.ContractsEdit, ContractID: &contract.ID,
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = env.svc.CheckUserPermission(ctx, PermissionCheck{
		UserID: user, DepartmentID: dept, Permission: models.ContractsEdit, ContractID: &contract.ID,
		Context: &models.RestrictionContext{At: env.clock.now},
	})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Amount exceeds allowed maximum", d.Reason)

	d, err = env.svc.CheckUserPermission(ctx, PermissionCheck{
		UserID: user, DepartmentID: dept, Permission: models.ContractsEdit,
		Context: &models.RestrictionContext{ContractType: "obra"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Contract type not allowed", d.Reason)
}

func TestBatchCheckPermissions_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	env.grant(t, user, dept, models.AccessLevelOwner)
	broken := primitive.NewObjectID()
	env.contracts.On("FindContract", mock.Anything, broken).Return(nil, errors.New("timeout"))

	results := env.svc.BatchCheckPermissions(context.Background(), user, []BatchCheckItem{
		{DepartmentID: dept, Permission: models.ContractsCreate},
		{DepartmentID: dept, Permission: models.ContractsEdit, ContractID: &broken},
		{DepartmentID: primitive.NewObjectID(), Permission: models.ContractsCreate},
	})

	require.Len(t, results, 3)
	require.NotNil(t, results[0].Decision)
	assert.True(t, results[0].Decision.Allowed)
	assert.Equal(t, "contracts.canCreate", results[0].Permission)

	assert.Nil(t, results[1].Decision)
	assert.NotEmpty(t, results[1].Error)

	require.NotNil(t, results[2].Decision)
	assert.Equal(t, ReasonNoAccess, results[2].Decision.Reason)
}

func TestCanPerformSystemAction(t *testing.T) {
	env := newTestEnv(t)
	user, dept := primitive.NewObjectID(), primitive.NewObjectID()
	env.grant(t, user, dept, models.AccessLevelRepository)

	d, err := env.svc.CanPerformSystemAction(context.Background(), user, dept, models.ActionExportData, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = env.svc.CanPerformSystemAction(context.Background(), user, dept, models.ActionCreateContract, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = env.svc.CanPerformSystemAction(context.Background(), user, dept, "approve_payment", nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnknownAction, d.Reason)
}
