package dto

import (
	"testing"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBatchItems_MalformedEntriesAreIsolated(t *testing.T) {
	dept := primitive.NewObjectID()
	contract := primitive.NewObjectID()
	body := BatchCheckRequest{
		User: primitive.NewObjectID().Hex(),
		Checks: []BatchCheckItemRequest{
			{Department: "not-a-department", Category: "documents", Permission: "canView"},
			{Department: dept.Hex(), Category: "documents", Permission: "canUpload"},
			{Department: dept.Hex(), Category: "contracts", Permission: "canEdit", ContractID: "42"},
			{Department: dept.Hex(), Category: "contracts", Permission: "canEdit", ContractID: contract.Hex()},
		},
	}

	validate, err := NewValidator()
	require.NoError(t, err)
	assert.Empty(t, ValidateStruct(validate, body), "malformed IDs must not reject the whole batch")

	user, items, rejected, err := body.ToBatchItems()
	require.NoError(t, err)
	assert.False(t, user.IsZero())

	require.Len(t, items, 2)
	assert.Equal(t, models.DocumentsUpload, items[0].Permission)
	require.NotNil(t, items[1].ContractID)
	assert.Equal(t, contract, *items[1].ContractID)

	require.Len(t, rejected, 2)
	assert.Contains(t, rejected[0].Error, "department")
	assert.Equal(t, "documents.canView", rejected[0].Permission)
	assert.Contains(t, rejected[2].Error, "contractId")
	assert.Equal(t, "42", rejected[2].ContractID)

	results := []services.BatchCheckResult{
		{DepartmentID: dept, Permission: "documents.canUpload", Decision: &services.Decision{Allowed: true, Reason: services.ReasonGranted}},
		{DepartmentID: dept, Permission: "contracts.canEdit", ContractID: &contract, Error: "failed to load contract: timeout"},
	}
	merged := MergeBatchResponses(len(body.Checks), results, rejected)
	require.Len(t, merged, 4)
	assert.NotEmpty(t, merged[0].Error)
	require.NotNil(t, merged[1].Decision)
	assert.True(t, merged[1].Decision.Allowed)
	assert.NotEmpty(t, merged[2].Error)
	assert.Equal(t, contract.Hex(), merged[3].ContractID)
	assert.Equal(t, "failed to load contract: timeout", merged[3].Error)
}

func TestToBatchItems_InvalidUserFailsRequest(t *testing.T) {
	body := BatchCheckRequest{
		User:   "nobody",
		Checks: []BatchCheckItemRequest{{Department: primitive.NewObjectID().Hex(), Category: "documents", Permission: "canView"}},
	}
	_, _, _, err := body.ToBatchItems()
	assert.Error(t, err)
}
