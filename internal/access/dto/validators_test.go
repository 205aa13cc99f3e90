package dto

import (
	"strings"
	"testing"
	"time"

	"gad-esmeraldas/internal/access/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateStruct_CreateAccess(t *testing.T) {
	validate, err := NewValidator()
	require.NoError(t, err)

	valid := CreateAccessRequest{
		User:        primitive.NewObjectID().Hex(),
		Department:  primitive.NewObjectID().Hex(),
		AccessLevel: "OWNER",
		ViewableDepartments: []ViewableDepartmentRequest{
			{Department: primitive.NewObjectID().Hex(), AccessLevel: "READ_ONLY"},
		},
	}
	assert.Empty(t, ValidateStruct(validate, valid))

	tests := []struct {
		name   string
		mutate func(r *CreateAccessRequest)
		want   string
	}{
		{"missing user", func(r *CreateAccessRequest) { r.User = "" }, "user is required"},
		{"bad user id", func(r *CreateAccessRequest) { r.User = "42" }, "user must be a valid ObjectID"},
		{"zero department id", func(r *CreateAccessRequest) { r.Department = primitive.NilObjectID.Hex() }, "department must be a valid ObjectID"},
		{"unknown level", func(r *CreateAccessRequest) { r.AccessLevel = "SUPERVISOR" }, "accessLevel must be one of"},
		{"bad cross level", func(r *CreateAccessRequest) { r.ViewableDepartments[0].AccessLevel = "FULL" }, "viewableDepartments[0].accessLevel must be one of READ_ONLY"},
		{"negative expiry", func(r *CreateAccessRequest) { r.AutoExpireAfterDays = -1 }, "autoExpireAfterDays must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.ViewableDepartments = append([]ViewableDepartmentRequest(nil), valid.ViewableDepartments...)
			tt.mutate(&r)
			msgs := ValidateStruct(validate, r)
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], tt.want)
		})
	}
}

func TestValidateStruct_Templates(t *testing.T) {
	validate, err := NewValidator()
	require.NoError(t, err)

	assert.Empty(t, ValidateStruct(validate, TemplateRequest{Name: "  Revisor ", DefaultAccessLevel: "OBSERVER"}))
	assert.NotEmpty(t, ValidateStruct(validate, TemplateRequest{Name: " ab ", DefaultAccessLevel: "OBSERVER"}))
	assert.NotEmpty(t, ValidateStruct(validate, TemplateRequest{Name: strings.Repeat("n", 101), DefaultAccessLevel: "OBSERVER"}))

	empty := ""
	assert.NotEmpty(t, ValidateStruct(validate, UpdateTemplateRequest{Name: &empty}))
	assert.Empty(t, ValidateStruct(validate, UpdateTemplateRequest{}))
}

func TestValidateStruct_TransferOwnership(t *testing.T) {
	validate, err := NewValidator()
	require.NoError(t, err)

	same := primitive.NewObjectID().Hex()
	msgs := ValidateStruct(validate, TransferOwnershipRequest{FromUser: same, ToUser: same})
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "toUser must differ")
}

func TestToPermissionCheck(t *testing.T) {
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	contract := primitive.NewObjectID()
	req := CheckPermissionRequest{
		User:       primitive.NewObjectID().Hex(),
		Department: primitive.NewObjectID().Hex(),
		Category:   "documents",
		Permission: "canUpload",
		ContractID: contract.Hex(),
		Context:    &CheckContext{IP: "10.0.0.7"},
	}

	check, err := req.ToPermissionCheck(at)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentsUpload, check.Permission)
	require.NotNil(t, check.ContractID)
	assert.Equal(t, contract, *check.ContractID)
	require.NotNil(t, check.Context)
	assert.Equal(t, at, check.Context.At)
	assert.Equal(t, "10.0.0.7", check.Context.IP)

	req.Context = nil
	req.Permission = "canSign"
	check, err = req.ToPermissionCheck(at)
	require.NoError(t, err)
	assert.Nil(t, check.Context)
	assert.Equal(t, models.Flag("canSign"), check.Permission.Flag)
}

func TestToUpdateParams_ViewableNilVersusEmpty(t *testing.T) {
	params, err := UpdateAccessRequest{}.ToUpdateParams()
	require.NoError(t, err)
	assert.Nil(t, params.ViewableDepartments, "omitted list leaves grants unchanged")

	params, err = UpdateAccessRequest{ViewableDepartments: []ViewableDepartmentRequest{}}.ToUpdateParams()
	require.NoError(t, err)
	assert.NotNil(t, params.ViewableDepartments, "empty list clears grants")
	assert.Empty(t, params.ViewableDepartments)
}
