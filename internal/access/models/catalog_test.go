package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParsePermission(t *testing.T) {
	p, ok := ParsePermission("documents", "canUpload")
	assert.True(t, ok)
	assert.Equal(t, DocumentsUpload, p)

	_, ok = ParsePermission("documents", "canupload")
	assert.False(t, ok, "flags are case sensitive")

	_, ok = ParsePermission("", "")
	assert.False(t, ok)
}

func TestSystemActions_MapToCatalog(t *testing.T) {
	for action, p := range SystemActions {
		parsed, ok := ParsePermission(string(p.Category), string(p.Flag))
		assert.True(t, ok, action)
		assert.Equal(t, p, parsed, action)
	}
	assert.Equal(t, ContractsCreate, SystemActions[ActionCreateContract])
	assert.Equal(t, SpecialViewCrossDepartment, SystemActions[ActionViewCrossDepartment])
}

func TestPermissionTemplate_AppliesTo(t *testing.T) {
	d1, d2 := primitive.NewObjectID(), primitive.NewObjectID()

	global := &PermissionTemplate{}
	assert.True(t, global.AppliesTo(d1))

	scoped := &PermissionTemplate{ApplicableDepartments: []primitive.ObjectID{d1}}
	assert.True(t, scoped.AppliesTo(d1))
	assert.False(t, scoped.AppliesTo(d2))
}
