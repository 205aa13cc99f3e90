package services

import (
	"fmt"
	"log/slog"

	"gad-esmeraldas/pkg/database"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	mongodbadapter "github.com/casbin/mongodb-adapter/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Administrative roles held independently of any department grant
const (
	RoleSuperAdmin  = "role:super_admin"
	RoleAccessAdmin = "role:access_admin"
	RoleAuditor     = "role:auditor"
)

// Objects and actions of administrative policies
const (
	ObjectAccess    = "access"
	ObjectTemplates = "templates"
	ObjectHistory   = "history"
	ObjectRoles     = "roles"

	ActRead   = "read"
	ActManage = "manage"

	// AnyDepartment is the policy domain matching every department
	AnyDepartment = "*"
)

const PolicyCollection = "casbin_policies"

// A policy domain of "*" covers all departments; an action of "*" covers all actions.
const adminModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.dom == "*" || r.dom == p.dom) && r.obj == p.obj && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{RoleSuperAdmin, AnyDepartment, ObjectAccess, "*"},
	{RoleSuperAdmin, AnyDepartment, ObjectTemplates, "*"},
	{RoleSuperAdmin, AnyDepartment, ObjectHistory, "*"},
	{RoleSuperAdmin, AnyDepartment, ObjectRoles, "*"},
	{RoleAccessAdmin, AnyDepartment, ObjectAccess, ActManage},
	{RoleAccessAdmin, AnyDepartment, ObjectAccess, ActRead},
	{RoleAccessAdmin, AnyDepartment, ObjectTemplates, ActManage},
	{RoleAccessAdmin, AnyDepartment, ObjectHistory, ActRead},
	{RoleAuditor, AnyDepartment, ObjectAccess, ActRead},
	{RoleAuditor, AnyDepartment, ObjectHistory, ActRead},
}

// AdminAuthorizer decides who may administer access records. It covers
// global administrative roles only; department owners are authorized from
// their own access record.
type AdminAuthorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAdminAuthorizer creates an authorizer whose policies persist in MongoDB
func NewAdminAuthorizer(mongodb *database.MongoDB, superAdminUserID string) (*AdminAuthorizer, error) {
	adapter, err := mongodbadapter.NewAdapterByDB(mongodb.Client, &mongodbadapter.AdapterConfig{
		DatabaseName:   mongodb.Database.Name(),
		CollectionName: PolicyCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin MongoDB adapter: %w", err)
	}

	m, err := model.NewModelFromString(adminModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load Casbin policies: %w", err)
	}

	a := &AdminAuthorizer{enforcer: enforcer}
	if err := a.bootstrap(superAdminUserID); err != nil {
		return nil, err
	}

	slog.Info("[Access] Admin authorizer initialized", "adapter", "mongodb", "collection", PolicyCollection)
	return a, nil
}

// NewMemoryAdminAuthorizer creates an authorizer with in-process policies only
func NewMemoryAdminAuthorizer(superAdminUserID string) (*AdminAuthorizer, error) {
	m, err := model.NewModelFromString(adminModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}

	a := &AdminAuthorizer{enforcer: enforcer}
	if err := a.bootstrap(superAdminUserID); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AdminAuthorizer) bootstrap(superAdminUserID string) error {
	for _, p := range defaultPolicies {
		if _, err := a.enforcer.AddPolicy(p[0], p[1], p[2], p[3]); err != nil {
			return fmt.Errorf("failed to add default policy %v: %w", p, err)
		}
	}

	if superAdminUserID == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(superAdminUserID)
	if err != nil {
		return fmt.Errorf("invalid SUPER_ADMIN_USER_ID: %w", err)
	}
	return a.GrantRole(id, RoleSuperAdmin)
}

func subject(userID primitive.ObjectID) string {
	return "user:" + userID.Hex()
}

// Allowed reports whether the user's administrative roles permit act on obj
// in the department. Pass AnyDepartment for department-independent objects.
func (a *AdminAuthorizer) Allowed(userID primitive.ObjectID, department, obj, act string) (bool, error) {
	ok, err := a.enforcer.Enforce(subject(userID), department, obj, act)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	return ok, nil
}

// GrantRole gives a user an administrative role
func (a *AdminAuthorizer) GrantRole(userID primitive.ObjectID, role string) error {
	if _, err := a.enforcer.AddGroupingPolicy(subject(userID), role); err != nil {
		return fmt.Errorf("failed to grant role %s: %w", role, err)
	}
	return nil
}

// RevokeRole removes an administrative role from a user
func (a *AdminAuthorizer) RevokeRole(userID primitive.ObjectID, role string) error {
	if _, err := a.enforcer.RemoveGroupingPolicy(subject(userID), role); err != nil {
		return fmt.Errorf("failed to revoke role %s: %w", role, err)
	}
	return nil
}

// RolesFor lists the administrative roles held by a user
func (a *AdminAuthorizer) RolesFor(userID primitive.ObjectID) ([]string, error) {
	return a.enforcer.GetRolesForUser(subject(userID))
}
