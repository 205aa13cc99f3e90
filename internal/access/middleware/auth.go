package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CookieName is the cookie carrying the session JWT
const CookieName = "gad_auth_token"

// RoleChecker evaluates administrative role policies
type RoleChecker interface {
	Allowed(userID primitive.ObjectID, department, obj, act string) (bool, error)
}

// PermissionChecker evaluates a user's department grants
type PermissionChecker interface {
	CheckUserPermission(ctx context.Context, check services.PermissionCheck) (*services.Decision, error)
}

// AuthMiddleware provides authentication and authorization for the access endpoints
type AuthMiddleware struct {
	jwtSecret   []byte
	roles       RoleChecker
	permissions PermissionChecker
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(jwtSecret []byte, roles RoleChecker, permissions PermissionChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:   jwtSecret,
		roles:       roles,
		permissions: permissions,
	}
}

// extractToken returns the bearer token, falling back to the session cookie
func extractToken(authHeader, cookieHeader string) string {
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	for _, cookie := range strings.Split(cookieHeader, ";") {
		if token, ok := strings.CutPrefix(strings.TrimSpace(cookie), CookieName+"="); ok {
			return token
		}
	}
	return ""
}

// parseActor validates an HMAC-signed JWT whose subject is the user's ObjectID
func (m *AuthMiddleware) parseActor(tokenString string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid {
		return primitive.NilObjectID, errors.New("invalid JWT token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return primitive.NilObjectID, errors.New("JWT has no subject")
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, errors.New("JWT subject is not a user id")
	}
	return id, nil
}

// RequireAuth ensures the request carries a valid token and returns the actor
func (m *AuthMiddleware) RequireAuth(ctx context.Context, authHeader, cookieHeader string) (primitive.ObjectID, error) {
	token := extractToken(authHeader, cookieHeader)
	if token == "" {
		return primitive.NilObjectID, huma.Error401Unauthorized("Authentication required")
	}
	actor, err := m.parseActor(token)
	if err != nil {
		slog.DebugContext(ctx, "Rejected access token", "error", err)
		return primitive.NilObjectID, huma.Error401Unauthorized("Invalid authentication token")
	}
	return actor, nil
}

// RequireAccessManager allows administrators and users who may manage
// permissions in the department.
func (m *AuthMiddleware) RequireAccessManager(ctx context.Context, authHeader, cookieHeader string, department primitive.ObjectID) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, department, services.ObjectAccess, services.ActManage, true)
}

// RequireGlobalAccessManager allows only administrators whose access role
// covers every department. Department managers never qualify.
func (m *AuthMiddleware) RequireGlobalAccessManager(ctx context.Context, authHeader, cookieHeader string) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, primitive.NilObjectID, services.ObjectAccess, services.ActManage, false)
}

// RequireAccessReader allows auditors, administrators and department managers
func (m *AuthMiddleware) RequireAccessReader(ctx context.Context, authHeader, cookieHeader string, department primitive.ObjectID) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, department, services.ObjectAccess, services.ActRead, true)
}

// RequireHistoryReader allows auditors, administrators and department managers
func (m *AuthMiddleware) RequireHistoryReader(ctx context.Context, authHeader, cookieHeader string, department primitive.ObjectID) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, department, services.ObjectHistory, services.ActRead, true)
}

// RequireSelfOrReader allows users to read their own grants; anyone else
// needs a global read role.
func (m *AuthMiddleware) RequireSelfOrReader(ctx context.Context, authHeader, cookieHeader string, user primitive.ObjectID) (primitive.ObjectID, error) {
	actor, err := m.RequireAuth(ctx, authHeader, cookieHeader)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if actor == user {
		return actor, nil
	}
	ok, err := m.hasRole(actor, services.AnyDepartment, services.ObjectAccess, services.ActRead)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !ok {
		return primitive.NilObjectID, forbidden(services.ObjectAccess, services.ActRead)
	}
	return actor, nil
}

// RequireTemplateManager allows administrators to maintain templates
func (m *AuthMiddleware) RequireTemplateManager(ctx context.Context, authHeader, cookieHeader string) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, primitive.NilObjectID, services.ObjectTemplates, services.ActManage, false)
}

// RequireTemplateApplier allows template managers and department managers
func (m *AuthMiddleware) RequireTemplateApplier(ctx context.Context, authHeader, cookieHeader string, department primitive.ObjectID) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, department, services.ObjectTemplates, services.ActManage, true)
}

// RequireRoleManager allows super administrators to grant administrative roles
func (m *AuthMiddleware) RequireRoleManager(ctx context.Context, authHeader, cookieHeader string) (primitive.ObjectID, error) {
	return m.require(ctx, authHeader, cookieHeader, primitive.NilObjectID, services.ObjectRoles, services.ActManage, false)
}

func (m *AuthMiddleware) require(ctx context.Context, authHeader, cookieHeader string, department primitive.ObjectID, obj, act string, departmentManager bool) (primitive.ObjectID, error) {
	actor, err := m.RequireAuth(ctx, authHeader, cookieHeader)
	if err != nil {
		return primitive.NilObjectID, err
	}

	domain := services.AnyDepartment
	if !department.IsZero() {
		domain = department.Hex()
	}
	ok, err := m.hasRole(actor, domain, obj, act)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if ok {
		return actor, nil
	}
	if !departmentManager || department.IsZero() {
		return primitive.NilObjectID, forbidden(obj, act)
	}

	d, err := m.permissions.CheckUserPermission(ctx, services.PermissionCheck{
		UserID:       actor,
		DepartmentID: department,
		Permission:   models.SpecialManagePermissions,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to evaluate manager permission", "actor", actor.Hex(), "department", department.Hex(), "error", err)
		return primitive.NilObjectID, huma.Error500InternalServerError("Failed to evaluate permissions")
	}
	if !d.Allowed {
		return primitive.NilObjectID, forbidden(obj, act)
	}
	return actor, nil
}

func (m *AuthMiddleware) hasRole(actor primitive.ObjectID, domain, obj, act string) (bool, error) {
	ok, err := m.roles.Allowed(actor, domain, obj, act)
	if err != nil {
		slog.Error("Failed to evaluate role policy", "actor", actor.Hex(), "error", err)
		return false, huma.Error500InternalServerError("Failed to evaluate permissions")
	}
	return ok, nil
}

func forbidden(obj, act string) error {
	return huma.Error403Forbidden(fmt.Sprintf("Insufficient permissions to %s %s", act, obj))
}
