package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/domain"
)

type contextKey string

const (
	ContextKeyTenantID contextKey = "tenant_id"
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserRole contextKey = "role"
)

func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyTenantID).(uuid.UUID)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}

// ScopeFromContext assembles the principal injected by Auth. Both tenant and
// user must be present and non-nil.
func ScopeFromContext(ctx context.Context) (domain.Scope, bool) {
	tenantID, ok := TenantIDFromContext(ctx)
	if !ok || tenantID == uuid.Nil {
		return domain.Scope{}, false
	}
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID == uuid.Nil {
		return domain.Scope{}, false
	}
	role, _ := RoleFromContext(ctx)

	return domain.Scope{TenantID: tenantID, UserID: userID, Role: domain.Role(role)}, true
}

// WithScope stores scope in ctx the same way Auth does.
func WithScope(ctx context.Context, scope domain.Scope) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTenantID, scope.TenantID)
	ctx = context.WithValue(ctx, ContextKeyUserID, scope.UserID)
	ctx = context.WithValue(ctx, ContextKeyUserRole, string(scope.Role))
	return ctx
}
