package shared

import (
	"context"

	"github.com/google/uuid"
)

type tenantContextKey struct{}

// ContextWithTenant stores the tenant id in context.
func ContextWithTenant(ctx context.Context, tenant uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant id from context.
// The zero UUID means no tenant was resolved.
func TenantFromContext(ctx context.Context) uuid.UUID {
	tenant, _ := ctx.Value(tenantContextKey{}).(uuid.UUID)
	return tenant
}
