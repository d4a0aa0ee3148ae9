package storage

import "context"

// tenantKey is a private context key type, preventing collisions with
// other packages.
type tenantKey struct{}

// SetTenant injects a tenant identifier into the context. Every request
// handled by the admin console or storefront carries one; background jobs
// set it per unit of work.
func SetTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFrom extracts the tenant identifier from the context. Returns an
// empty string if no tenant is set (single-tenant mode).
func TenantFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}
