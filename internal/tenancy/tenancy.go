// Package tenancy carries the request-scoped tenant identifier through
// context.Context, using the same context-key pattern as
// internal/logging.ContextKey, applied to per-request tenant isolation
// rather than tracing.
package tenancy

import (
	"context"
	"errors"
)

// TenantID identifies a tenant. It is a plain string rather than a
// distinct defined type so repository layers can pass it straight into
// SQL query parameters without a conversion at every call site.
type TenantID = string

// ContextKey is the type for tenancy-related context keys.
type ContextKey string

// TenantIDKey is the context key under which the current tenant id is
// stored.
const TenantIDKey ContextKey = "tenant_id"

// DefaultTenant is used when no tenant has been set on the context.
const DefaultTenant = "default"

// ErrNoTenant is returned by Require when no tenant context is set.
var ErrNoTenant = errors.New("tenancy: no tenant context set")

// WithTenant returns a copy of ctx carrying tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// FromContext returns the tenant id carried by ctx, or DefaultTenant if
// none was set.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok && v != "" {
		return v
	}
	return DefaultTenant
}

// FromContextOrEmpty returns the tenant id carried by ctx, or "" if none
// was set — used where the caller must distinguish "not set" from
// "explicitly default".
func FromContextOrEmpty(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok {
		return v
	}
	return ""
}

// Require returns the tenant id carried by ctx, or ErrNoTenant if the
// middleware never ran.
func Require(ctx context.Context) (string, error) {
	v := FromContextOrEmpty(ctx)
	if v == "" {
		return "", ErrNoTenant
	}
	return v, nil
}

// Lookup returns the tenant id carried by ctx and whether one was
// explicitly set, mirroring the two-value "comma ok" idiom used
// throughout this codebase for optional context values.
func Lookup(ctx context.Context) (TenantID, bool) {
	v, ok := ctx.Value(TenantIDKey).(string)
	return v, ok && v != ""
}
