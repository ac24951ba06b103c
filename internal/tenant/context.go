package tenant

import (
	"context"

	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
)

type ctxKey string

const contextTenantKey ctxKey = "authenticatedTenant"

// ContextWithTenant attaches the authenticated tenant to the request
// context. The auth layer is the only writer; handlers read the typed value
// back instead of mutating the request.
func ContextWithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, contextTenantKey, t)
}

func TenantFromContext(ctx context.Context) (*tenant.Tenant, bool) {
	t, ok := ctx.Value(contextTenantKey).(*tenant.Tenant)
	return t, ok && t != nil
}
