package tenancy

import "net/http"

// HeaderName is the HTTP header carrying the caller's tenant id.
const HeaderName = "X-Tenant-Id"

// Middleware resolves the tenant id from the X-Tenant-Id header (falling
// back to DefaultTenant when absent) and stores it on the request context
// for every downstream handler and repository call to read via
// FromContext.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(HeaderName)
		if tenantID == "" {
			tenantID = DefaultTenant
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenantID)))
	})
}
