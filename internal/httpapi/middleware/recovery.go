// Package middleware provides the HTTP middleware stack for
// internal/httpapi: panic recovery, request logging, security headers,
// body-size limiting, request timeouts, CORS, rate limiting, and
// bearer-token authentication.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/logging"
)

// Recovery recovers from panics in downstream handlers, logs the stack
// trace, and renders a 500 Result envelope instead of crashing the
// server.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					}).Error("panic recovered")

					WriteError(w, r, apierrors.Internal("internal server error", fmt.Errorf("%v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
