package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/ratelimit"
)

// RateLimit rejects requests once the caller (identified by bearer
// token hash, falling back to client IP) exceeds limiter's budget. A
// nil limiter disables the middleware.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfterSeconds, err := limiter.Allow(r.Context(), rateLimitKey(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
				WriteError(w, r, apierrors.TooManyRequests(retryAfterSeconds))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		sum := sha256.Sum256([]byte(strings.TrimPrefix(header, "Bearer ")))
		return "token:" + hex.EncodeToString(sum[:])
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
