package middleware

import "net/http"

const defaultMaxRequestBodyBytes int64 = 8 << 20 // 8MiB

// BodyLimit caps request bodies to maxBytes (defaulting to 8MiB),
// applying http.MaxBytesReader so decoders cannot read past the limit.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
