package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/titan-aas/titan-aas/internal/apierrors"
)

// WriteError renders err as the IDTA Result envelope with the
// appropriate HTTP status. Shared by every middleware that can reject
// a request outright (recovery, auth, rate limiting).
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	result := apierrors.ToResult(err)
	status := apierrors.GetHTTPStatus(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
