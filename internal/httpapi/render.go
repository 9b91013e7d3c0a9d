package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/titan-aas/titan-aas/internal/apierrors"
)

const maxDecodeBytes = 8 << 20

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err through the shared apierrors envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierrors.GetHTTPStatus(err)
	writeJSON(w, status, apierrors.ToResult(err))
}

// writeCanonical writes already-canonicalized bytes verbatim, since
// they are already valid, deterministic JSON.
func writeCanonical(w http.ResponseWriter, status int, etag string, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	if etag != "" {
		w.Header().Set("ETag", `"`+etag+`"`)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// decodeJSONBody reads and decodes r's body into v, capping the read
// to maxDecodeBytes and rejecting unknown fields so malformed requests
// fail fast with a 400 rather than silently dropping data.
func decodeJSONBody(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxDecodeBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierrors.BadRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

// readLimited reads r's body verbatim, capped at maxDecodeBytes, for
// handlers that need the raw bytes (merge-patch documents, $value
// payloads) rather than a decoded struct.
func readLimited(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDecodeBytes))
	if err != nil {
		return nil, apierrors.BadRequest("failed to read request body: " + err.Error())
	}
	return body, nil
}
