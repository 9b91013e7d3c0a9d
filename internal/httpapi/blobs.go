package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/blobstore"
)

// blobHandlers serves externalized Blob/File content by its opaque
// /blobs/{id} reference.
type blobHandlers struct {
	deps Deps
}

func (h *blobHandlers) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.deps.BlobMeta == nil || h.deps.Blobs == nil {
		writeError(w, r, apierrors.NotFound("blob", id))
		return
	}

	meta, err := h.deps.BlobMeta.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, blobstore.ErrMetadataNotFound) {
			writeError(w, r, apierrors.NotFound("blob", id))
			return
		}
		writeError(w, r, apierrors.Internal("look up blob metadata", err))
		return
	}

	rc, err := h.deps.Blobs.Stream(r.Context(), meta)
	if err != nil {
		writeError(w, r, apierrors.Internal("stream blob", err))
		return
	}
	defer rc.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if meta.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
