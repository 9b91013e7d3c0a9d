package httpapi

import (
	"net/http"

	"github.com/titan-aas/titan-aas/internal/apierrors"
)

// lookupHandlers implements the registry discovery endpoints: finding
// shell/submodel descriptors by asset id or semantic id without
// fetching the full entity.
type lookupHandlers struct {
	deps Deps
}

func (h *lookupHandlers) shells(w http.ResponseWriter, r *http.Request) {
	opts := parseListOptions(r)
	page, err := h.deps.ShellDescriptors.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, apierrors.Internal("lookup shells", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse(page))
}

func (h *lookupHandlers) submodels(w http.ResponseWriter, r *http.Request) {
	opts := parseListOptions(r)
	page, err := h.deps.SubmodelDescriptors.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, apierrors.Internal("lookup submodels", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse(page))
}
