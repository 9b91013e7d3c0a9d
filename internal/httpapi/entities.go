package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/canonical"
	"github.com/titan-aas/titan-aas/internal/codec"
	"github.com/titan-aas/titan-aas/internal/domain"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/logging"
	"github.com/titan-aas/titan-aas/internal/storage"
)

// firstKeyValue returns the value of ref's first key, or "" if ref is
// nil or empty — used to index a submodel by its semanticId.
func firstKeyValue(ref *domain.Reference) string {
	if ref == nil || len(ref.Keys) == 0 {
		return ""
	}
	return ref.Keys[0].Value
}

// entityDoc is satisfied by every top-level identifiable AAS entity
// (AssetAdministrationShell, Submodel, ConceptDescription, and their
// descriptor variants) via their embedded domain.Identifiable.
type entityDoc interface {
	GetID() string
	Validate() error
}

// entityHandlers implements the generic CRUD surface shared by
// /shells, /submodels, and /concept-descriptions: decode, validate,
// canonicalize, store, cache-invalidate via the event bus, and render
// back through the conditional-request contract.
type entityHandlers[T entityDoc] struct {
	repo        storage.Repository
	cache       cache.Cache
	cacheKind   cache.EntityKind
	bus         eventbus.Bus
	busKind     eventbus.Kind
	logger      *logging.Logger
	indexed     func(T) storage.IndexedFields
	resource    string
	externalize func(r *http.Request, doc *T) error
	onDelete    func(r *http.Request, id string)
}

func newEntityHandlers[T entityDoc](resource string, repo storage.Repository, c cache.Cache, ck cache.EntityKind, bus eventbus.Bus, bk eventbus.Kind, logger *logging.Logger, indexed func(T) storage.IndexedFields) *entityHandlers[T] {
	return &entityHandlers[T]{resource: resource, repo: repo, cache: c, cacheKind: ck, bus: bus, busKind: bk, logger: logger, indexed: indexed}
}

func (h *entityHandlers[T]) publish(r *http.Request, eventType eventbus.EventType, idB64 string, docBytes []byte, etag string) {
	event := eventbus.Event{
		EventID:       uuid.New().String(),
		Kind:          h.busKind,
		Type:          eventType,
		IdentifierB64: idB64,
		DocBytes:      docBytes,
		ETag:          etag,
		Timestamp:     time.Now(),
	}
	if err := h.bus.Publish(r.Context(), event); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("publish entity event failed")
	}
}

func (h *entityHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var doc T
	if err := decodeJSONBody(r, &doc); err != nil {
		writeError(w, r, err)
		return
	}
	if err := doc.Validate(); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	if h.externalize != nil {
		if err := h.externalize(r, &doc); err != nil {
			writeError(w, r, apierrors.Internal("externalize blob values", err))
			return
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		writeError(w, r, apierrors.Internal("encode entity", err))
		return
	}
	canonicalBytes, err := canonical.Canonicalize(raw)
	if err != nil {
		writeError(w, r, apierrors.BadRequest("invalid document: "+err.Error()))
		return
	}
	etag := canonical.ETag(canonicalBytes)
	idB64 := codec.Encode(doc.GetID())

	if err := h.repo.Create(r.Context(), doc.GetID(), canonicalBytes, etag, h.indexed(doc)); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, r, apierrors.Conflict(h.resource+" "+doc.GetID()+" already exists"))
			return
		}
		writeError(w, r, apierrors.Internal("create "+h.resource, err))
		return
	}

	h.publish(r, eventbus.EventCreated, idB64, canonicalBytes, etag)
	h.logger.LogMutation(r.Context(), h.resource, doc.GetID(), etag)
	writeCanonical(w, http.StatusCreated, etag, canonicalBytes)
}

func (h *entityHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.fetch(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if checkIfNoneMatch(r, rec.ETag) {
		w.Header().Set("ETag", quotedETag(rec.ETag))
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeCanonical(w, http.StatusOK, rec.ETag, rec.CanonicalBytes)
}

func (h *entityHandlers[T]) fetch(r *http.Request, id string) (storage.Record, error) {
	idB64 := codec.Encode(id)
	if h.cache != nil {
		if pair, ok, err := h.cache.GetPair(r.Context(), h.cacheKind, idB64); err == nil && ok {
			return storage.Record{ID: id, CanonicalBytes: pair.Bytes, ETag: pair.ETag}, nil
		}
	}
	return h.repo.Get(r.Context(), id)
}

func (h *entityHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	opts := parseListOptions(r)
	page, err := h.repo.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, apierrors.Internal("list "+h.resource, err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse(page))
}

func (h *entityHandlers[T]) replace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var doc T
	if err := decodeJSONBody(r, &doc); err != nil {
		writeError(w, r, err)
		return
	}
	if err := doc.Validate(); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	if doc.GetID() != id {
		writeError(w, r, apierrors.BadRequest("body id does not match path id"))
		return
	}
	if h.externalize != nil {
		if err := h.externalize(r, &doc); err != nil {
			writeError(w, r, apierrors.Internal("externalize blob values", err))
			return
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		writeError(w, r, apierrors.Internal("encode entity", err))
		return
	}
	canonicalBytes, err := canonical.Canonicalize(raw)
	if err != nil {
		writeError(w, r, apierrors.BadRequest("invalid document: "+err.Error()))
		return
	}
	etag := canonical.ETag(canonicalBytes)
	ifMatch := r.Header.Get("If-Match")

	if err := h.repo.Replace(r.Context(), id, canonicalBytes, etag, ifMatch, h.indexed(doc)); err != nil {
		writeError(w, r, repoErrToAPIErr(err, h.resource, id))
		return
	}

	idB64 := codec.Encode(id)
	h.publish(r, eventbus.EventUpdated, idB64, canonicalBytes, etag)
	h.logger.LogMutation(r.Context(), h.resource, id, etag)
	w.Header().Set("ETag", quotedETag(etag))
	w.WriteHeader(http.StatusNoContent)
}

func (h *entityHandlers[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ifMatch := r.Header.Get("If-Match")
	if err := h.repo.Delete(r.Context(), id, ifMatch); err != nil {
		writeError(w, r, repoErrToAPIErr(err, h.resource, id))
		return
	}
	if h.onDelete != nil {
		h.onDelete(r, id)
	}
	idB64 := codec.Encode(id)
	h.publish(r, eventbus.EventDeleted, idB64, nil, "")
	h.logger.LogMutation(r.Context(), h.resource, id, "")
	w.WriteHeader(http.StatusNoContent)
}

// pathID decodes the {id} route parameter as a base64url identifier.
func pathID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := codec.Decode(raw)
	if err != nil {
		return "", apierrors.InvalidBase64Url(raw)
	}
	return id, nil
}

// repoErrToAPIErr maps a storage sentinel error to the matching
// apierrors constructor.
func repoErrToAPIErr(err error, resource, id string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apierrors.NotFound(resource, id)
	case errors.Is(err, storage.ErrPreconditionFailed):
		return apierrors.PreconditionFailed("current ETag", "")
	default:
		return apierrors.Internal("operate on "+resource, err)
	}
}

type listPageResponse struct {
	Result     []interface{} `json:"result"`
	PagingMeta pagingMeta    `json:"paging_metadata"`
}

type pagingMeta struct {
	Cursor string `json:"cursor,omitempty"`
}

func listResponse(page storage.ListPage) listPageResponse {
	items := make([]interface{}, 0, len(page.Items))
	for _, rec := range page.Items {
		v, err := canonical.Parse(rec.CanonicalBytes)
		if err != nil {
			continue
		}
		items = append(items, v)
	}
	return listPageResponse{Result: items, PagingMeta: pagingMeta{Cursor: page.NextCursor}}
}
