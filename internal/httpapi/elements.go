package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/canonical"
	"github.com/titan-aas/titan-aas/internal/codec"
	"github.com/titan-aas/titan-aas/internal/domain"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/jobqueue"
	"github.com/titan-aas/titan-aas/internal/projection"
	"github.com/titan-aas/titan-aas/internal/storage"
)

// elementHandlers implements navigation and mutation of the nested
// SubmodelElement tree beneath a Submodel, addressed by idShortPath.
// Every mutation reads the whole Submodel, edits the in-memory tree,
// and writes the whole document back — there is no per-element
// storage row, only the per-element cache entries singlewriter
// maintains from the published event.
type elementHandlers struct {
	deps Deps
}

func (h *elementHandlers) loadSubmodel(r *http.Request, id string) (domain.Submodel, storage.Record, error) {
	rec, err := h.deps.Submodels.Get(r.Context(), id)
	if err != nil {
		return domain.Submodel{}, storage.Record{}, err
	}
	var sm domain.Submodel
	if err := json.Unmarshal(rec.CanonicalBytes, &sm); err != nil {
		return domain.Submodel{}, storage.Record{}, err
	}
	return sm, rec, nil
}

func (h *elementHandlers) save(r *http.Request, id string, sm domain.Submodel, ifMatch string) (string, []byte, error) {
	raw, err := json.Marshal(sm)
	if err != nil {
		return "", nil, err
	}
	canonicalBytes, err := canonical.Canonicalize(raw)
	if err != nil {
		return "", nil, err
	}
	etag := canonical.ETag(canonicalBytes)
	sem := firstKeyValue(sm.SemanticId)
	if err := h.deps.Submodels.Replace(r.Context(), id, canonicalBytes, etag, ifMatch, storage.IndexedFields{SemanticID: sem}); err != nil {
		return "", nil, err
	}
	return etag, canonicalBytes, nil
}

func (h *elementHandlers) publishElement(r *http.Request, submodelID, idShortPath string, eventType eventbus.EventType, valueBytes []byte) {
	event := eventbus.Event{
		EventID:       uuid.New().String(),
		Kind:          eventbus.KindSubmodelElement,
		Type:          eventType,
		SubmodelIDB64: codec.Encode(submodelID),
		IDShortPath:   idShortPath,
		ValueBytes:    valueBytes,
		Timestamp:     time.Now(),
	}
	if err := h.deps.Bus.Publish(r.Context(), event); err != nil {
		h.deps.Logger.WithContext(r.Context()).WithError(err).Warn("publish element event failed")
	}
	event.Kind = eventbus.KindSubmodel
	event.Type = eventbus.EventUpdated
	event.IdentifierB64 = codec.Encode(submodelID)
	_ = h.deps.Bus.Publish(r.Context(), event)
}

func (h *elementHandlers) listTopLevel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sm, _, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	mods := parseModifiers(r)
	out := make([]interface{}, 0, len(sm.SubmodelElements))
	for _, el := range sm.SubmodelElements {
		projected, err := projection.Apply(el, mods)
		if err != nil {
			writeError(w, r, apierrors.Internal("project element", err))
			return
		}
		out = append(out, projected)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": out})
}

func (h *elementHandlers) createTopLevel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var el domain.SubmodelElement
	if err := decodeJSONBody(r, &el); err != nil {
		writeError(w, r, err)
		return
	}
	if err := el.Validate(false); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}

	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	for _, existing := range sm.SubmodelElements {
		if existing.IdShort == el.IdShort {
			writeError(w, r, apierrors.Conflict("submodel element "+el.IdShort+" already exists"))
			return
		}
	}
	sm.SubmodelElements = append(sm.SubmodelElements, el)

	_, _, err = h.save(r, id, sm, rec.ETag)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	valueBytes, _ := json.Marshal(el)
	h.publishElement(r, id, el.IdShort, eventbus.EventUpdated, valueBytes)
	writeJSON(w, http.StatusCreated, el)
}

func (h *elementHandlers) navigate(r *http.Request) (domain.Submodel, storage.Record, *domain.SubmodelElement, error) {
	id, err := pathID(r)
	if err != nil {
		return domain.Submodel{}, storage.Record{}, nil, err
	}
	path := chi.URLParam(r, "path")
	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		return domain.Submodel{}, storage.Record{}, nil, repoErrToAPIErr(err, "submodel", id)
	}
	el, err := projection.NavigateSubmodel(sm, path)
	if err != nil {
		if errors.Is(err, projection.ErrNotFound) {
			return sm, rec, nil, apierrors.NotFound("submodel element", path)
		}
		return sm, rec, nil, apierrors.BadRequest(err.Error())
	}
	return sm, rec, el, nil
}

func (h *elementHandlers) get(w http.ResponseWriter, r *http.Request) {
	_, _, el, err := h.navigate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mods := parseModifiers(r)
	projected, err := projection.Apply(*el, mods)
	if err != nil {
		writeError(w, r, apierrors.Internal("project element", err))
		return
	}
	writeJSON(w, http.StatusOK, projected)
}

func (h *elementHandlers) getValue(w http.ResponseWriter, r *http.Request) {
	_, _, el, err := h.navigate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.ExtractValue(*el))
}

// resolveParent walks segs against elements (a pointer to the slice
// owning the addressed element's position) and returns the innermost
// slice and index the final segment resolves to, so callers can read,
// replace, or delete in place. Only SubmodelElementCollection/List
// nesting is followed — the predominant nested-container shape.
func resolveParent(elements *[]domain.SubmodelElement, segs []projection.Segment) (*[]domain.SubmodelElement, int, error) {
	if len(segs) == 0 {
		return nil, 0, projection.ErrNotFound
	}
	idx, err := findIndex(*elements, segs[0])
	if err != nil {
		return nil, 0, err
	}
	if len(segs) == 1 {
		return elements, idx, nil
	}
	child := &(*elements)[idx]
	switch child.ModelType {
	case domain.ModelTypeSubmodelElementCollection, domain.ModelTypeSubmodelElementList:
	default:
		return nil, 0, projection.ErrNotFound
	}
	return resolveParent(&child.Value_, segs[1:])
}

func findIndex(elements []domain.SubmodelElement, seg projection.Segment) (int, error) {
	if seg.IsIdx {
		if seg.Index < 0 || seg.Index >= len(elements) {
			return 0, projection.ErrNotFound
		}
		return seg.Index, nil
	}
	for i, e := range elements {
		if e.IdShort == seg.Name {
			return i, nil
		}
	}
	return 0, projection.ErrNotFound
}

func (h *elementHandlers) replace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")

	var newEl domain.SubmodelElement
	if err := decodeJSONBody(r, &newEl); err != nil {
		writeError(w, r, err)
		return
	}
	if err := newEl.Validate(false); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}

	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	segs, err := projection.ParsePath(path)
	if err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	parent, idx, err := resolveParent(&sm.SubmodelElements, segs)
	if err != nil {
		writeError(w, r, apierrors.NotFound("submodel element", path))
		return
	}
	(*parent)[idx] = newEl

	if _, _, err := h.save(r, id, sm, rec.ETag); err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	valueBytes, _ := json.Marshal(newEl)
	h.publishElement(r, id, path, eventbus.EventUpdated, valueBytes)
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *elementHandlers) patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")
	patchBody, err := readLimited(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	segs, err := projection.ParsePath(path)
	if err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	parent, idx, err := resolveParent(&sm.SubmodelElements, segs)
	if err != nil {
		writeError(w, r, apierrors.NotFound("submodel element", path))
		return
	}

	current, err := json.Marshal((*parent)[idx])
	if err != nil {
		writeError(w, r, apierrors.Internal("encode element", err))
		return
	}
	merged, err := jsonpatch.MergePatch(current, patchBody)
	if err != nil {
		writeError(w, r, apierrors.BadRequest("invalid merge patch: "+err.Error()))
		return
	}
	var patched domain.SubmodelElement
	if err := json.Unmarshal(merged, &patched); err != nil {
		writeError(w, r, apierrors.BadRequest("patched element is invalid: "+err.Error()))
		return
	}
	if err := patched.Validate(false); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	(*parent)[idx] = patched

	if _, _, err := h.save(r, id, sm, rec.ETag); err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	h.publishElement(r, id, path, eventbus.EventUpdated, merged)
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *elementHandlers) patchValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")
	valueBody, err := readLimited(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	segs, err := projection.ParsePath(path)
	if err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	parent, idx, err := resolveParent(&sm.SubmodelElements, segs)
	if err != nil {
		writeError(w, r, apierrors.NotFound("submodel element", path))
		return
	}
	if err := setValue(&(*parent)[idx], valueBody); err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}

	if _, _, err := h.save(r, id, sm, rec.ETag); err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	h.publishElement(r, id, path, eventbus.EventUpdated, valueBody)
	writeJSON(w, http.StatusNoContent, nil)
}

// setValue applies the content=value wire shape back onto el,
// inverting projection.ExtractValue for the scalar variants a client
// is expected to PATCH.
func setValue(el *domain.SubmodelElement, raw []byte) error {
	switch el.ModelType {
	case domain.ModelTypeProperty:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		el.Value = &s
	case domain.ModelTypeMultiLanguageProperty:
		var langs []domain.LangString
		if err := json.Unmarshal(raw, &langs); err != nil {
			return err
		}
		el.LangStringValue = langs
	case domain.ModelTypeRange:
		var bounds struct {
			Min *string `json:"min"`
			Max *string `json:"max"`
		}
		if err := json.Unmarshal(raw, &bounds); err != nil {
			return err
		}
		el.Min, el.Max = bounds.Min, bounds.Max
	case domain.ModelTypeBlob, domain.ModelTypeFile:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		el.Value = &s
	default:
		return errors.New("content=value patch is not supported for " + string(el.ModelType))
	}
	return nil
}

func (h *elementHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")

	sm, rec, err := h.loadSubmodel(r, id)
	if err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	segs, err := projection.ParsePath(path)
	if err != nil {
		writeError(w, r, apierrors.BadRequest(err.Error()))
		return
	}
	parent, idx, err := resolveParent(&sm.SubmodelElements, segs)
	if err != nil {
		writeError(w, r, apierrors.NotFound("submodel element", path))
		return
	}
	*parent = append((*parent)[:idx], (*parent)[idx+1:]...)

	if _, _, err := h.save(r, id, sm, rec.ETag); err != nil {
		writeError(w, r, repoErrToAPIErr(err, "submodel", id))
		return
	}
	h.publishElement(r, id, path, eventbus.EventDeleted, nil)
	w.WriteHeader(http.StatusNoContent)
}

type operationHandle struct {
	HandleID string `json:"handleId"`
}

func (h *elementHandlers) invoke(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")

	_, _, el, err := h.navigate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if el.ModelType != domain.ModelTypeOperation {
		writeError(w, r, apierrors.BadRequest(path+" is not an Operation"))
		return
	}

	var body struct {
		InputArguments []json.RawMessage `json:"inputArguments"`
	}
	_ = decodeJSONBody(r, &body)

	job, err := h.deps.Jobs.Submit(r.Context(), "", jobqueue.TaskInvokeOperation, map[string]any{
		"submodel_id":   id,
		"id_short_path": path,
	}, jobqueue.SubmitOptions{})
	if err != nil {
		writeError(w, r, apierrors.Internal("submit operation invocation", err))
		return
	}
	writeJSON(w, http.StatusAccepted, operationHandle{HandleID: job.ID})
}

type operationResult struct {
	ExecutionState string          `json:"executionState"`
	Success        bool            `json:"success"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"messages,omitempty"`
}

func (h *elementHandlers) operationStatus(w http.ResponseWriter, r *http.Request) {
	handleID := chi.URLParam(r, "handleId")
	job, err := h.deps.Jobs.Get(r.Context(), handleID)
	if err != nil {
		if errors.Is(err, jobqueue.ErrNotFound) {
			writeError(w, r, apierrors.NotFound("operation handle", handleID))
			return
		}
		writeError(w, r, apierrors.Internal("get operation handle", err))
		return
	}

	result := operationResult{ExecutionState: operationExecutionState(job.Status)}
	switch job.Status {
	case jobqueue.StatusCompleted:
		result.Success = true
		result.Result = job.Result
	case jobqueue.StatusDead:
		result.Success = false
		result.Error = job.LastError
	}
	writeJSON(w, http.StatusOK, result)
}

func operationExecutionState(status jobqueue.Status) string {
	switch status {
	case jobqueue.StatusPending:
		return "Initiated"
	case jobqueue.StatusRunning:
		return "Running"
	case jobqueue.StatusCompleted:
		return "Completed"
	case jobqueue.StatusCancelled:
		return "Canceled"
	case jobqueue.StatusDead:
		return "Failed"
	default:
		return "Failed"
	}
}
