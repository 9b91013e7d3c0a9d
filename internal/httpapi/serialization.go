package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/canonical"
	"github.com/titan-aas/titan-aas/internal/domain"
	"github.com/titan-aas/titan-aas/internal/storage"
)

// serializationHandlers implements the bulk AASX-style export/import
// surface: the whole repository as one Environment document, per
// IDTA-01005. Export takes no filter.
type serializationHandlers struct {
	deps Deps
}

// environment is the IDTA serialization envelope bundling every entity
// kind into a single importable/exportable document.
type environment struct {
	AssetAdministrationShells []json.RawMessage `json:"assetAdministrationShells"`
	Submodels                 []json.RawMessage `json:"submodels"`
	ConceptDescriptions       []json.RawMessage `json:"conceptDescriptions"`
}

func (h *serializationHandlers) export(w http.ResponseWriter, r *http.Request) {
	env := environment{
		AssetAdministrationShells: []json.RawMessage{},
		Submodels:                 []json.RawMessage{},
		ConceptDescriptions:       []json.RawMessage{},
	}

	shells, err := collectAll(r, h.deps.Shells)
	if err != nil {
		writeError(w, r, apierrors.Internal("export shells", err))
		return
	}
	env.AssetAdministrationShells = shells

	submodels, err := collectAll(r, h.deps.Submodels)
	if err != nil {
		writeError(w, r, apierrors.Internal("export submodels", err))
		return
	}
	env.Submodels = submodels

	concepts, err := collectAll(r, h.deps.ConceptDescriptions)
	if err != nil {
		writeError(w, r, apierrors.Internal("export concept descriptions", err))
		return
	}
	env.ConceptDescriptions = concepts

	writeJSON(w, http.StatusOK, env)
}

// collectAll pages through repo's full contents, returning each
// record's canonical bytes as a raw JSON message.
func collectAll(r *http.Request, repo storage.Repository) ([]json.RawMessage, error) {
	out := []json.RawMessage{}
	cursor := ""
	for {
		page, err := repo.List(r.Context(), storage.ListOptions{Cursor: cursor, Limit: storage.MaxLimit})
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			out = append(out, json.RawMessage(rec.CanonicalBytes))
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return out, nil
}

type importSummary struct {
	ShellsImported     int      `json:"shellsImported"`
	SubmodelsImported  int      `json:"submodelsImported"`
	ConceptsImported   int      `json:"conceptDescriptionsImported"`
	Errors             []string `json:"errors,omitempty"`
}

func (h *serializationHandlers) importBundle(w http.ResponseWriter, r *http.Request) {
	var env environment
	if err := decodeJSONBody(r, &env); err != nil {
		writeError(w, r, err)
		return
	}

	summary := importSummary{}
	for _, raw := range env.AssetAdministrationShells {
		var shell domain.AssetAdministrationShell
		if err := importOne(r, h.deps.Shells, raw, &shell); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.ShellsImported++
	}
	for _, raw := range env.Submodels {
		var sm domain.Submodel
		if err := importOne(r, h.deps.Submodels, raw, &sm); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.SubmodelsImported++
	}
	for _, raw := range env.ConceptDescriptions {
		var cd domain.ConceptDescription
		if err := importOne(r, h.deps.ConceptDescriptions, raw, &cd); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.ConceptsImported++
	}

	writeJSON(w, http.StatusOK, summary)
}

// importOne decodes raw into doc, canonicalizes it, and creates or
// (on conflict) replaces the repository row — import is idempotent
// across re-runs of the same bundle.
func importOne[T entityDoc](r *http.Request, repo storage.Repository, raw json.RawMessage, doc *T) error {
	if err := json.Unmarshal(raw, doc); err != nil {
		return err
	}
	d := *doc
	if err := d.Validate(); err != nil {
		return err
	}
	canonicalBytes, err := canonical.Canonicalize(raw)
	if err != nil {
		return err
	}
	etag := canonical.ETag(canonicalBytes)
	id := d.GetID()

	err = repo.Create(r.Context(), id, canonicalBytes, etag, storage.IndexedFields{})
	if errors.Is(err, storage.ErrConflict) {
		return repo.Replace(r.Context(), id, canonicalBytes, etag, "", storage.IndexedFields{})
	}
	return err
}
