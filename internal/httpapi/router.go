package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/titan-aas/titan-aas/internal/blobstore"
	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/domain"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/httpapi/middleware"
	"github.com/titan-aas/titan-aas/internal/storage"
	"github.com/titan-aas/titan-aas/internal/tenancy"
	"github.com/titan-aas/titan-aas/pkg/metrics"
)

// NewRouter assembles the chi router: the cross-cutting middleware
// chain first, then every route this runtime exposes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.RequestLog(deps.Logger))
	r.Use(middleware.SecurityHeaders(nil))
	r.Use(middleware.BodyLimit(deps.BodyMax))
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(middleware.CORS(deps.CORSCfg))
	r.Use(middleware.RateLimit(deps.Limiter))
	r.Use(tenancy.Middleware)
	r.Use(middleware.Auth(deps.AuthCfg))

	shells := newEntityHandlers[domain.AssetAdministrationShell]("shell", deps.Shells, deps.Cache, cache.KindShell, deps.Bus, eventbus.KindAAS, deps.Logger,
		func(a domain.AssetAdministrationShell) storage.IndexedFields {
			return storage.IndexedFields{GlobalAssetID: a.AssetInformation.GlobalAssetId}
		})
	submodels := newEntityHandlers[domain.Submodel]("submodel", deps.Submodels, deps.Cache, cache.KindSubmodel, deps.Bus, eventbus.KindSubmodel, deps.Logger,
		func(s domain.Submodel) storage.IndexedFields {
			return storage.IndexedFields{SemanticID: firstKeyValue(s.SemanticId)}
		})
	submodels.externalize = func(r *http.Request, doc *domain.Submodel) error {
		if deps.Blobs == nil {
			return nil
		}
		result, err := blobstore.ExternalizeSubmodel(r.Context(), doc, deps.Blobs)
		if err != nil {
			return err
		}
		if deps.BlobMeta == nil {
			return nil
		}
		for _, meta := range result.NewBlobs {
			if err := deps.BlobMeta.Put(r.Context(), meta); err != nil {
				return err
			}
		}
		return nil
	}
	submodels.onDelete = func(r *http.Request, id string) {
		if deps.BlobMeta == nil {
			return
		}
		if err := deps.BlobMeta.DeleteBySubmodel(r.Context(), id); err != nil {
			deps.Logger.WithContext(r.Context()).WithError(err).Warn("delete blob metadata for submodel failed")
		}
	}
	concepts := newEntityHandlers[domain.ConceptDescription]("concept description", deps.ConceptDescriptions, deps.Cache, cache.KindConcept, deps.Bus, eventbus.KindConceptDesc, deps.Logger,
		func(domain.ConceptDescription) storage.IndexedFields {
			return storage.IndexedFields{}
		})

	r.Route("/shells", func(rt chi.Router) {
		rt.Get("/", shells.list)
		rt.Post("/", shells.create)
		rt.Get("/{id}", shells.get)
		rt.Put("/{id}", shells.replace)
		rt.Delete("/{id}", shells.delete)
	})

	sme := &elementHandlers{deps: deps}
	r.Route("/submodels", func(rt chi.Router) {
		rt.Get("/", submodels.list)
		rt.Post("/", submodels.create)
		rt.Get("/{id}", submodels.get)
		rt.Put("/{id}", submodels.replace)
		rt.Delete("/{id}", submodels.delete)

		rt.Get("/{id}/submodel-elements", sme.listTopLevel)
		rt.Post("/{id}/submodel-elements", sme.createTopLevel)
		rt.Get("/{id}/submodel-elements/{path}", sme.get)
		rt.Put("/{id}/submodel-elements/{path}", sme.replace)
		rt.Patch("/{id}/submodel-elements/{path}", sme.patch)
		rt.Delete("/{id}/submodel-elements/{path}", sme.delete)
		rt.Get("/{id}/submodel-elements/{path}/$value", sme.getValue)
		rt.Patch("/{id}/submodel-elements/{path}/$value", sme.patchValue)
		rt.Post("/{id}/submodel-elements/{path}/invoke", sme.invoke)
		rt.Get("/{id}/operation-results/{handleId}", sme.operationStatus)
	})

	r.Route("/concept-descriptions", func(rt chi.Router) {
		rt.Get("/", concepts.list)
		rt.Post("/", concepts.create)
		rt.Get("/{id}", concepts.get)
		rt.Put("/{id}", concepts.replace)
		rt.Delete("/{id}", concepts.delete)
	})

	lookup := &lookupHandlers{deps: deps}
	r.Route("/lookup", func(rt chi.Router) {
		rt.Get("/shells", lookup.shells)
		rt.Get("/submodels", lookup.submodels)
	})

	health := &healthHandlers{deps: deps}
	r.Get("/health/live", health.live)
	r.Get("/health/ready", health.ready)
	r.Get("/health", health.combined)
	r.Get("/description", health.description)

	ser := &serializationHandlers{deps: deps}
	r.Get("/serialization", ser.export)
	r.Post("/serialization", ser.importBundle)

	blobs := &blobHandlers{deps: deps}
	r.Get("/blobs/{id}", blobs.stream)

	events := &eventsHandler{deps: deps}
	r.Get("/events", events.serveWS)

	return r
}
