// Package httpapi implements the IDTA HTTP API surface (C11 API
// dispatch): CRUD on shells, submodels, and concept descriptions,
// submodel-element navigation and mutation, registry lookup,
// serialization bulk export/import, blob streaming, health/description
// endpoints, and the real-time WebSocket event feed. Every handler
// renders through the shared apierrors.Result envelope and honors the
// conditional-request and projection-modifier contracts uniformly.
package httpapi

import (
	"net/http"
	"time"

	"github.com/titan-aas/titan-aas/internal/blobstore"
	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/httpapi/middleware"
	"github.com/titan-aas/titan-aas/internal/jobqueue"
	"github.com/titan-aas/titan-aas/internal/logging"
	"github.com/titan-aas/titan-aas/internal/ratelimit"
	"github.com/titan-aas/titan-aas/internal/storage"
	"github.com/titan-aas/titan-aas/internal/ws"
)

// Deps bundles everything a Service's handlers read from. internal/app
// constructs one Deps per process and passes it to NewRouter.
type Deps struct {
	Shells              storage.Repository
	Submodels           storage.Repository
	ConceptDescriptions storage.Repository
	ShellDescriptors    storage.Repository
	SubmodelDescriptors storage.Repository

	Cache    cache.Cache
	Bus      eventbus.Bus
	Blobs    blobstore.Backend
	BlobMeta blobstore.MetadataStore
	Jobs     jobqueue.Queue
	Hub      *ws.Hub
	Logger   *logging.Logger
	Limiter  ratelimit.Limiter
	AuthCfg  middleware.AuthConfig
	CORSCfg  middleware.CORSConfig
	BodyMax  int64
	Timeout  time.Duration
	Version  string
	Started  time.Time
	Readyz   func() error
}

// Service holds the constructed Deps and exposes the assembled router.
type Service struct {
	deps Deps
}

// New constructs a Service from deps.
func New(deps Deps) *Service {
	return &Service{deps: deps}
}

// Handler returns the fully wired HTTP handler, middleware chain and
// all routes mounted.
func (s *Service) Handler() http.Handler {
	return NewRouter(s.deps)
}
