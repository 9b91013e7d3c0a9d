package httpapi

import (
	"net/http/httptest"
	"time"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/logging"
)

// newTestServer assembles a fully wired router against in-memory
// repositories and a real MemoryBus, mirroring the teacher's
// httptest.NewServer-plus-in-memory-store testing style. Auth is left
// disabled (empty Issuer) so tests exercise the handlers directly.
func newTestServer() (*httptest.Server, Deps) {
	logger := logging.New("titan-aas-test", "error", "text")
	deps := Deps{
		Shells:              newMemRepository(),
		Submodels:           newMemRepository(),
		ConceptDescriptions: newMemRepository(),
		ShellDescriptors:    newMemRepository(),
		SubmodelDescriptors: newMemRepository(),
		Bus:                 eventbus.NewMemoryBus(0, logger),
		Jobs:                newMemQueue(),
		Logger:              logger,
		BodyMax:             8 << 20,
		Timeout:             5 * time.Second,
		Version:             "test",
		Started:             time.Now(),
	}
	server := httptest.NewServer(NewRouter(deps))
	return server, deps
}
