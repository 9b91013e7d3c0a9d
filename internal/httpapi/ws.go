package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/ws"
)

// upgrader accepts WebSocket upgrades from any origin; CORS on the
// preceding HTTP handshake is enforced by middleware.CORS, and this
// endpoint carries no credentials beyond the bearer token already
// validated by middleware.Auth before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const pingInterval = 30 * time.Second

// eventsHandler implements the real-time event feed: clients upgrade
// to a WebSocket and optionally filter by entity kind/identifier via
// query parameters.
type eventsHandler struct {
	deps Deps
}

func (h *eventsHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Logger.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	filter := ws.Filter{
		Kind:          eventbus.Kind(r.URL.Query().Get("kind")),
		IdentifierB64: r.URL.Query().Get("identifierB64"),
	}
	unregister := h.deps.Hub.Register(conn, filter)
	defer unregister()

	conn.SetReadDeadline(time.Now().Add(pingInterval * 2))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval * 2))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
