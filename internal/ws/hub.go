// Package ws implements the real-time event WebSocket hub: clients
// connect, optionally filter by entity kind and identifier, and
// receive a JSON-serialized event for every matching publish.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/pkg/metrics"
)

// Conn is the minimal surface Hub needs from a client connection,
// satisfied by *websocket.Conn; tests substitute a fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Filter narrows which events a subscription receives. Zero values
// match everything.
type Filter struct {
	Kind          eventbus.Kind
	IdentifierB64 string
}

func (f Filter) matches(event eventbus.Event) bool {
	if f.Kind != "" && f.Kind != event.Kind {
		return false
	}
	if f.IdentifierB64 != "" {
		id := event.IdentifierB64
		if event.Kind == eventbus.KindSubmodelElement {
			id = event.SubmodelIDB64
		}
		if f.IdentifierB64 != id {
			return false
		}
	}
	return true
}

type subscription struct {
	conn   Conn
	filter Filter
}

// wireEvent is the JSON payload sent to subscribers, grounded on the
// original real-time event router's wire shape.
type wireEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	Entity        string    `json:"entity"`
	IdentifierB64 string    `json:"identifierB64"`
	IDShortPath   string    `json:"idShortPath,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Hub tracks connected WebSocket clients and fans out events to the
// ones whose filter matches. It implements singlewriter.Broadcaster.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscription]struct{})}
}

func (h *Hub) Name() string { return "websocket" }

// Register adds conn with filter to the hub and returns a function
// that removes it. Callers are expected to call the returned function
// when the connection closes (read loop error, client disconnect).
func (h *Hub) Register(conn Conn, filter Filter) (unregister func()) {
	sub := &subscription{conn: conn, filter: filter}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	metrics.SetWebsocketConnections(count)

	return func() {
		h.mu.Lock()
		delete(h.subs, sub)
		count := len(h.subs)
		h.mu.Unlock()
		metrics.SetWebsocketConnections(count)
	}
}

// ConnCount reports the number of currently registered connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast sends event as JSON to every subscriber whose filter
// matches. A write failure on one connection is discarded without
// being logged or returned, and never prevents delivery to the rest.
func (h *Hub) Broadcast(ctx context.Context, event eventbus.Event) error {
	payload, err := json.Marshal(toWireEvent(event))
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subs))
	for sub := range h.subs {
		if sub.filter.matches(event) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		_ = sub.conn.WriteMessage(websocket.TextMessage, payload)
	}
	return nil
}

func toWireEvent(event eventbus.Event) wireEvent {
	id := event.IdentifierB64
	if event.Kind == eventbus.KindSubmodelElement {
		id = event.SubmodelIDB64
	}
	return wireEvent{
		EventID:       event.EventID,
		EventType:     string(event.Type),
		Entity:        string(event.Kind),
		IdentifierB64: id,
		IDShortPath:   event.IDShortPath,
		ETag:          event.ETag,
		Timestamp:     event.Timestamp,
	}
}
