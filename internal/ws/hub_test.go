package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/titan-aas/titan-aas/internal/eventbus"
)

type fakeConn struct {
	messages [][]byte
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.messages = append(f.messages, data)
	return nil
}
func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestHubBroadcastsToMatchingFilter(t *testing.T) {
	h := NewHub()
	aasConn := &fakeConn{}
	smConn := &fakeConn{}
	h.Register(aasConn, Filter{Kind: eventbus.KindAAS})
	h.Register(smConn, Filter{Kind: eventbus.KindSubmodel})

	if err := h.Broadcast(context.Background(), eventbus.Event{
		EventID: "1", Kind: eventbus.KindAAS, Type: eventbus.EventUpdated, IdentifierB64: "id1",
	}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if len(aasConn.messages) != 1 {
		t.Fatalf("aasConn got %d messages, want 1", len(aasConn.messages))
	}
	if len(smConn.messages) != 0 {
		t.Fatalf("smConn got %d messages, want 0", len(smConn.messages))
	}

	var payload map[string]any
	if err := json.Unmarshal(aasConn.messages[0], &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["identifierB64"] != "id1" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	unregister := h.Register(conn, Filter{})
	unregister()

	if err := h.Broadcast(context.Background(), eventbus.Event{Kind: eventbus.KindAAS}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(conn.messages) != 0 {
		t.Fatalf("got %d messages after unregister, want 0", len(conn.messages))
	}
	if h.ConnCount() != 0 {
		t.Fatalf("ConnCount = %d, want 0", h.ConnCount())
	}
}

func TestHubIdentifierFilter(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	h.Register(conn, Filter{IdentifierB64: "wanted"})

	h.Broadcast(context.Background(), eventbus.Event{Kind: eventbus.KindAAS, IdentifierB64: "other"})
	if len(conn.messages) != 0 {
		t.Fatalf("got %d messages for non-matching identifier, want 0", len(conn.messages))
	}

	h.Broadcast(context.Background(), eventbus.Event{Kind: eventbus.KindAAS, IdentifierB64: "wanted"})
	if len(conn.messages) != 1 {
		t.Fatalf("got %d messages for matching identifier, want 1", len(conn.messages))
	}
}
