package broadcast

import (
	"context"
	"testing"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/plugin"
)

func TestMQTTPublisherSatisfiesBroadcaster(t *testing.T) {
	p := NewMQTTPublisher(nil)
	if p.Name() != "mqtt" {
		t.Fatalf("Name() = %q, want mqtt", p.Name())
	}
	event := eventbus.Event{EventID: "evt-1", Kind: eventbus.KindAAS, Type: eventbus.EventCreated, IdentifierB64: "aGVsbG8="}
	if err := p.Broadcast(context.Background(), event); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
}

func TestGraphQLPublisherSatisfiesBroadcaster(t *testing.T) {
	p := NewGraphQLPublisher(nil)
	if p.Name() != "graphql" {
		t.Fatalf("Name() = %q, want graphql", p.Name())
	}
	event := eventbus.Event{EventID: "evt-2", Kind: eventbus.KindSubmodel, Type: eventbus.EventUpdated, IdentifierB64: "d29ybGQ="}
	if err := p.Broadcast(context.Background(), event); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
}

type eventRecordingPlugin struct {
	plugin.Base
	seen []string
}

func (p *eventRecordingPlugin) Name() string    { return "recorder" }
func (p *eventRecordingPlugin) Version() string { return "1.0.0" }
func (p *eventRecordingPlugin) OnLoad(ctx context.Context, r plugin.Registerer) error {
	r.RegisterHook(plugin.OnEvent, 0, func(ctx context.Context, hc *plugin.HookContext) (plugin.Result, error) {
		id, _ := hc.Get("event_id")
		p.seen = append(p.seen, id.(string))
		return plugin.ResultProceed(nil), nil
	})
	return nil
}

func TestPluginBroadcasterDispatchesOnEventHooks(t *testing.T) {
	registry := plugin.NewRegistry(nil)
	recorder := &eventRecordingPlugin{}
	if err := registry.Load(context.Background(), recorder); err != nil {
		t.Fatalf("Load: %v", err)
	}

	b := NewPluginBroadcaster(registry)
	if b.Name() != "plugins" {
		t.Fatalf("Name() = %q, want plugins", b.Name())
	}
	event := eventbus.Event{EventID: "evt-3", Kind: eventbus.KindAAS, Type: eventbus.EventCreated, IdentifierB64: "aGVsbG8="}
	if err := b.Broadcast(context.Background(), event); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(recorder.seen) != 1 || recorder.seen[0] != "evt-3" {
		t.Fatalf("seen = %v, want [evt-3]", recorder.seen)
	}
}
