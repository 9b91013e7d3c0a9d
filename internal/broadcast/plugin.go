package broadcast

import (
	"context"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/plugin"
)

// PluginBroadcaster adapts a plugin.Registry's OnEvent hook chain into
// a singlewriter.Broadcaster, so every plugin that registers an
// OnEvent handler is notified of every event alongside the WebSocket
// hub and the MQTT/GraphQL ports.
type PluginBroadcaster struct {
	registry *plugin.Registry
}

// NewPluginBroadcaster wraps registry as a Broadcaster.
func NewPluginBroadcaster(registry *plugin.Registry) *PluginBroadcaster {
	return &PluginBroadcaster{registry: registry}
}

func (p *PluginBroadcaster) Name() string { return "plugins" }

func (p *PluginBroadcaster) Broadcast(ctx context.Context, event eventbus.Event) error {
	hookCtx := plugin.NewHookContext(plugin.OnEvent)
	hookCtx.Set("event_id", event.EventID)
	hookCtx.Set("kind", string(event.Kind))
	hookCtx.Set("type", string(event.Type))
	hookCtx.Set("identifier_b64", event.IdentifierB64)

	result := p.registry.Execute(ctx, plugin.OnEvent, hookCtx)
	if result.Kind == plugin.Abort {
		return &abortedError{message: result.ErrorMessage}
	}
	return nil
}

type abortedError struct{ message string }

func (e *abortedError) Error() string { return "plugin: " + e.message }
