package plugin

import "context"

// Plugin is the interface every Titan-AAS plugin implements.
// Dependencies names plugins that must already be loaded before this
// one; OnLoad is called with a Registerer so the plugin can register
// its hooks, and is the natural place to acquire resources. OnUnload
// releases them.
type Plugin interface {
	Name() string
	Version() string
	Dependencies() []string
	OnLoad(ctx context.Context, r Registerer) error
	OnUnload(ctx context.Context) error
}

// Registerer is the subset of Registry a Plugin's OnLoad needs to
// register its hooks; higher priority handlers run first.
type Registerer interface {
	RegisterHook(hookType HookType, priority int, handler Handler)
}

// Base supplies no-op Dependencies/OnLoad/OnUnload for plugins that
// only need to override what they actually use, mirroring the
// teacher's embeddable-base-struct idiom for shared boilerplate.
type Base struct{}

func (Base) Dependencies() []string { return nil }
func (Base) OnLoad(ctx context.Context, r Registerer) error { return nil }
func (Base) OnUnload(ctx context.Context) error { return nil }
