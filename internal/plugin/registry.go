package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/titan-aas/titan-aas/internal/logging"
)

// Registry manages loaded plugins and hook dispatch. Safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	order   []string
	hooks   map[HookType][]binding
	logger  *logging.Logger
}

// NewRegistry constructs an empty Registry. logger may be nil, in
// which case a default JSON logger is used.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewFromEnv("plugin")
	}
	return &Registry{
		plugins: make(map[string]Plugin),
		hooks:   make(map[HookType][]binding),
		logger:  logger,
	}
}

// Plugins returns the currently loaded plugins, keyed by name.
func (r *Registry) Plugins() map[string]Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Plugin, len(r.plugins))
	for k, v := range r.plugins {
		out[k] = v
	}
	return out
}

func (r *Registry) IsLoaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plugins[name]
	return ok
}

type registerer struct {
	registry *Registry
	plugin   string
}

func (reg *registerer) RegisterHook(hookType HookType, priority int, handler Handler) {
	reg.registry.hooks[hookType] = append(reg.registry.hooks[hookType], binding{
		pluginName: reg.plugin,
		handler:    handler,
		priority:   priority,
	})
	sort.SliceStable(reg.registry.hooks[hookType], func(i, j int) bool {
		return reg.registry.hooks[hookType][i].priority > reg.registry.hooks[hookType][j].priority
	})
}

// Load loads p into the registry: checks its declared dependencies are
// already loaded, calls OnLoad so it can register hooks, then records
// it. Returns an error without mutating state if any step fails.
func (r *Registry) Load(ctx context.Context, p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, loaded := r.plugins[name]; loaded {
		return fmt.Errorf("plugin: already loaded: %s", name)
	}
	for _, dep := range p.Dependencies() {
		if _, ok := r.plugins[dep]; !ok {
			return fmt.Errorf("plugin: missing dependency for %s: %s", name, dep)
		}
	}

	reg := &registerer{registry: r, plugin: name}
	if err := p.OnLoad(ctx, reg); err != nil {
		for hookType, bindings := range r.hooks {
			filtered := bindings[:0]
			for _, b := range bindings {
				if b.pluginName != name {
					filtered = append(filtered, b)
				}
			}
			r.hooks[hookType] = filtered
		}
		return fmt.Errorf("plugin: load %s: %w", name, err)
	}

	r.plugins[name] = p
	r.order = append(r.order, name)
	r.logger.WithFields(map[string]interface{}{"plugin": name, "version": p.Version()}).Info("plugin loaded")
	return nil
}

// Unload removes a loaded plugin, refusing if another loaded plugin
// still depends on it.
func (r *Registry) Unload(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unloadLocked(ctx, name)
}

func (r *Registry) unloadLocked(ctx context.Context, name string) error {
	p, ok := r.plugins[name]
	if !ok {
		return fmt.Errorf("plugin: not loaded: %s", name)
	}
	for otherName, other := range r.plugins {
		for _, dep := range other.Dependencies() {
			if dep == name {
				return fmt.Errorf("plugin: cannot unload %s: %s depends on it", name, otherName)
			}
		}
	}

	for hookType, bindings := range r.hooks {
		filtered := bindings[:0]
		for _, b := range bindings {
			if b.pluginName != name {
				filtered = append(filtered, b)
			}
		}
		r.hooks[hookType] = filtered
	}

	if err := p.OnUnload(ctx); err != nil {
		r.logger.WithField("plugin", name).WithError(err).Error("error unloading plugin")
	}
	delete(r.plugins, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.WithField("plugin", name).Info("plugin unloaded")
	return nil
}

// UnloadAll tears down every loaded plugin in reverse load order,
// logging (not failing) any individual unload error.
func (r *Registry) UnloadAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if _, ok := r.plugins[name]; !ok {
			continue
		}
		if err := r.unloadLocked(ctx, name); err != nil {
			r.logger.WithField("plugin", name).WithError(err).Error("error unloading plugin")
		}
	}
}

// Execute runs every handler registered for hookType, highest priority
// first, against hookCtx. It stops and returns an Abort result as soon
// as one handler aborts; a Modify result's data is merged into hookCtx
// before the next handler runs. A handler error is logged and treated
// as Proceed so one misbehaving plugin never blocks the others.
func (r *Registry) Execute(ctx context.Context, hookType HookType, hookCtx *HookContext) Result {
	r.mu.Lock()
	bindings := make([]binding, len(r.hooks[hookType]))
	copy(bindings, r.hooks[hookType])
	r.mu.Unlock()

	for _, b := range bindings {
		result, err := b.handler(ctx, hookCtx)
		if err != nil {
			r.logger.WithContext(ctx).WithFields(map[string]interface{}{"plugin": b.pluginName, "hook": hookType}).WithError(err).Error("hook error")
			continue
		}
		switch result.Kind {
		case Abort:
			return result
		case Modify:
			for k, v := range result.Data {
				hookCtx.Data[k] = v
			}
		}
	}
	return ResultProceed(hookCtx.Data)
}

// HookCount reports how many handlers are registered for hookType.
func (r *Registry) HookCount(hookType HookType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks[hookType])
}
