package plugin

import (
	"context"
	"testing"
)

type testPlugin struct {
	Base
	name    string
	version string
	deps    []string
	onLoad  func(ctx context.Context, r Registerer) error
	loaded  bool
}

func (p *testPlugin) Name() string           { return p.name }
func (p *testPlugin) Version() string        { return p.version }
func (p *testPlugin) Dependencies() []string { return p.deps }
func (p *testPlugin) OnLoad(ctx context.Context, r Registerer) error {
	p.loaded = true
	if p.onLoad != nil {
		return p.onLoad(ctx, r)
	}
	return nil
}
func (p *testPlugin) OnUnload(ctx context.Context) error {
	p.loaded = false
	return nil
}

func TestLoadRegistersHooksAndTracksPlugin(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	p := &testPlugin{name: "validator", version: "1.0.0", onLoad: func(ctx context.Context, reg Registerer) error {
		reg.RegisterHook(PreCreateShell, 0, func(ctx context.Context, hc *HookContext) (Result, error) {
			return ResultProceed(nil), nil
		})
		return nil
	}}

	if err := r.Load(ctx, p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.IsLoaded("validator") {
		t.Fatal("expected validator to be loaded")
	}
	if r.HookCount(PreCreateShell) != 1 {
		t.Fatalf("HookCount = %d, want 1", r.HookCount(PreCreateShell))
	}
}

func TestLoadFailsOnMissingDependency(t *testing.T) {
	r := NewRegistry(nil)
	p := &testPlugin{name: "dependent", version: "1.0.0", deps: []string{"base"}}
	if err := r.Load(context.Background(), p); err == nil {
		t.Fatal("expected missing-dependency error")
	}
}

func TestLoadFailsOnDuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	first := &testPlugin{name: "dup", version: "1.0.0"}
	second := &testPlugin{name: "dup", version: "2.0.0"}
	if err := r.Load(ctx, first); err != nil {
		t.Fatalf("Load first: %v", err)
	}
	if err := r.Load(ctx, second); err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestUnloadRefusedWhileDependedOn(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	base := &testPlugin{name: "base", version: "1.0.0"}
	dependent := &testPlugin{name: "dependent", version: "1.0.0", deps: []string{"base"}}

	if err := r.Load(ctx, base); err != nil {
		t.Fatalf("Load base: %v", err)
	}
	if err := r.Load(ctx, dependent); err != nil {
		t.Fatalf("Load dependent: %v", err)
	}
	if err := r.Unload(ctx, "base"); err == nil {
		t.Fatal("expected unload of depended-on plugin to fail")
	}
	if err := r.Unload(ctx, "dependent"); err != nil {
		t.Fatalf("Unload dependent: %v", err)
	}
	if err := r.Unload(ctx, "base"); err != nil {
		t.Fatalf("Unload base after dependent removed: %v", err)
	}
}

func TestExecuteHighestPriorityFirstAndAbortShortCircuits(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	var order []string
	low := &testPlugin{name: "low", version: "1.0.0", onLoad: func(ctx context.Context, reg Registerer) error {
		reg.RegisterHook(PreCreateShell, 0, func(ctx context.Context, hc *HookContext) (Result, error) {
			order = append(order, "low")
			return ResultProceed(nil), nil
		})
		return nil
	}}
	high := &testPlugin{name: "high", version: "1.0.0", onLoad: func(ctx context.Context, reg Registerer) error {
		reg.RegisterHook(PreCreateShell, 10, func(ctx context.Context, hc *HookContext) (Result, error) {
			order = append(order, "high")
			return ResultAbort("idShort is required", 400), nil
		})
		return nil
	}}

	if err := r.Load(ctx, low); err != nil {
		t.Fatalf("Load low: %v", err)
	}
	if err := r.Load(ctx, high); err != nil {
		t.Fatalf("Load high: %v", err)
	}

	result := r.Execute(ctx, PreCreateShell, NewHookContext(PreCreateShell))
	if result.Kind != Abort {
		t.Fatalf("result.Kind = %v, want Abort", result.Kind)
	}
	if len(order) != 1 || order[0] != "high" {
		t.Fatalf("order = %v, want [high] (higher priority runs first and short-circuits)", order)
	}
}

func TestExecuteModifyMergesIntoContext(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	p := &testPlugin{name: "enricher", version: "1.0.0", onLoad: func(ctx context.Context, reg Registerer) error {
		reg.RegisterHook(PreCreateSubmodel, 0, func(ctx context.Context, hc *HookContext) (Result, error) {
			return ResultModify(map[string]any{"enriched": true}), nil
		})
		return nil
	}}
	if err := r.Load(ctx, p); err != nil {
		t.Fatalf("Load: %v", err)
	}

	hc := NewHookContext(PreCreateSubmodel)
	result := r.Execute(ctx, PreCreateSubmodel, hc)
	if result.Kind != Proceed {
		t.Fatalf("result.Kind = %v, want Proceed", result.Kind)
	}
	if v, _ := hc.Get("enriched"); v != true {
		t.Fatalf("hc.Data[enriched] = %v, want true", v)
	}
}

func TestUnloadAllTearsDownInReverseOrder(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	first := &testPlugin{name: "first", version: "1.0.0"}
	second := &testPlugin{name: "second", version: "1.0.0"}

	if err := r.Load(ctx, first); err != nil {
		t.Fatalf("Load first: %v", err)
	}
	if err := r.Load(ctx, second); err != nil {
		t.Fatalf("Load second: %v", err)
	}

	r.UnloadAll(ctx)

	if r.IsLoaded("first") || r.IsLoaded("second") {
		t.Fatal("expected both plugins unloaded")
	}
	if first.loaded || second.loaded {
		t.Fatal("expected OnUnload to have run for both plugins")
	}
}
