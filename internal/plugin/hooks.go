// Package plugin implements an in-process extension mechanism: plugins
// register handlers against named lifecycle points (shell/submodel
// CRUD, request lifecycle, auth, events), and the registry runs them
// in priority order, letting a handler abort the operation or modify
// its data before the next handler runs.
package plugin

import "context"

// HookType identifies a lifecycle point plugins can hook into.
type HookType string

const (
	PreRequest HookType = "pre_request"
	PostRequest HookType = "post_request"

	PreCreateShell  HookType = "pre_create_shell"
	PostCreateShell HookType = "post_create_shell"
	PreUpdateShell  HookType = "pre_update_shell"
	PostUpdateShell HookType = "post_update_shell"
	PreDeleteShell  HookType = "pre_delete_shell"
	PostDeleteShell HookType = "post_delete_shell"

	PreCreateSubmodel  HookType = "pre_create_submodel"
	PostCreateSubmodel HookType = "post_create_submodel"
	PreUpdateSubmodel  HookType = "pre_update_submodel"
	PostUpdateSubmodel HookType = "post_update_submodel"
	PreDeleteSubmodel  HookType = "pre_delete_submodel"
	PostDeleteSubmodel HookType = "post_delete_submodel"

	PreUpdateElement  HookType = "pre_update_element"
	PostUpdateElement HookType = "post_update_element"

	PreAuth  HookType = "pre_auth"
	PostAuth HookType = "post_auth"

	OnEvent HookType = "on_event"

	OnStartup  HookType = "on_startup"
	OnShutdown HookType = "on_shutdown"
)

// ResultKind is the outcome of a single handler invocation.
type ResultKind int

const (
	Proceed ResultKind = iota
	Abort
	Modify
)

// Result is what a Handler returns to the registry.
type Result struct {
	Kind         ResultKind
	Data         map[string]any
	ErrorMessage string
	ErrorCode    int
}

// ResultProceed continues the chain, optionally merging data.
func ResultProceed(data map[string]any) Result { return Result{Kind: Proceed, Data: data} }

// ResultAbort halts the chain with an error code/message (400 if code is 0).
func ResultAbort(message string, code int) Result {
	if code == 0 {
		code = 400
	}
	return Result{Kind: Abort, ErrorMessage: message, ErrorCode: code}
}

// ResultModify continues the chain with data merged into the shared context.
func ResultModify(data map[string]any) Result { return Result{Kind: Modify, Data: data} }

// HookContext is passed to every handler for a given hook execution.
// Handlers read and write Data to pass information along the chain.
type HookContext struct {
	Type     HookType
	Data     map[string]any
	Metadata map[string]any
}

// NewHookContext constructs an empty HookContext for typ.
func NewHookContext(typ HookType) *HookContext {
	return &HookContext{Type: typ, Data: make(map[string]any), Metadata: make(map[string]any)}
}

func (c *HookContext) Get(key string) (any, bool) { v, ok := c.Data[key]; return v, ok }
func (c *HookContext) Set(key string, value any)  { c.Data[key] = value }

// Handler is the function signature a plugin registers for a hook.
type Handler func(ctx context.Context, hookCtx *HookContext) (Result, error)

type binding struct {
	pluginName string
	handler    Handler
	priority   int
}
