package kernel

import (
	"context"
	"sync"
)

// CommandFunc is the opaque callable a Command wraps. Kernel invokes it;
// callers never see its concrete type.
type CommandFunc func(ctx context.Context, args map[string]any) (string, error)

// commandFuncs is the link-time registry spec.md §9 calls for: since Go has
// no runtime decorators, each skill's scripts package registers its
// command functions by tool id (`"<skill>.<command>"`) from its own init(),
// and the Kernel resolves a scanned ToolRecord to a live callable by
// looking it up here. The Scanner never imports or executes skill code;
// this registry is the only place static metadata meets a real function.
var (
	registryMu sync.RWMutex
	commandFuncs = map[string]CommandFunc{}
)

// RegisterCommand binds a tool id to its implementation. Skill script
// packages call this from an init() function.
func RegisterCommand(toolName string, fn CommandFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	commandFuncs[toolName] = fn
}

func lookupCommandFunc(toolName string) (CommandFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := commandFuncs[toolName]
	return fn, ok
}

type callerKey struct{}

// WithCaller attaches the caller identity `execute_tool`'s optional
// `caller` parameter carries, retrievable with CallerFromContext.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller identity set by WithCaller, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok
}
