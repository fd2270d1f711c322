package util

import (
	"context"
)

// Context keys.
type ctxKey string

const (
	ctxKeyModule     ctxKey = "module"
	ctxKeyPhase      ctxKey = "phase"
	ctxKeyInstanceID ctxKey = "instance_id"
)

// ContextWithModule adds the name of the module whose hook is running.
func ContextWithModule(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, ctxKeyModule, module)
}

// ModuleFromContext extracts the module name from context.
func ModuleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyModule).(string); ok {
		return v
	}
	return ""
}

// ContextWithPhase adds the current configuration phase to the context.
func ContextWithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase, phase)
}

// PhaseFromContext extracts the configuration phase from context.
func PhaseFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPhase).(string); ok {
		return v
	}
	return ""
}

// ContextWithInstanceID adds the application instance ID to the context.
func ContextWithInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyInstanceID, id)
}

// InstanceIDFromContext extracts the application instance ID from context.
func InstanceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyInstanceID).(string); ok {
		return v
	}
	return ""
}
