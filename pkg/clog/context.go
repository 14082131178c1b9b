package clog

import (
	"context"
	"maps"
	"sync"
)

type ctxSlog struct {
	mu         sync.RWMutex
	attributes map[string]any
}

type ctxSlogKey struct{}

// ContextWithSlog returns a context carrying a fresh attribute set. A context
// that already carries one is returned with a child set seeded from the parent,
// so attributes added to the child do not leak into sibling operations.
func ContextWithSlog(ctx context.Context) context.Context {
	child := &ctxSlog{
		attributes: make(map[string]any),
	}
	if parent, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog); ok {
		child.attributes = parent.snapshot()
	}
	return context.WithValue(ctx, ctxSlogKey{}, child)
}

func AddAttribute(ctx context.Context, key string, value any) {
	l, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attributes[key] = value
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	l, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	maps.Copy(l.attributes, attributes)
}

func GetAttribute[T any](ctx context.Context, key string) T {
	l, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog)
	if !ok {
		return *new(T)
	}
	l.mu.RLock()
	iVal, ok := l.attributes[key]
	l.mu.RUnlock()
	if !ok {
		return *new(T)
	}
	v, ok := iVal.(T)
	if !ok {
		return *new(T)
	}
	return v
}

func GetAttributes(ctx context.Context) map[string]any {
	l, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog)
	if !ok {
		return nil
	}
	return l.snapshot()
}

func (c *ctxSlog) snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.attributes)
}

const (
	ErrorAttributeKey     = "error.message"
	StackAttributeKey     = "error.stack"
	OperationAttributeKey = "operation"
	TaskAttributeKey      = "task_id"
	BoardAttributeKey     = "board_id"
)

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return GetAttribute[error](ctx, ErrorAttributeKey)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

// WithOperation scopes ctx to a single board mutation or read.
func WithOperation(ctx context.Context, operation, taskID string) context.Context {
	ctx = ContextWithSlog(ctx)
	AddAttribute(ctx, OperationAttributeKey, operation)
	if taskID != "" {
		AddAttribute(ctx, TaskAttributeKey, taskID)
	}
	return ctx
}
