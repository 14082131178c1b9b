// Package apitest provides an in-process api.Caller for tests.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/kazz187/taskboard/internal/api"
)

// Call is one recorded invocation.
type Call struct {
	Operation api.Operation
	Body      any
	Params    api.Params
}

// Handler answers a call. Returning a non-nil value encodes it as the
// response body.
type Handler func(ctx context.Context, body any, params api.Params) (any, error)

// Caller dispatches to per-operation handlers and records every call. An
// operation without a handler fails with a 501 RequestFailure.
type Caller struct {
	mu       sync.Mutex
	handlers map[api.Operation]Handler
	calls    []Call
}

func NewCaller() *Caller {
	return &Caller{handlers: make(map[api.Operation]Handler)}
}

func (c *Caller) Handle(op api.Operation, h Handler) *Caller {
	c.mu.Lock()
	c.handlers[op] = h
	c.mu.Unlock()
	return c
}

// Respond registers a handler that always returns v.
func (c *Caller) Respond(op api.Operation, v any) *Caller {
	return c.Handle(op, func(context.Context, any, api.Params) (any, error) { return v, nil })
}

// Fail registers a handler that always fails with the given HTTP status.
func (c *Caller) Fail(op api.Operation, status int) *Caller {
	return c.Handle(op, func(context.Context, any, api.Params) (any, error) {
		return nil, &api.RequestFailure{Operation: op, StatusCode: status, Message: http.StatusText(status)}
	})
}

func (c *Caller) Call(ctx context.Context, op api.Operation, body any, params api.Params) (json.RawMessage, error) {
	// resolve the request the way the dispatcher would so bad params fail alike
	if _, err := api.Describe(op, body, params); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.calls = append(c.calls, Call{Operation: op, Body: body, Params: params})
	h, ok := c.handlers[op]
	c.mu.Unlock()
	if !ok {
		return nil, &api.RequestFailure{Operation: op, StatusCode: http.StatusNotImplemented, Message: "no handler"}
	}
	v, err := h(ctx, body, params)
	if err != nil {
		return nil, err
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s response: %w", op, err)
	}
	return raw, nil
}

func (c *Caller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count returns how many calls were made to op, or to any operation when op
// is empty.
func (c *Caller) Count(op api.Operation) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op == "" {
		return len(c.calls)
	}
	n := 0
	for _, call := range c.calls {
		if call.Operation == op {
			n++
		}
	}
	return n
}
