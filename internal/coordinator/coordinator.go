// Package coordinator applies task mutations optimistically. Each mutation is
// written to the store before its request is sent, then reconciled with the
// response or rolled back when the request fails.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/merge"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
)

// LocalIDPrefix marks comments and files that exist only locally until the
// server answers.
const LocalIDPrefix = "local-"

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

type Coordinator struct {
	store  *board.Store
	caller api.Caller
	now    func() time.Time

	mu       sync.Mutex
	inFlight map[string]string // task id -> operation
}

func New(store *board.Store, caller api.Caller, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		caller:   caller,
		now:      time.Now,
		inFlight: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether a mutation of the task is outstanding.
func (c *Coordinator) InFlight(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[taskID]
	return ok
}

func (c *Coordinator) acquire(taskID, op string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending, ok := c.inFlight[taskID]; ok {
		return nil, cerr.NewError(cerr.Aborted, "another change to this task is in progress", fmt.Errorf("task %s: %s pending", taskID, pending))
	}
	c.inFlight[taskID] = op
	return func() {
		c.mu.Lock()
		delete(c.inFlight, taskID)
		c.mu.Unlock()
	}, nil
}

// mutation is one optimistic change of a task.
type mutation struct {
	op     string
	taskID string
	// prepare sees the task once the in-flight slot is held and may refuse
	// the mutation.
	prepare   func(snapshot *board.Task) error
	apply     func(*board.Task)
	request   func(boardID string) (api.Operation, any, api.Params)
	reconcile func(ctx context.Context, payload map[string]any) (*board.Task, error)
	rollback  func(*board.Task)
}

func (c *Coordinator) run(ctx context.Context, m mutation) (*board.Task, error) {
	ctx = clog.WithOperation(ctx, m.op, m.taskID)

	release, err := c.acquire(m.taskID, m.op)
	if err != nil {
		return nil, err
	}
	defer release()

	boardID, err := c.store.BoardID()
	if err != nil {
		return nil, err
	}
	snapshot, err := c.store.FindTask(m.taskID)
	if err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "task missing from board")
		return nil, err
	}
	if m.prepare != nil {
		if err := m.prepare(snapshot); err != nil {
			return nil, err
		}
	}
	if _, err := c.store.Apply(ctx, m.taskID, m.apply); err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "optimistic apply failed")
		return nil, err
	}

	op, body, params := m.request(boardID)
	raw, err := panicerr.Call(func() ([]byte, error) {
		return c.caller.Call(ctx, op, body, params)
	})
	if err == nil {
		var payload map[string]any
		payload, err = merge.Decode(raw)
		if err != nil {
			err = cerr.NewError(cerr.Internal, "malformed response", err)
		} else {
			var t *board.Task
			if t, err = m.reconcile(ctx, payload); err == nil {
				return t, nil
			}
		}
	}

	clog.AddError(ctx, err)
	if _, rbErr := c.store.Apply(ctx, m.taskID, m.rollback); rbErr != nil {
		slog.ErrorContext(ctx, "rollback failed", "rollback_error", rbErr)
		return nil, errors.Join(err, rbErr)
	}
	slog.WarnContext(ctx, "optimistic update rolled back")
	return nil, err
}

func taskParams(boardID, taskID string) api.Params {
	return api.Params{"boardId": boardID, "taskId": taskID}
}

func localID() string {
	return LocalIDPrefix + ulid.Make().String()
}
