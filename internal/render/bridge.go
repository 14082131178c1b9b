// Package render reflects store changes into a view. The bridge keeps only
// element ids keyed by task id; the store stays the owner of all task state.
package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

const DrawerElementID = "task-drawer"

func CardElementID(taskID string) string {
	return "task-card-" + taskID
}

// Card is the view model of one task.
type Card struct {
	ElementID        string
	TaskID           string
	Title            string
	Status           workflow.Status
	Priority         int
	Points           int
	RequiresDocument bool
	Comments         int
	Files            int
	DetailsFetched   bool
}

func CardFor(t *board.Task, tier workflow.Tier) Card {
	return Card{
		ElementID:        CardElementID(t.ID),
		TaskID:           t.ID,
		Title:            t.Title,
		Status:           t.EffectiveStatus(tier),
		Priority:         t.Priority,
		Points:           t.Points,
		RequiresDocument: t.RequiresDocument,
		Comments:         len(t.Comments),
		Files:            len(t.Files),
		DetailsFetched:   t.DetailsFetched,
	}
}

// Renderer is the view side. Implementations must tolerate repeated upserts
// of the same element.
type Renderer interface {
	Reset(ctx context.Context, boardID string) error
	UpsertCard(ctx context.Context, card Card) error
	UpsertDrawer(ctx context.Context, task *board.Task, card Card) error
	CloseDrawer(ctx context.Context) error
}

type Bridge struct {
	store    *board.Store
	renderer Renderer

	mu       sync.Mutex
	elements map[string]string
	drawer   string
	subID    string
}

func NewBridge(store *board.Store, renderer Renderer) *Bridge {
	return &Bridge{
		store:    store,
		renderer: renderer,
		elements: make(map[string]string),
	}
}

// Attach starts following the store. The current board, if any, is drawn
// right away.
func (b *Bridge) Attach(ctx context.Context) {
	b.mu.Lock()
	if b.subID != "" {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	id := b.store.Subscribe(func(ev board.Event) { b.handle(ctx, ev) })
	b.mu.Lock()
	b.subID = id
	b.mu.Unlock()

	if cur, err := b.store.Board(); err == nil {
		b.handle(ctx, board.Event{Type: board.EventBoardLoaded, BoardID: cur.ID})
		for _, t := range cur.SortedTasks() {
			b.handle(ctx, board.Event{Type: board.EventTaskUpdated, BoardID: cur.ID, Task: t})
		}
	}
}

func (b *Bridge) Detach() {
	b.mu.Lock()
	id := b.subID
	b.subID = ""
	b.mu.Unlock()
	if id != "" {
		b.store.Unsubscribe(id)
	}
}

func (b *Bridge) ElementID(taskID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.elements[taskID]
	return id, ok
}

// OpenDrawer shows the task in the drawer. Later changes to the task refresh
// the drawer along with its card.
func (b *Bridge) OpenDrawer(ctx context.Context, taskID string) error {
	t, err := b.store.FindTask(taskID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.drawer = taskID
	b.mu.Unlock()
	return b.renderer.UpsertDrawer(ctx, t, CardFor(t, b.store.Tier()))
}

func (b *Bridge) CloseDrawer(ctx context.Context) error {
	b.mu.Lock()
	open := b.drawer != ""
	b.drawer = ""
	b.mu.Unlock()
	if !open {
		return nil
	}
	return b.renderer.CloseDrawer(ctx)
}

// DrawerTask is the id of the task shown in the drawer, empty when closed.
func (b *Bridge) DrawerTask() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drawer
}

func (b *Bridge) handle(ctx context.Context, ev board.Event) {
	var err error
	switch ev.Type {
	case board.EventBoardLoaded, board.EventBoardCleared:
		b.mu.Lock()
		b.elements = make(map[string]string)
		hadDrawer := b.drawer != ""
		b.drawer = ""
		b.mu.Unlock()
		if hadDrawer {
			err = b.renderer.CloseDrawer(ctx)
		}
		if resetErr := b.renderer.Reset(ctx, ev.BoardID); resetErr != nil {
			err = resetErr
		}
	case board.EventTaskUpdated, board.EventTaskAppended:
		if ev.Task == nil {
			err = cerr.NewError(cerr.Internal, "task event without task", nil)
			break
		}
		card := CardFor(ev.Task, b.store.Tier())
		b.mu.Lock()
		b.elements[ev.Task.ID] = card.ElementID
		inDrawer := b.drawer == ev.Task.ID
		b.mu.Unlock()
		err = b.renderer.UpsertCard(ctx, card)
		if err == nil && inDrawer {
			err = b.renderer.UpsertDrawer(ctx, ev.Task, card)
		}
	}
	if err != nil {
		slog.WarnContext(ctx, "render failed", "event", ev.Type, "board_id", ev.BoardID, "error", err)
	}
}
