package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

func newStore(t *testing.T, tier workflow.Tier) *board.Store {
	t.Helper()
	s := board.NewStore()
	s.SetUser(board.User{ID: "u1", Tier: tier})
	return s
}

func testBoard() *board.Board {
	return &board.Board{ID: "b1", Tasks: []*board.Task{
		{ID: "visa", Title: "Visa", Status: workflow.StatusRequiresChanges, Priority: 2, Points: 10},
		{ID: "bank", Title: "Bank account", Status: workflow.StatusNotStarted, Priority: 1},
	}}
}

func TestBridgeFollowsStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, workflow.TierFree)
	rec := NewRecorder()
	bridge := NewBridge(store, rec)
	bridge.Attach(ctx)
	defer bridge.Detach()

	require.NoError(t, store.Load(ctx, testBoard()))
	assert.Equal(t, "b1", rec.BoardID)
	assert.Equal(t, []string{"task-card-bank", "task-card-visa"}, rec.Order)

	card, ok := rec.Card("visa")
	require.True(t, ok)
	// REQUIRES_CHANGES is not reachable on the free tier
	assert.Equal(t, workflow.StatusInProgress, card.Status)

	id, ok := bridge.ElementID("visa")
	require.True(t, ok)
	assert.Equal(t, "task-card-visa", id)

	_, err := store.Apply(ctx, "bank", func(t *board.Task) { t.Status = workflow.StatusInProgress })
	require.NoError(t, err)
	card, _ = rec.Card("bank")
	assert.Equal(t, workflow.StatusInProgress, card.Status)

	require.NoError(t, store.AppendTask(ctx, &board.Task{ID: "school"}))
	_, ok = rec.Card("school")
	assert.True(t, ok)
}

func TestBridgeAttachDrawsCurrentBoard(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, workflow.TierPaid)
	require.NoError(t, store.Load(ctx, testBoard()))

	rec := NewRecorder()
	bridge := NewBridge(store, rec)
	bridge.Attach(ctx)
	bridge.Attach(ctx)

	assert.Len(t, rec.Order, 2)
	card, _ := rec.Card("visa")
	assert.Equal(t, workflow.StatusRequiresChanges, card.Status)

	bridge.Detach()
	_, err := store.Apply(ctx, "bank", func(t *board.Task) { t.Priority = 9 })
	require.NoError(t, err)
	card, _ = rec.Card("bank")
	assert.Equal(t, 1, card.Priority)
}

func TestBridgeDrawer(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, workflow.TierPaid)
	rec := NewRecorder()
	bridge := NewBridge(store, rec)
	bridge.Attach(ctx)
	require.NoError(t, store.Load(ctx, testBoard()))

	err := bridge.OpenDrawer(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, bridge.OpenDrawer(ctx, "visa"))
	assert.Equal(t, "visa", bridge.DrawerTask())
	require.NotNil(t, rec.Drawer)

	_, err = store.Apply(ctx, "visa", func(t *board.Task) { t.Points = 15 })
	require.NoError(t, err)
	assert.Equal(t, 15, rec.Drawer.Points)

	_, err = store.Apply(ctx, "bank", func(t *board.Task) { t.Points = 3 })
	require.NoError(t, err)
	assert.Equal(t, "visa", rec.Drawer.TaskID)

	require.NoError(t, bridge.CloseDrawer(ctx))
	assert.Nil(t, rec.Drawer)
	assert.Empty(t, bridge.DrawerTask())

	require.NoError(t, bridge.OpenDrawer(ctx, "bank"))
	require.NoError(t, store.Load(ctx, testBoard()))
	assert.Nil(t, rec.Drawer)
}

func TestTextRenderer(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, WithTextColor(false))

	require.NoError(t, r.Reset(ctx, "b1"))
	card := Card{ElementID: "task-card-visa", TaskID: "visa", Title: "Visa", Status: workflow.StatusInProgress, Points: 10, RequiresDocument: true}
	require.NoError(t, r.UpsertCard(ctx, card))
	assert.Contains(t, buf.String(), "board b1")
	assert.Contains(t, buf.String(), "[IN_PROGRESS     ]")
	assert.Contains(t, buf.String(), "(document)")

	buf.Reset()
	require.NoError(t, r.UpsertCard(ctx, card))
	assert.Empty(t, buf.String())

	card.Status = workflow.StatusReady
	require.NoError(t, r.UpsertCard(ctx, card))
	out := buf.String()
	assert.Contains(t, out, "--- task-card-visa")
	assert.Contains(t, out, "-[IN_PROGRESS     ]")
	assert.Contains(t, out, "+[READY           ]")
}

func TestTextRendererDrawer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, WithTextColor(false))
	loc := "Lisbon"
	task := &board.Task{
		ID:       "lease",
		Location: &loc,
		Comments: []board.Comment{{Message: "welcome"}},
		Files:    []board.FileAttachment{{ID: "f1", FileName: "lease.pdf", Status: board.FileStatusApproved}},
	}
	require.NoError(t, r.UpsertDrawer(context.Background(), task, CardFor(task, workflow.TierPaid)))
	out := buf.String()
	assert.Contains(t, out, "== lease ==")
	assert.Contains(t, out, "location: Lisbon")
	assert.Contains(t, out, "support: welcome")
	assert.Contains(t, out, "file f1 lease.pdf (approved)")
}
