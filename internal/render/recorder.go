package render

import (
	"context"
	"sync"

	"github.com/kazz187/taskboard/internal/board"
)

// Recorder is a headless Renderer that keeps the last card per element.
type Recorder struct {
	mu      sync.Mutex
	BoardID string
	Cards   map[string]Card
	Order   []string // element ids in first-seen order
	Drawer  *Card
	Upserts int
}

func NewRecorder() *Recorder {
	return &Recorder{Cards: make(map[string]Card)}
}

func (r *Recorder) Reset(_ context.Context, boardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BoardID = boardID
	r.Cards = make(map[string]Card)
	r.Order = nil
	return nil
}

func (r *Recorder) UpsertCard(_ context.Context, card Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Cards[card.ElementID]; !ok {
		r.Order = append(r.Order, card.ElementID)
	}
	r.Cards[card.ElementID] = card
	r.Upserts++
	return nil
}

func (r *Recorder) UpsertDrawer(_ context.Context, _ *board.Task, card Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Drawer = &card
	return nil
}

func (r *Recorder) CloseDrawer(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Drawer = nil
	return nil
}

func (r *Recorder) Card(taskID string) (Card, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Cards[CardElementID(taskID)]
	return c, ok
}
