package board

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventBoardLoaded  EventType = "board_loaded"
	EventBoardCleared EventType = "board_cleared"
	EventTaskUpdated  EventType = "task_updated"
	EventTaskAppended EventType = "task_appended"
)

// Event describes one store change. Task is a copy and is nil for board
// level events.
type Event struct {
	Type    EventType
	BoardID string
	Task    *Task
}

type Listener func(Event)

// notifier delivers events synchronously, in subscription order, so that a
// listener has observed a change before the mutating call returns.
type notifier struct {
	mu        sync.RWMutex
	order     []string
	listeners map[string]Listener
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[string]Listener)}
}

func (n *notifier) subscribe(l Listener) string {
	id := ulid.Make().String()
	n.mu.Lock()
	n.listeners[id] = l
	n.order = append(n.order, id)
	n.mu.Unlock()
	return id
}

func (n *notifier) unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[id]; !ok {
		return
	}
	delete(n.listeners, id)
	for i, o := range n.order {
		if o == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

func (n *notifier) publish(events ...Event) {
	n.mu.RLock()
	ls := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		ls = append(ls, n.listeners[id])
	}
	n.mu.RUnlock()
	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}
