package board

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/kazz187/taskboard/internal/merge"
	"github.com/kazz187/taskboard/internal/summary"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// SummarySaver persists the progress summary after loads and READY crossings.
type SummarySaver interface {
	Save(ctx context.Context, s summary.Summary) error
}

type StoreOption func(*Store)

func WithSummarySaver(s SummarySaver) StoreOption {
	return func(st *Store) { st.summaries = s }
}

// Store owns the active board and the signed-in user. Task pointers held by
// the store never change for the life of a board; mutations are copied into
// them. Everything handed out is a copy.
type Store struct {
	mu        sync.Mutex
	board     *Board
	tasks     map[string]*Task
	user      *User
	summaries SummarySaver
	events    *notifier
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		tasks:  make(map[string]*Task),
		events: newNotifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Subscribe(l Listener) string {
	return s.events.subscribe(l)
}

func (s *Store) Unsubscribe(id string) {
	s.events.unsubscribe(id)
}

func (s *Store) SetUser(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Store) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Tier is the signed-in user's tier, free when no user is known.
func (s *Store) Tier() workflow.Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return workflow.TierFree
	}
	return s.user.Tier
}

// Load makes b the active board, replacing any previous one, and persists
// the summary.
func (s *Store) Load(ctx context.Context, b *Board) error {
	if b == nil || b.ID == "" {
		return cerr.Validation("board has no id")
	}
	b = b.Clone()
	tasks := make(map[string]*Task, len(b.Tasks))
	for _, t := range b.Tasks {
		if t.ID == "" {
			return cerr.NewError(cerr.DataLoss, "task without id", fmt.Errorf("board %s", b.ID))
		}
		if _, dup := tasks[t.ID]; dup {
			return cerr.NewError(cerr.DataLoss, "duplicate task id", fmt.Errorf("board %s: task %s", b.ID, t.ID))
		}
		if !t.Status.Valid() {
			slog.WarnContext(ctx, "unknown task status, treating as not started", "task_id", t.ID, "status", t.Status)
			t.Status = workflow.StatusNotStarted
		}
		tasks[t.ID] = t
	}

	s.mu.Lock()
	s.board = b
	s.tasks = tasks
	sum := s.summaryLocked()
	events := []Event{{Type: EventBoardLoaded, BoardID: b.ID}}
	for _, t := range b.SortedTasks() {
		events = append(events, Event{Type: EventTaskUpdated, BoardID: b.ID, Task: t.Clone()})
	}
	s.mu.Unlock()

	s.events.publish(events...)
	s.persist(ctx, sum)
	return nil
}

// Clear drops the active board. Server data is untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	id := ""
	if s.board != nil {
		id = s.board.ID
	}
	s.board = nil
	s.tasks = make(map[string]*Task)
	s.mu.Unlock()
	if id != "" {
		s.events.publish(Event{Type: EventBoardCleared, BoardID: id})
	}
}

func (s *Store) Board() (*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil, errNoBoard
	}
	return s.board.Clone(), nil
}

func (s *Store) BoardID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return "", errNoBoard
	}
	return s.board.ID, nil
}

func (s *Store) FindTask(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// FindFile returns the task holding the file and the file itself.
func (s *Store) FindFile(fileID string) (*Task, FileAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil, FileAttachment{}, errNoBoard
	}
	for _, t := range s.board.Tasks {
		if f, ok := t.File(fileID); ok {
			return t.Clone(), f, nil
		}
	}
	return nil, FileAttachment{}, cerr.NewError(cerr.NotFound, "file not found", fmt.Errorf("file %s", fileID))
}

// Apply runs fn on a copy of the task and commits the result.
func (s *Store) Apply(ctx context.Context, id string, fn func(*Task)) (*Task, error) {
	return s.commit(ctx, id, func(t *Task) error {
		fn(t)
		return nil
	})
}

// ReplaceTask folds a server payload into the task. Keys the payload omits
// keep their local values.
func (s *Store) ReplaceTask(ctx context.Context, id string, payload map[string]any) (*Task, error) {
	return s.commit(ctx, id, func(t *Task) error {
		if err := merge.Into(t, payload); err != nil {
			return cerr.NewError(cerr.Internal, "failed to merge task", err)
		}
		if t.ID != id {
			return cerr.NewError(cerr.DataLoss, "payload changed task id", fmt.Errorf("task %s became %s", id, t.ID))
		}
		if HasDetails(payload) {
			t.DetailsFetched = true
		}
		if !t.Status.Valid() {
			return cerr.NewError(cerr.DataLoss, "payload carries unknown status", fmt.Errorf("task %s: %q", id, t.Status))
		}
		return nil
	})
}

// ReplaceFile folds a server payload into one file of a task.
func (s *Store) ReplaceFile(ctx context.Context, taskID, fileID string, payload map[string]any) (*Task, error) {
	return s.commit(ctx, taskID, func(t *Task) error {
		for i := range t.Files {
			if t.Files[i].ID != fileID {
				continue
			}
			if err := merge.Into(&t.Files[i], payload); err != nil {
				return cerr.NewError(cerr.Internal, "failed to merge file", err)
			}
			return nil
		}
		return cerr.NewError(cerr.NotFound, "file not found", fmt.Errorf("file %s on task %s", fileID, taskID))
	})
}

// AppendTask adds a task that did not exist on the loaded board.
func (s *Store) AppendTask(ctx context.Context, t *Task) error {
	if t == nil || t.ID == "" {
		return cerr.Validation("task has no id")
	}
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return errNoBoard
	}
	if _, dup := s.tasks[t.ID]; dup {
		s.mu.Unlock()
		return cerr.NewError(cerr.AlreadyExists, "task already exists", fmt.Errorf("task %s", t.ID))
	}
	nt := t.Clone()
	if !nt.Status.Valid() {
		nt.Status = workflow.StatusNotStarted
	}
	s.board.Tasks = append(s.board.Tasks, nt)
	s.tasks[nt.ID] = nt
	ev := Event{Type: EventTaskAppended, BoardID: s.board.ID, Task: nt.Clone()}
	var sum *summary.Summary
	if nt.RequiresDocument {
		x := s.summaryLocked()
		sum = &x
	}
	s.mu.Unlock()

	s.events.publish(ev)
	if sum != nil {
		s.persist(ctx, *sum)
	}
	return nil
}

func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return Progress{}
	}
	return CountProgress(s.board.Tasks)
}

func (s *Store) Summary() (summary.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return summary.Summary{}, errNoBoard
	}
	return s.summaryLocked(), nil
}

func (s *Store) commit(ctx context.Context, id string, mutate func(*Task) error) (*Task, error) {
	s.mu.Lock()
	cur, err := s.taskLocked(id)
	if err != nil {
		s.mu.Unlock()
		clog.AddError(ctx, err)
		return nil, err
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	delta := ReadyDelta(cur.Status, next.Status, cur.Points, next.Points)
	crossed := cur.Status != next.Status && (cur.Status == workflow.StatusReady || next.Status == workflow.StatusReady)
	*cur = *next
	if s.user != nil {
		s.user.Points += delta
	}
	var sum *summary.Summary
	if crossed {
		x := s.summaryLocked()
		sum = &x
	}
	out := cur.Clone()
	ev := Event{Type: EventTaskUpdated, BoardID: s.board.ID, Task: cur.Clone()}
	s.mu.Unlock()

	s.events.publish(ev)
	if sum != nil {
		s.persist(ctx, *sum)
	}
	return out, nil
}

func (s *Store) taskLocked(id string) (*Task, error) {
	if s.board == nil {
		return nil, errNoBoard
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not found", fmt.Errorf("task %s on board %s", id, s.board.ID))
	}
	return t, nil
}

func (s *Store) summaryLocked() summary.Summary {
	p := CountProgress(s.board.Tasks)
	email := s.board.OwnerEmail
	if email == "" && s.user != nil {
		email = s.user.Email
	}
	return summary.Summary{
		Country:     s.board.Country,
		BoardID:     s.board.ID,
		GoalCount:   strconv.Itoa(p.Goal),
		DoneCount:   strconv.Itoa(p.Done),
		CreatedDate: s.board.CreatedAt.Format(summary.DateLayout),
		OwnerEmail:  email,
	}
}

func (s *Store) persist(ctx context.Context, sum summary.Summary) {
	if s.summaries == nil {
		return
	}
	if err := s.summaries.Save(ctx, sum); err != nil {
		slog.WarnContext(ctx, "failed to persist board summary", "board_id", sum.BoardID, "error", err)
	}
}

// Progress counts document tasks: Goal requires a document, Done is the
// subset at READY.
type Progress struct {
	Goal int
	Done int
}

func CountProgress(tasks []*Task) Progress {
	var p Progress
	for _, t := range tasks {
		if !t.RequiresDocument {
			continue
		}
		p.Goal++
		if t.Status == workflow.StatusReady {
			p.Done++
		}
	}
	return p
}

// ReadyDelta is the change to the user's points when a task moves from one
// status to another. Entering READY awards the new point value, leaving it
// takes back the old one.
func ReadyDelta(from, to workflow.Status, fromPoints, toPoints int) int {
	switch {
	case from == to:
		return 0
	case to == workflow.StatusReady:
		return toPoints
	case from == workflow.StatusReady:
		return -fromPoints
	}
	return 0
}

// HasDetails reports whether a task payload is the full projection.
func HasDetails(payload map[string]any) bool {
	_, c := payload["comments"]
	_, f := payload["files"]
	return c && f
}
