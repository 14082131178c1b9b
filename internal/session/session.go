// Package session holds the state of one board view. A Session is built once
// and handed to whatever drives it; nothing in it is global.
package session

import (
	"context"
	"errors"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/coordinator"
	"github.com/kazz187/taskboard/internal/render"
	"github.com/kazz187/taskboard/internal/summary"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/storage"
)

type Config struct {
	Caller api.Caller
	// Storage keeps the progress summary. Nil disables it.
	Storage storage.Storage
	// Renderer draws the board. Nil runs headless.
	Renderer render.Renderer
	// UserID defaults to the token's own user.
	UserID string
}

type Session struct {
	store       *board.Store
	boards      *board.Service
	coordinator *coordinator.Coordinator
	bridge      *render.Bridge
	summaries   *summary.Repository
}

func New(ctx context.Context, cfg Config) *Session {
	s := &Session{}
	var opts []board.StoreOption
	if cfg.Storage != nil {
		s.summaries = summary.NewRepository(cfg.Storage)
		opts = append(opts, board.WithSummarySaver(s.summaries))
	}
	s.store = board.NewStore(opts...)
	s.boards = board.NewService(s.store, cfg.Caller, cfg.UserID)
	s.coordinator = coordinator.New(s.store, cfg.Caller)
	if cfg.Renderer != nil {
		s.bridge = render.NewBridge(s.store, cfg.Renderer)
		s.bridge.Attach(ctx)
	}
	return s
}

func (s *Session) Close() {
	if s.bridge != nil {
		s.bridge.Detach()
	}
}

func (s *Session) Store() *board.Store {
	return s.store
}

func (s *Session) Boards() *board.Service {
	return s.boards
}

// Summaries is nil when the session has no storage.
func (s *Session) Summaries() *summary.Repository {
	return s.summaries
}

// Subscribe registers a change listener on the store.
func (s *Session) Subscribe(l board.Listener) string {
	return s.store.Subscribe(l)
}

func (s *Session) Unsubscribe(id string) {
	s.store.Unsubscribe(id)
}

// LoadBoard loads boardID, or the user's latest board when it is empty.
func (s *Session) LoadBoard(ctx context.Context, boardID string) error {
	return s.boards.LoadBoard(ctx, boardID)
}

func (s *Session) CreateBoard(ctx context.Context, features []board.Feature, questionnaire map[string]string) (*board.Board, error) {
	return s.boards.CreateBoard(ctx, features, questionnaire)
}

func (s *Session) ChangeStatus(ctx context.Context, taskID string, dir workflow.Direction) (*board.Task, error) {
	return s.coordinator.ChangeStatus(ctx, taskID, dir)
}

func (s *Session) SubmitComment(ctx context.Context, taskID, message string) (*board.Task, error) {
	return s.coordinator.SubmitComment(ctx, taskID, message)
}

func (s *Session) UploadFile(ctx context.Context, taskID string, upload *api.FileUpload) (*board.Task, error) {
	return s.coordinator.UploadFile(ctx, taskID, upload)
}

func (s *Session) ApproveFile(ctx context.Context, fileID string) (*board.Task, error) {
	return s.coordinator.ApproveFile(ctx, fileID)
}

func (s *Session) RejectFile(ctx context.Context, fileID string) (*board.Task, error) {
	return s.coordinator.RejectFile(ctx, fileID)
}

// OpenTask shows the task in the drawer and fetches its details on first
// open. The drawer is redrawn when the details arrive.
func (s *Session) OpenTask(ctx context.Context, taskID string) (*board.Task, error) {
	if s.bridge != nil {
		if err := s.bridge.OpenDrawer(ctx, taskID); err != nil {
			return nil, err
		}
	}
	return s.boards.FetchTaskDetails(ctx, taskID)
}

// Clear drops the local board and the persisted summary. Server data is
// untouched.
func (s *Session) Clear(ctx context.Context) error {
	var err error
	if s.bridge != nil {
		err = s.bridge.CloseDrawer(ctx)
	}
	s.store.Clear()
	if s.summaries != nil {
		err = errors.Join(err, s.summaries.Clear(ctx))
	}
	return err
}
