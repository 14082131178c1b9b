package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/merge"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// CurrentUser addresses the user the access token belongs to.
const CurrentUser = "me"

// Service loads and creates boards through the API and keeps the store in
// step with the responses.
type Service struct {
	store  *Store
	caller api.Caller
	userID string
}

func NewService(store *Store, caller api.Caller, userID string) *Service {
	if userID == "" {
		userID = CurrentUser
	}
	return &Service{store: store, caller: caller, userID: userID}
}

func (s *Service) Store() *Store {
	return s.store
}

// LoadUser fetches the signed-in user and records it in the store.
func (s *Service) LoadUser(ctx context.Context) (User, error) {
	raw, err := s.caller.Call(ctx, api.OpGetUser, nil, api.Params{"userId": s.userID})
	if err != nil {
		return User{}, err
	}
	var u User
	if err := decode(raw, &u); err != nil {
		return User{}, err
	}
	s.store.SetUser(u)
	return u, nil
}

// LoadBoard loads the board with the given id, or the owner's most recent
// board when boardID is empty.
func (s *Service) LoadBoard(ctx context.Context, boardID string) error {
	ctx = clog.WithOperation(ctx, "loadBoard", "")

	u, err := s.LoadUser(ctx)
	if err != nil {
		clog.AddError(ctx, err)
		return err
	}
	if boardID == "" {
		boardID, err = s.latestBoardID(ctx, u.Email)
		if err != nil {
			clog.AddError(ctx, err)
			return err
		}
	}
	return s.loadBoardByID(ctx, boardID)
}

// LoadBoardByID loads a board without searching. The user is fetched first
// when the store has none, because the tier decides the workflow.
func (s *Service) LoadBoardByID(ctx context.Context, boardID string) error {
	if boardID == "" {
		return cerr.Validation("board id is required")
	}
	if _, ok := s.store.User(); !ok {
		if _, err := s.LoadUser(ctx); err != nil {
			return err
		}
	}
	return s.loadBoardByID(ctx, boardID)
}

func (s *Service) loadBoardByID(ctx context.Context, boardID string) error {
	clog.AddAttribute(ctx, clog.BoardAttributeKey, boardID)
	raw, err := s.caller.Call(ctx, api.OpGetBoard, nil, api.Params{"boardId": boardID})
	if err != nil {
		return err
	}
	var b Board
	if err := decode(raw, &b); err != nil {
		return err
	}
	if err := s.store.Load(ctx, &b); err != nil {
		return err
	}
	slog.InfoContext(ctx, "board loaded", "board_id", b.ID, "tasks", len(b.Tasks))
	return nil
}

func (s *Service) latestBoardID(ctx context.Context, owner string) (string, error) {
	raw, err := s.caller.Call(ctx, api.OpSearchBoards, nil, api.Params{"owner": owner})
	if err != nil {
		return "", err
	}
	var found []Board
	if err := decode(raw, &found); err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", errNoBoardFound(owner)
	}
	latest := found[0]
	for _, b := range found[1:] {
		if b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	return latest.ID, nil
}

type createBoardRequest struct {
	Features      []Feature         `json:"features"`
	Questionnaire map[string]string `json:"questionnaire"`
}

// CreateBoard creates a board from the creation form and makes it active.
// Missing required features fail before any request is made.
func (s *Service) CreateBoard(ctx context.Context, features []Feature, questionnaire map[string]string) (*Board, error) {
	if err := ValidateFeatures(features); err != nil {
		return nil, err
	}
	if questionnaire == nil {
		questionnaire = map[string]string{}
	}
	if _, ok := s.store.User(); !ok {
		if _, err := s.LoadUser(ctx); err != nil {
			return nil, err
		}
	}
	raw, err := s.caller.Call(ctx, api.OpCreateBoard, createBoardRequest{Features: features, Questionnaire: questionnaire}, nil)
	if err != nil {
		return nil, err
	}
	var b Board
	if err := decode(raw, &b); err != nil {
		return nil, err
	}
	if err := s.store.Load(ctx, &b); err != nil {
		return nil, err
	}
	return s.store.Board()
}

// FetchTaskDetails merges the full task into the store the first time it is
// needed. Tasks already fetched are returned as they are.
func (s *Service) FetchTaskDetails(ctx context.Context, taskID string) (*Task, error) {
	t, err := s.store.FindTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.DetailsFetched {
		return t, nil
	}
	b, err := s.store.Board()
	if err != nil {
		return nil, err
	}
	raw, err := s.caller.Call(ctx, api.OpGetTask, nil, api.Params{"boardId": b.ID, "taskId": taskID})
	if err != nil {
		return nil, err
	}
	payload, err := merge.Decode(raw)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "malformed task response", err)
	}
	t, err = s.store.ReplaceTask(ctx, taskID, payload)
	if err != nil {
		return nil, err
	}
	// a projection without both collections still counts as seen
	if !t.DetailsFetched {
		return s.store.Apply(ctx, taskID, func(t *Task) { t.DetailsFetched = true })
	}
	return t, nil
}

// PrefetchDetails fetches every task not yet fetched, at most limit at a
// time. Individual failures are logged and the rest continue.
func (s *Service) PrefetchDetails(ctx context.Context, limit int) error {
	b, err := s.store.Board()
	if err != nil {
		return err
	}
	if limit < 1 {
		limit = 1
	}
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(limit)
	for _, t := range b.SortedTasks() {
		if t.DetailsFetched {
			continue
		}
		id := t.ID
		p.Go(func(ctx context.Context) error {
			if _, err := s.FetchTaskDetails(ctx, id); err != nil {
				slog.WarnContext(ctx, "failed to prefetch task details", "task_id", id, "error", err)
				return fmt.Errorf("task %s: %w", id, err)
			}
			return nil
		})
	}
	return p.Wait()
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Service) ListCountries(ctx context.Context) ([]Country, error) {
	raw, err := s.caller.Call(ctx, api.OpListCountries, nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Country
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilesFolder lists every file the user has uploaded across tasks.
func (s *Service) FilesFolder(ctx context.Context) ([]FileAttachment, error) {
	raw, err := s.caller.Call(ctx, api.OpGetFilesFolder, nil, api.Params{"userId": s.userID})
	if err != nil {
		return nil, err
	}
	var out []FileAttachment
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return cerr.NewError(cerr.Internal, "malformed response", fmt.Errorf("failed to decode %T: %w", v, err))
	}
	return nil
}
