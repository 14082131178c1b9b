package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "malformed request body", err)
	}
	return nil
}

func (s *Server) userLocked(id string) (*board.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "user not found", fmt.Errorf("user %s", id))
	}
	return u, nil
}

func (s *Server) boardLocked(id string) (*board.Board, error) {
	b, ok := s.boards[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "board not found", fmt.Errorf("board %s", id))
	}
	return b, nil
}

func (s *Server) taskLocked(boardID, taskID string) (*board.Task, error) {
	b, err := s.boardLocked(boardID)
	if err != nil {
		return nil, err
	}
	for _, t := range b.Tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "task not found", fmt.Errorf("task %s on board %s", taskID, boardID))
}

type createBoardRequest struct {
	Features      []board.Feature   `json:"features"`
	Questionnaire map[string]string `json:"questionnaire"`
}

func (s *Server) createBoard(r *http.Request) (any, error) {
	var req createBoardRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := board.ValidateFeatures(req.Features); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.userLocked(subjectFrom(r.Context()))
	if err != nil {
		return nil, err
	}
	b := newBoard(*owner, featureValue(req.Features, board.FeatureDestinationCountry), s.now())
	s.boards[b.ID] = b
	return boardProjection(b), nil
}

func (s *Server) searchBoards(r *http.Request) (any, error) {
	owner := chi.URLParam(r, "owner")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, b := range s.boards {
		if strings.EqualFold(b.OwnerEmail, owner) {
			out = append(out, searchProjection(b))
		}
	}
	return out, nil
}

func (s *Server) getBoard(r *http.Request) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.boardLocked(chi.URLParam(r, "boardId"))
	if err != nil {
		return nil, err
	}
	return boardProjection(b), nil
}

func (s *Server) getTask(r *http.Request) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(chi.URLParam(r, "boardId"), chi.URLParam(r, "taskId"))
	if err != nil {
		return nil, err
	}
	return fullProjection(t), nil
}

type updateTaskRequest struct {
	Status   *workflow.Status `json:"status"`
	Assignee *string          `json:"assignee"`
}

// updateTask answers with the changed fields only.
func (s *Server) updateTask(r *http.Request) (any, error) {
	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, cerr.Validationf("unknown status %q", *req.Status)
	}
	boardID := chi.URLParam(r, "boardId")
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(boardID, chi.URLParam(r, "taskId"))
	if err != nil {
		return nil, err
	}
	out := map[string]any{"clientTaskId": t.ID}
	if req.Status != nil {
		if owner, ok := s.users[s.boards[boardID].UserID]; ok {
			owner.Points += board.ReadyDelta(t.Status, *req.Status, t.Points, t.Points)
		}
		t.Status = *req.Status
		out["status"] = t.Status
		out["points"] = t.Points
	}
	if req.Assignee != nil {
		t.Assignee = req.Assignee
		out["assignee"] = t.Assignee
	}
	return out, nil
}

type commentRequest struct {
	Message string `json:"message"`
}

func (s *Server) commentTask(r *http.Request) (any, error) {
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, cerr.Validation("comment is empty")
	}
	author := subjectFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(chi.URLParam(r, "boardId"), chi.URLParam(r, "taskId"))
	if err != nil {
		return nil, err
	}
	t.Comments = append(t.Comments, board.Comment{
		ID:        uuid.NewString(),
		Author:    &author,
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: s.now(),
	})
	return map[string]any{"clientTaskId": t.ID, "comments": slices.Clone(t.Comments)}, nil
}

func (s *Server) uploadTaskFile(r *http.Request) (any, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, api.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "missing file part", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, api.MaxUploadSize+1))
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "unreadable file", err)
	}
	upload := api.FileUpload{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
	if err := upload.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(chi.URLParam(r, "boardId"), chi.URLParam(r, "taskId"))
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	t.Files = append(t.Files, board.FileAttachment{
		ID:        id,
		FileName:  header.Filename,
		Link:      "/files/" + id,
		Status:    board.FileStatusPending,
		CreatedAt: s.now(),
	})
	return map[string]any{"clientTaskId": t.ID, "files": slices.Clone(t.Files)}, nil
}

func (s *Server) reviewFile(status board.FileStatus) handlerFunc {
	return func(r *http.Request) (any, error) {
		fileID := chi.URLParam(r, "fileId")
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, b := range s.boards {
			for _, t := range b.Tasks {
				for i := range t.Files {
					if t.Files[i].ID == fileID {
						t.Files[i].Status = status
						return map[string]any{"id": fileID, "status": status}, nil
					}
				}
			}
		}
		return nil, cerr.NewError(cerr.NotFound, "file not found", fmt.Errorf("file %s", fileID))
	}
}

func (s *Server) resolveUser(r *http.Request) string {
	id := chi.URLParam(r, "userId")
	if id == board.CurrentUser {
		return subjectFrom(r.Context())
	}
	return id
}

func (s *Server) getUser(r *http.Request) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.userLocked(s.resolveUser(r))
	if err != nil {
		return nil, err
	}
	return *u, nil
}

func (s *Server) filesFolder(r *http.Request) (any, error) {
	userID := s.resolveUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.userLocked(userID); err != nil {
		return nil, err
	}
	out := []board.FileAttachment{}
	for _, b := range s.boards {
		if b.UserID != userID {
			continue
		}
		for _, t := range b.Tasks {
			out = append(out, t.Files...)
		}
	}
	return out, nil
}

func (s *Server) listCountries(*http.Request) (any, error) {
	return Countries, nil
}
