// Package fakeapi is an in-memory implementation of the board REST API for
// development and end-to-end tests. Update endpoints answer with partial
// projections of the task, as the production backend does.
package fakeapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

type Option func(*Server)

// WithSecret makes the server verify HS256 bearer tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithDefaultUser sets the user id assumed for tokens without a subject when
// no secret is configured.
func WithDefaultUser(id string) Option {
	return func(s *Server) { s.defaultUser = id }
}

type Server struct {
	secret      []byte
	defaultUser string
	now         func() time.Time

	mu       sync.Mutex
	users    map[string]*board.User
	boards   map[string]*board.Board
	failures map[api.Operation]int

	server *http.Server
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		defaultUser: "dev-user",
		now:         time.Now,
		users:       make(map[string]*board.User),
		boards:      make(map[string]*board.Board),
		failures:    make(map[api.Operation]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers or replaces a user.
func (s *Server) AddUser(u board.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// AddBoard stores a copy of b as it is.
func (s *Server) AddBoard(b *board.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[b.ID] = b.Clone()
}

// User returns a copy of the stored user.
func (s *Server) User(id string) (board.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return board.User{}, false
	}
	return *u, true
}

// Task returns a copy of the stored task.
func (s *Server) Task(boardID, taskID string) (*board.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(boardID, taskID)
	if err != nil {
		return nil, false
	}
	return t.Clone(), true
}

// FailOperation makes every call to op fail with status until cleared with
// a zero status.
func (s *Server) FailOperation(op api.Operation, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, op)
		return
	}
	s.failures[op] = status
}

// Handler serves the API routes, health checks included.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		clog.SlogChiMiddleware(),
		middleware.Recoverer,
	)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		s.routes(r)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cerr.WriteJSONError(r.Context(), w, cerr.NewError(cerr.NotFound, "not found", nil))
	})

	mux := http.NewServeMux()
	mux.Handle(grpchealth.NewHandler(
		grpchealth.NewStaticChecker(),
		connect.WithInterceptors(healthLogInterceptor()),
	))
	mux.Handle("/", r)
	return mux
}

func (s *Server) routes(r chi.Router) {
	r.Post("/boards", s.handle(api.OpCreateBoard, s.createBoard))
	r.Get("/boards/search/{owner}", s.handle(api.OpSearchBoards, s.searchBoards))
	r.Get("/boards/{boardId}", s.handle(api.OpGetBoard, s.getBoard))
	r.Get("/boards/{boardId}/tasks/{taskId}", s.handle(api.OpGetTask, s.getTask))
	r.Patch("/boards/{boardId}/tasks/{taskId}", s.handle(api.OpUpdateTask, s.updateTask))
	r.Post("/boards/{boardId}/tasks/{taskId}/comments", s.handle(api.OpCommentTask, s.commentTask))
	r.Post("/boards/{boardId}/tasks/{taskId}/files", s.handle(api.OpUploadTaskFile, s.uploadTaskFile))
	r.Post("/files/{fileId}/approve", s.handle(api.OpApproveFile, s.reviewFile(board.FileStatusApproved)))
	r.Post("/files/{fileId}/reject", s.handle(api.OpRejectFile, s.reviewFile(board.FileStatusRejected)))
	r.Get("/users/{userId}", s.handle(api.OpGetUser, s.getUser))
	r.Get("/users/{userId}/files-folder", s.handle(api.OpGetFilesFolder, s.filesFolder))
	r.Get("/countries", s.handle(api.OpListCountries, s.listCountries))
}

type handlerFunc func(r *http.Request) (any, error)

func (s *Server) handle(op api.Operation, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clog.AddAttribute(ctx, clog.OperationAttributeKey, string(op))
		s.mu.Lock()
		status, fail := s.failures[op]
		s.mu.Unlock()
		if fail {
			cerr.WriteJSONError(ctx, w, cerr.NewError(cerr.CodeFromHTTPStatus(status), "injected failure", nil))
			return
		}
		out, err := h(r)
		if err != nil {
			cerr.WriteJSONError(ctx, w, err)
			return
		}
		cerr.WriteJSON(ctx, w, http.StatusOK, out)
	}
}

func healthLogInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			res, err := next(ctx, req)
			slog.DebugContext(ctx, "health check", "procedure", req.Spec().Procedure, "error", err)
			return res, err
		}
	}
}

// ListenAndServe serves until ctx is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context, host, port string) error {
	addr := net.JoinHostPort(host, port)
	slog.Info("starting fake api", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.Handler()), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
