package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/auth"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

var secret = []byte("test-secret")

func newTestServer(t *testing.T) (*Server, *api.Dispatcher) {
	t.Helper()
	srv := NewServer(WithSecret(secret), WithClock(func() time.Time {
		return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	}))
	srv.AddUser(board.User{ID: "u1", Email: "ann@example.com", Tier: workflow.TierPaid, Points: 0})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token, err := SignToken(secret, "u1", "ann@example.com")
	require.NoError(t, err)
	return srv, api.NewDispatcher(ts.URL, auth.StaticProvider{Token: token})
}

func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

var validFeatures = []board.Feature{
	{Name: board.FeatureCitizenship, Value: "BR"},
	{Name: board.FeatureDestinationCountry, Value: "PT"},
}

func createBoard(t *testing.T, d *api.Dispatcher) string {
	t.Helper()
	raw, err := d.Call(context.Background(), api.OpCreateBoard, map[string]any{"features": validFeatures}, nil)
	require.NoError(t, err)
	b := decodeMap(t, raw)
	assert.Equal(t, "PT", b["country"])
	return b["id"].(string)
}

func TestAuthentication(t *testing.T) {
	srv := NewServer(WithSecret(secret))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/countries", nil)
			require.NoError(t, err)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			res, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}

	wrong, err := SignToken([]byte("other"), "u1", "")
	require.NoError(t, err)
	_, err = api.NewDispatcher(ts.URL, auth.StaticProvider{Token: wrong}).Call(context.Background(), api.OpListCountries, nil, nil)
	assert.True(t, cerr.IsCode(err, cerr.Unauthenticated))
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(NewServer().Handler())
	defer ts.Close()
	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestUnverifiedTokens(t *testing.T) {
	srv := NewServer(WithDefaultUser("dev"))
	srv.AddUser(board.User{ID: "dev", Email: "dev@example.com"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	raw, err := api.NewDispatcher(ts.URL, auth.StaticProvider{Token: "anything"}).
		Call(context.Background(), api.OpGetUser, nil, api.Params{"userId": board.CurrentUser})
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", decodeMap(t, raw)["email"])
}

func TestBoardFlow(t *testing.T) {
	srv, d := newTestServer(t)
	ctx := context.Background()
	boardID := createBoard(t, d)

	raw, err := d.Call(ctx, api.OpSearchBoards, nil, api.Params{"owner": "ann@example.com"})
	require.NoError(t, err)
	var found []map[string]any
	require.NoError(t, json.Unmarshal(raw, &found))
	require.Len(t, found, 1)
	assert.Equal(t, boardID, found[0]["id"])

	raw, err = d.Call(ctx, api.OpGetBoard, nil, api.Params{"boardId": boardID})
	require.NoError(t, err)
	tasks := decodeMap(t, raw)["tasks"].([]any)
	require.Len(t, tasks, len(taskTemplate))
	first := tasks[0].(map[string]any)
	assert.NotContains(t, first, "comments")
	assert.NotContains(t, first, "detailsFetched")
	assert.Equal(t, "NOT_STARTED", first["status"])

	raw, err = d.Call(ctx, api.OpGetTask, nil, api.Params{"boardId": boardID, "taskId": "visa"})
	require.NoError(t, err)
	full := decodeMap(t, raw)
	assert.Contains(t, full, "comments")
	assert.Contains(t, full, "files")

	raw, err = d.Call(ctx, api.OpUpdateTask, map[string]any{"status": "READY"}, api.Params{"boardId": boardID, "taskId": "visa"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"clientTaskId": "visa", "status": "READY", "points": float64(30)}, decodeMap(t, raw))
	u, _ := srv.User("u1")
	assert.Equal(t, 30, u.Points)

	_, err = d.Call(ctx, api.OpUpdateTask, map[string]any{"status": "DONE"}, api.Params{"boardId": boardID, "taskId": "visa"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	raw, err = d.Call(ctx, api.OpCommentTask, map[string]any{"message": "submitted"}, api.Params{"boardId": boardID, "taskId": "visa"})
	require.NoError(t, err)
	comments := decodeMap(t, raw)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "u1", comments[0].(map[string]any)["author"])

	_, err = d.Call(ctx, api.OpGetTask, nil, api.Params{"boardId": boardID, "taskId": "nope"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestCreateBoardValidation(t *testing.T) {
	_, d := newTestServer(t)
	_, err := d.Call(context.Background(), api.OpCreateBoard, map[string]any{"features": []board.Feature{}}, nil)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestFiles(t *testing.T) {
	srv, d := newTestServer(t)
	ctx := context.Background()
	boardID := createBoard(t, d)
	params := api.Params{"boardId": boardID, "taskId": "bank"}

	raw, err := d.Call(ctx, api.OpUploadTaskFile, &api.FileUpload{
		Name: "statement.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7"),
	}, params)
	require.NoError(t, err)
	files := decodeMap(t, raw)["files"].([]any)
	require.Len(t, files, 1)
	file := files[0].(map[string]any)
	assert.Equal(t, "pending", file["status"])
	fileID := file["id"].(string)

	raw, err = d.Call(ctx, api.OpApproveFile, nil, api.Params{"fileId": fileID})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": fileID, "status": "approved"}, decodeMap(t, raw))

	task, ok := srv.Task(boardID, "bank")
	require.True(t, ok)
	assert.Equal(t, board.FileStatusApproved, task.Files[0].Status)

	raw, err = d.Call(ctx, api.OpGetFilesFolder, nil, api.Params{"userId": board.CurrentUser})
	require.NoError(t, err)
	var folder []board.FileAttachment
	require.NoError(t, json.Unmarshal(raw, &folder))
	require.Len(t, folder, 1)
	assert.Equal(t, "statement.pdf", folder[0].FileName)

	_, err = d.Call(ctx, api.OpRejectFile, nil, api.Params{"fileId": "missing"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestFailureInjection(t *testing.T) {
	srv, d := newTestServer(t)
	ctx := context.Background()

	srv.FailOperation(api.OpListCountries, http.StatusServiceUnavailable)
	_, err := d.Call(ctx, api.OpListCountries, nil, nil)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))

	srv.FailOperation(api.OpListCountries, 0)
	raw, err := d.Call(ctx, api.OpListCountries, nil, nil)
	require.NoError(t, err)
	var countries []board.Country
	require.NoError(t, json.Unmarshal(raw, &countries))
	assert.Len(t, countries, len(Countries))
}
