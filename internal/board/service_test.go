package board

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/api/apitest"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

var testUser = User{ID: "u1", Email: "ann@example.com", Tier: workflow.TierFree, Points: 40}

func TestLoadBoardSearchesLatest(t *testing.T) {
	old := Board{ID: "b-old", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	latest := Board{ID: "b-new", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	full := fixtureBoard()
	full.ID = "b-new"

	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpSearchBoards, []Board{old, latest}).
		Handle(api.OpGetBoard, func(_ context.Context, _ any, p api.Params) (any, error) {
			assert.Equal(t, "b-new", p["boardId"])
			return full, nil
		})
	svc := NewService(NewStore(), caller, "")

	require.NoError(t, svc.LoadBoard(context.Background(), ""))

	calls := caller.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, api.OpGetUser, calls[0].Operation)
	assert.Equal(t, CurrentUser, calls[0].Params["userId"])
	assert.Equal(t, "ann@example.com", calls[1].Params["owner"])

	b, err := svc.Store().Board()
	require.NoError(t, err)
	assert.Equal(t, "b-new", b.ID)
	assert.Equal(t, workflow.TierFree, svc.Store().Tier())
}

func TestLoadBoardNoBoards(t *testing.T) {
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpSearchBoards, []Board{})
	err := NewService(NewStore(), caller, "u1").LoadBoard(context.Background(), "")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestLoadBoardUnauthenticated(t *testing.T) {
	caller := apitest.NewCaller().Fail(api.OpGetUser, http.StatusUnauthorized)
	err := NewService(NewStore(), caller, "u1").LoadBoard(context.Background(), "b1")
	assert.True(t, cerr.IsCode(err, cerr.Unauthenticated))
	assert.Equal(t, 1, caller.Count(""))
}

func TestLoadBoardByID(t *testing.T) {
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpGetBoard, fixtureBoard())
	svc := NewService(NewStore(), caller, "u1")
	ctx := context.Background()

	require.NoError(t, svc.LoadBoardByID(ctx, "b1"))
	require.NoError(t, svc.LoadBoardByID(ctx, "b1"))
	assert.Equal(t, 1, caller.Count(api.OpGetUser))
	assert.Equal(t, 2, caller.Count(api.OpGetBoard))

	err := svc.LoadBoardByID(ctx, "")
	assert.True(t, cerr.IsValidation(err))
}

func TestCreateBoard(t *testing.T) {
	created := fixtureBoard()
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Handle(api.OpCreateBoard, func(_ context.Context, body any, _ api.Params) (any, error) {
			req, ok := body.(createBoardRequest)
			require.True(t, ok)
			assert.Len(t, req.Features, 2)
			assert.Equal(t, "yes", req.Questionnaire["pets"])
			return created, nil
		})
	svc := NewService(NewStore(), caller, "u1")

	b, err := svc.CreateBoard(context.Background(), []Feature{
		{FeatureCitizenship, "BR"},
		{FeatureDestinationCountry, "PT"},
	}, map[string]string{"pets": "yes"})
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Len(t, b.Tasks, 3)
}

func TestCreateBoardValidationMakesNoCalls(t *testing.T) {
	caller := apitest.NewCaller()
	_, err := NewService(NewStore(), caller, "u1").CreateBoard(context.Background(), []Feature{}, map[string]string{})
	assert.True(t, cerr.IsValidation(err))
	assert.Zero(t, caller.Count(""))
}

func TestFetchTaskDetails(t *testing.T) {
	var gets atomic.Int32
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpGetBoard, fixtureBoard()).
		Handle(api.OpGetTask, func(_ context.Context, _ any, p api.Params) (any, error) {
			gets.Add(1)
			return map[string]any{
				"clientTaskId": p["taskId"],
				"location":     nil,
				"comments":     []any{map[string]any{"id": "c1", "author": nil, "message": "welcome"}},
				"files":        []any{map[string]any{"id": "f1", "fileName": "lease.pdf", "status": "pending"}},
			}, nil
		})
	svc := NewService(NewStore(), caller, "u1")
	ctx := context.Background()
	require.NoError(t, svc.LoadBoardByID(ctx, "b1"))

	got, err := svc.FetchTaskDetails(ctx, "lease")
	require.NoError(t, err)
	assert.True(t, got.DetailsFetched)
	assert.Equal(t, "Lisbon", *got.Location)
	assert.Len(t, got.Comments, 1)
	assert.Equal(t, FileStatusPending, got.Files[0].Status)

	_, err = svc.FetchTaskDetails(ctx, "lease")
	require.NoError(t, err)
	assert.EqualValues(t, 1, gets.Load())

	require.NoError(t, svc.PrefetchDetails(ctx, 2))
	assert.EqualValues(t, 3, gets.Load())
	b, err := svc.Store().Board()
	require.NoError(t, err)
	for _, task := range b.Tasks {
		assert.True(t, task.DetailsFetched, task.ID)
	}
}

func TestFetchTaskDetailsPartialProjection(t *testing.T) {
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpGetBoard, fixtureBoard()).
		Respond(api.OpGetTask, map[string]any{"clientTaskId": "bank", "priority": 3})
	svc := NewService(NewStore(), caller, "u1")
	ctx := context.Background()
	require.NoError(t, svc.LoadBoardByID(ctx, "b1"))

	got, err := svc.FetchTaskDetails(ctx, "bank")
	require.NoError(t, err)
	assert.True(t, got.DetailsFetched)
	assert.Equal(t, 3, got.Priority)
}

func TestPrefetchDetailsReportsFailures(t *testing.T) {
	caller := apitest.NewCaller().
		Respond(api.OpGetUser, testUser).
		Respond(api.OpGetBoard, fixtureBoard()).
		Fail(api.OpGetTask, http.StatusInternalServerError)
	svc := NewService(NewStore(), caller, "u1")
	ctx := context.Background()
	require.NoError(t, svc.LoadBoardByID(ctx, "b1"))

	err := svc.PrefetchDetails(ctx, 4)
	require.Error(t, err)
	assert.True(t, api.IsRequestFailure(err))
	assert.Equal(t, 3, caller.Count(api.OpGetTask))
}

func TestAuxiliaryReads(t *testing.T) {
	caller := apitest.NewCaller().
		Respond(api.OpListCountries, []Country{{Code: "PT", Name: "Portugal"}}).
		Respond(api.OpGetFilesFolder, []FileAttachment{{ID: "f1", FileName: "a.pdf"}})
	svc := NewService(NewStore(), caller, "u1")

	countries, err := svc.ListCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Portugal", countries[0].Name)

	files, err := svc.FilesFolder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", files[0].FileName)
	assert.Equal(t, "u1", caller.Calls()[1].Params["userId"])
}
