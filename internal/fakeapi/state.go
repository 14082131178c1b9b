package fakeapi

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
)

// Countries is the fixed list served by listCountries.
var Countries = []board.Country{
	{Code: "CA", Name: "Canada"},
	{Code: "DE", Name: "Germany"},
	{Code: "ES", Name: "Spain"},
	{Code: "JP", Name: "Japan"},
	{Code: "PT", Name: "Portugal"},
}

// taskTemplate is the checklist every new board starts with.
var taskTemplate = []board.Task{
	{ID: "visa", Title: "Apply for a residence visa", Priority: 1, Difficulty: "hard", RequiresDocument: true, Points: 30},
	{ID: "tax-id", Title: "Get a tax number", Priority: 1, Difficulty: "easy", RequiresDocument: true, Points: 10},
	{ID: "bank", Title: "Open a bank account", Priority: 2, Difficulty: "medium", RequiresDocument: true, Points: 10},
	{ID: "housing", Title: "Sign a lease", Priority: 3, Difficulty: "medium", RequiresDocument: true, Points: 20},
	{ID: "health", Title: "Register with a health centre", Priority: 4, Difficulty: "easy", Points: 5},
}

func newBoard(owner board.User, country string, now time.Time) *board.Board {
	b := &board.Board{
		ID:         uuid.NewString(),
		UserID:     owner.ID,
		OwnerEmail: owner.Email,
		Country:    country,
		CreatedAt:  now,
	}
	for _, tmpl := range taskTemplate {
		t := tmpl.Clone()
		t.Status = workflow.StatusNotStarted
		t.Comments = []board.Comment{}
		t.Files = []board.FileAttachment{}
		t.PageType = "board"
		b.Tasks = append(b.Tasks, t)
	}
	return b
}

func featureValue(features []board.Feature, name string) string {
	for _, f := range features {
		if f.Name == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// listProjection is the minimal task shape of a board listing. It omits the
// comment and file collections.
func listProjection(t *board.Task) map[string]any {
	return map[string]any{
		"clientTaskId":     t.ID,
		"title":            t.Title,
		"status":           t.Status,
		"priority":         t.Priority,
		"difficulty":       t.Difficulty,
		"requiresDocument": t.RequiresDocument,
		"location":         t.Location,
		"deadline":         t.Deadline,
		"assignee":         t.Assignee,
		"points":           t.Points,
		"pageType":         t.PageType,
	}
}

// fullProjection is the detail shape. Locally tracked fields are left out.
func fullProjection(t *board.Task) map[string]any {
	out := listProjection(t)
	out["comments"] = slices.Clone(t.Comments)
	out["files"] = slices.Clone(t.Files)
	return out
}

func boardProjection(b *board.Board) map[string]any {
	tasks := make([]map[string]any, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		tasks = append(tasks, listProjection(t))
	}
	return map[string]any{
		"id":         b.ID,
		"userId":     b.UserID,
		"ownerEmail": b.OwnerEmail,
		"country":    b.Country,
		"createdAt":  b.CreatedAt,
		"tasks":      tasks,
	}
}

func searchProjection(b *board.Board) map[string]any {
	return map[string]any{
		"id":         b.ID,
		"ownerEmail": b.OwnerEmail,
		"country":    b.Country,
		"createdAt":  b.CreatedAt,
	}
}
