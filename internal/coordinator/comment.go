package coordinator

import (
	"context"
	"slices"
	"strings"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type commentRequest struct {
	Message string `json:"message"`
}

// SubmitComment shows the comment at once under a local id. The server's
// comment list replaces it on success.
func (c *Coordinator) SubmitComment(ctx context.Context, taskID, message string) (*board.Task, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, cerr.Validation("comment is empty")
	}
	var author *string
	if u, ok := c.store.User(); ok {
		author = &u.ID
	}
	pending := board.Comment{
		ID:        localID(),
		Author:    author,
		Message:   message,
		CreatedAt: c.now(),
	}

	return c.run(ctx, mutation{
		op:     "submitComment",
		taskID: taskID,
		apply: func(t *board.Task) {
			t.Comments = append(t.Comments, pending)
		},
		request: func(boardID string) (api.Operation, any, api.Params) {
			return api.OpCommentTask, commentRequest{Message: message}, taskParams(boardID, taskID)
		},
		reconcile: func(ctx context.Context, payload map[string]any) (*board.Task, error) {
			return c.store.ReplaceTask(ctx, taskID, payload)
		},
		rollback: func(t *board.Task) {
			t.Comments = slices.DeleteFunc(t.Comments, func(cm board.Comment) bool { return cm.ID == pending.ID })
		},
	})
}
