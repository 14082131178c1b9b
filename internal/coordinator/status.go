package coordinator

import (
	"context"
	"fmt"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type updateTaskRequest struct {
	Status workflow.Status `json:"status"`
}

// ChangeStatus moves a task one step along the user's workflow, or straight
// to READY. A task left on a blocked status after a downgrade moves along the
// restricted workflow's pass-through edges for that status.
func (c *Coordinator) ChangeStatus(ctx context.Context, taskID string, dir workflow.Direction) (*board.Task, error) {
	var from, target workflow.Status
	return c.run(ctx, mutation{
		op:     "changeStatus",
		taskID: taskID,
		prepare: func(snapshot *board.Task) error {
			tier := c.store.Tier()
			from = snapshot.Status
			var ok bool
			target, ok = workflow.Move(snapshot.Status, dir, tier)
			if !ok {
				return cerr.NewError(cerr.FailedPrecondition, "task cannot move further", fmt.Errorf("task %s at %s, direction %s", taskID, from, dir))
			}
			return nil
		},
		apply: func(t *board.Task) {
			t.Status = target
		},
		request: func(boardID string) (api.Operation, any, api.Params) {
			return api.OpUpdateTask, updateTaskRequest{Status: target}, taskParams(boardID, taskID)
		},
		reconcile: func(ctx context.Context, payload map[string]any) (*board.Task, error) {
			return c.store.ReplaceTask(ctx, taskID, payload)
		},
		rollback: func(t *board.Task) {
			t.Status = from
		},
	})
}
