package coordinator

import (
	"context"
	"fmt"
	"slices"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// UploadFile checks the file locally, lists it as pending and uploads it.
func (c *Coordinator) UploadFile(ctx context.Context, taskID string, upload *api.FileUpload) (*board.Task, error) {
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	pending := board.FileAttachment{
		ID:        localID(),
		FileName:  upload.Name,
		Status:    board.FileStatusPending,
		CreatedAt: c.now(),
	}
	dropPending := func(t *board.Task) {
		t.Files = slices.DeleteFunc(t.Files, func(f board.FileAttachment) bool { return f.ID == pending.ID })
	}

	return c.run(ctx, mutation{
		op:     "uploadFile",
		taskID: taskID,
		apply: func(t *board.Task) {
			t.Files = append(t.Files, pending)
		},
		request: func(boardID string) (api.Operation, any, api.Params) {
			return api.OpUploadTaskFile, upload, taskParams(boardID, taskID)
		},
		reconcile: func(ctx context.Context, payload map[string]any) (*board.Task, error) {
			// a response without the file list leaves the local entry in place
			if _, ok := payload["files"]; ok {
				if _, err := c.store.Apply(ctx, taskID, dropPending); err != nil {
					return nil, err
				}
			}
			return c.store.ReplaceTask(ctx, taskID, payload)
		},
		rollback: dropPending,
	})
}

func (c *Coordinator) ApproveFile(ctx context.Context, fileID string) (*board.Task, error) {
	return c.reviewFile(ctx, fileID, board.FileStatusApproved)
}

func (c *Coordinator) RejectFile(ctx context.Context, fileID string) (*board.Task, error) {
	return c.reviewFile(ctx, fileID, board.FileStatusRejected)
}

func (c *Coordinator) reviewFile(ctx context.Context, fileID string, status board.FileStatus) (*board.Task, error) {
	task, _, err := c.store.FindFile(fileID)
	if err != nil {
		return nil, err
	}
	op, name := api.OpApproveFile, "approveFile"
	if status == board.FileStatusRejected {
		op, name = api.OpRejectFile, "rejectFile"
	}
	setStatus := func(s board.FileStatus) func(*board.Task) {
		return func(t *board.Task) {
			for i := range t.Files {
				if t.Files[i].ID == fileID {
					t.Files[i].Status = s
				}
			}
		}
	}

	var previous board.FileStatus
	return c.run(ctx, mutation{
		op:     name,
		taskID: task.ID,
		prepare: func(snapshot *board.Task) error {
			f, ok := snapshot.File(fileID)
			if !ok {
				return cerr.NewError(cerr.NotFound, "file not found", fmt.Errorf("file %s left task %s", fileID, task.ID))
			}
			previous = f.Status
			return nil
		},
		apply: setStatus(status),
		request: func(string) (api.Operation, any, api.Params) {
			return op, nil, api.Params{"fileId": fileID}
		},
		reconcile: func(ctx context.Context, payload map[string]any) (*board.Task, error) {
			return c.store.ReplaceFile(ctx, task.ID, fileID, payload)
		},
		rollback: func(t *board.Task) { setStatus(previous)(t) },
	})
}
