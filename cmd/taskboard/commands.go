package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/session"
	"github.com/kazz187/taskboard/internal/summary"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

type cli struct {
	session *session.Session
	storage storage.Storage
	out     io.Writer
}

func (c *cli) run(ctx context.Context, command string) error {
	switch command {
	case boardShowCmd.FullCommand():
		return c.load(ctx)
	case boardCreateCmd.FullCommand():
		return c.createBoard(ctx)
	case boardPrefetchCmd.FullCommand():
		if err := c.load(ctx); err != nil {
			return err
		}
		return c.session.Boards().PrefetchDetails(ctx, *boardPrefetchLimit)
	case taskNextCmd.FullCommand():
		return c.move(ctx, *taskNextID, workflow.DirectionNext)
	case taskPrevCmd.FullCommand():
		return c.move(ctx, *taskPrevID, workflow.DirectionPrevious)
	case taskReadyCmd.FullCommand():
		return c.move(ctx, *taskReadyID, workflow.DirectionReady)
	case taskDetailsCmd.FullCommand():
		if err := c.load(ctx); err != nil {
			return err
		}
		_, err := c.session.OpenTask(ctx, *taskDetailsID)
		return err
	case taskCommentCmd.FullCommand():
		if err := c.load(ctx); err != nil {
			return err
		}
		_, err := c.session.SubmitComment(ctx, *taskCommentID, *taskCommentMessage)
		return err
	case taskUploadCmd.FullCommand():
		return c.upload(ctx, *taskUploadID, *taskUploadPath)
	case fileApproveCmd.FullCommand():
		if err := c.load(ctx); err != nil {
			return err
		}
		_, err := c.session.ApproveFile(ctx, *fileApproveID)
		return err
	case fileRejectCmd.FullCommand():
		if err := c.load(ctx); err != nil {
			return err
		}
		_, err := c.session.RejectFile(ctx, *fileRejectID)
		return err
	case summaryShowCmd.FullCommand():
		return c.showSummary(ctx)
	case summaryWatchCmd.FullCommand():
		return c.watchSummary(ctx)
	case summaryClearCmd.FullCommand():
		return c.session.Clear(ctx)
	case countriesCmd.FullCommand():
		return c.countries(ctx)
	case folderCmd.FullCommand():
		return c.filesFolder(ctx)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) load(ctx context.Context) error {
	return c.session.LoadBoard(ctx, *boardID)
}

func (c *cli) move(ctx context.Context, taskID string, dir workflow.Direction) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	_, err := c.session.ChangeStatus(ctx, taskID, dir)
	return err
}

func (c *cli) createBoard(ctx context.Context) error {
	names := make([]string, 0, len(*boardCreateFeatures))
	for name := range *boardCreateFeatures {
		names = append(names, name)
	}
	sort.Strings(names)
	features := make([]board.Feature, 0, len(names))
	for _, name := range names {
		features = append(features, board.Feature{Name: name, Value: (*boardCreateFeatures)[name]})
	}
	b, err := c.session.CreateBoard(ctx, features, *boardCreateQuestions)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created board %s (%s)\n", b.ID, b.Country)
	return nil
}

func (c *cli) upload(ctx context.Context, taskID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	upload := &api.FileUpload{Name: filepath.Base(path), ContentType: contentType, Data: data}
	// fail before loading the board when the file cannot be sent anyway
	if err := upload.Validate(); err != nil {
		return err
	}
	if err := c.load(ctx); err != nil {
		return err
	}
	_, err = c.session.UploadFile(ctx, taskID, upload)
	return err
}

func (c *cli) printSummary(s summary.Summary) {
	w := tabwriter.NewWriter(c.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "board\t%s\n", s.BoardID)
	fmt.Fprintf(w, "country\t%s\n", s.Country)
	fmt.Fprintf(w, "owner\t%s\n", s.OwnerEmail)
	fmt.Fprintf(w, "created\t%s\n", s.CreatedDate)
	fmt.Fprintf(w, "progress\t%s/%s (%d%%)\n", s.DoneCount, s.GoalCount, s.Percent())
	_ = w.Flush()
}

func (c *cli) showSummary(ctx context.Context) error {
	s, err := c.session.Summaries().Load(ctx)
	if cerr.IsCode(err, cerr.NotFound) {
		fmt.Fprintln(c.out, "no board has been loaded yet")
		return nil
	}
	if err != nil {
		return err
	}
	c.printSummary(s)
	return nil
}

func (c *cli) watchSummary(ctx context.Context) error {
	local, ok := c.storage.(*storage.LocalStorage)
	if !ok {
		return fmt.Errorf("summary watch needs local storage")
	}
	if err := c.showSummary(ctx); err != nil {
		return err
	}
	return summary.Watch(ctx, local.FilePath(summary.Key), func(s summary.Summary) {
		fmt.Fprintln(c.out, "--")
		c.printSummary(s)
	})
}

func (c *cli) countries(ctx context.Context) error {
	list, err := c.session.Boards().ListCountries(ctx)
	if err != nil {
		return err
	}
	for _, country := range list {
		fmt.Fprintf(c.out, "%s\t%s\n", country.Code, country.Name)
	}
	return nil
}

func (c *cli) filesFolder(ctx context.Context) error {
	files, err := c.session.Boards().FilesFolder(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 2, 2, ' ', 0)
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.FileName, f.Status, f.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
