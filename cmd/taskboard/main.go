package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/auth"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/render"
	"github.com/kazz187/taskboard/internal/session"
	"github.com/kazz187/taskboard/pkg/clog"
)

var (
	app     = kingpin.New("taskboard", "Relocation task board client")
	boardID = app.Flag("board", "Board ID (defaults to your latest board)").Short('b').String()
	noColor = app.Flag("no-color", "Disable colored output").Bool()

	// Board commands
	boardCmd = app.Command("board", "Board commands")

	boardShowCmd = boardCmd.Command("show", "Load a board and print its tasks").Alias("load").Default()

	boardCreateCmd       = boardCmd.Command("create", "Create a board")
	boardCreateFeatures  = boardCreateCmd.Flag("feature", "Feature as name=value; citizenship and destination_country are required").Short('f').StringMap()
	boardCreateQuestions = boardCreateCmd.Flag("answer", "Questionnaire answer as key=value").Short('a').StringMap()

	boardPrefetchCmd   = boardCmd.Command("prefetch", "Fetch details of every task")
	boardPrefetchLimit = boardPrefetchCmd.Flag("concurrency", "Parallel requests").Default("4").Int()

	// Task commands
	taskCmd = app.Command("task", "Task commands")

	taskNextCmd = taskCmd.Command("next", "Move a task forward")
	taskNextID  = taskNextCmd.Arg("task", "Task ID").Required().String()

	taskPrevCmd = taskCmd.Command("prev", "Move a task back")
	taskPrevID  = taskPrevCmd.Arg("task", "Task ID").Required().String()

	taskReadyCmd = taskCmd.Command("ready", "Mark a task ready")
	taskReadyID  = taskReadyCmd.Arg("task", "Task ID").Required().String()

	taskDetailsCmd = taskCmd.Command("details", "Show a task with comments and files")
	taskDetailsID  = taskDetailsCmd.Arg("task", "Task ID").Required().String()

	taskCommentCmd     = taskCmd.Command("comment", "Comment on a task")
	taskCommentID      = taskCommentCmd.Arg("task", "Task ID").Required().String()
	taskCommentMessage = taskCommentCmd.Arg("message", "Comment text").Required().String()

	taskUploadCmd  = taskCmd.Command("upload", "Attach a PDF, JPEG or PNG file to a task")
	taskUploadID   = taskUploadCmd.Arg("task", "Task ID").Required().String()
	taskUploadPath = taskUploadCmd.Arg("path", "File to upload").Required().ExistingFile()

	// File commands
	fileCmd = app.Command("file", "File review commands")

	fileApproveCmd = fileCmd.Command("approve", "Approve an uploaded file")
	fileApproveID  = fileApproveCmd.Arg("file", "File ID").Required().String()

	fileRejectCmd = fileCmd.Command("reject", "Reject an uploaded file")
	fileRejectID  = fileRejectCmd.Arg("file", "File ID").Required().String()

	// Summary commands
	summaryCmd      = app.Command("summary", "Stored progress summary")
	summaryShowCmd  = summaryCmd.Command("show", "Print the stored summary").Default()
	summaryWatchCmd = summaryCmd.Command("watch", "Print the summary each time it changes")
	summaryClearCmd = summaryCmd.Command("clear", "Forget the local board and summary")

	countriesCmd = app.Command("countries", "List supported countries")
	folderCmd    = app.Command("files", "List every file you uploaded")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Local() {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level), clog.WithColor(!*noColor))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := env.StorageEnv.NewStorage(ctx)
	if err != nil {
		slog.Error("failed to create storage", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewChain(
		auth.StaticProvider{Token: env.AccessToken},
		auth.FileProvider{Path: env.TokenFile},
	)
	dispatcher := api.NewDispatcher(env.BaseURL, tokens, api.WithTimeout(env.Timeout))

	s := session.New(ctx, session.Config{
		Caller:   dispatcher,
		Storage:  store,
		Renderer: render.NewTextRenderer(os.Stdout, render.WithTextColor(!*noColor)),
		UserID:   env.UserID,
	})
	defer s.Close()

	c := &cli{session: s, storage: store, out: os.Stdout}
	if err := c.run(ctx, command); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if api.IsRequestFailure(err) {
			// local state was rolled back; the same command can be run again
			fmt.Fprintln(os.Stderr, "The board was left unchanged. Try again.")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

