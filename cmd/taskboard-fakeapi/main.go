package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/fakeapi"
	"github.com/kazz187/taskboard/internal/workflow"
	"github.com/kazz187/taskboard/pkg/clog"
)

var (
	app       = kingpin.New("taskboard-fakeapi", "In-memory board API for local development")
	userID    = app.Flag("user", "Seeded user ID").Default("dev-user").String()
	userEmail = app.Flag("email", "Seeded user email").Default("dev@example.com").String()
	userTier  = app.Flag("tier", "Seeded user tier (free or paid)").Default("free").Enum("free", "paid")
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Local() {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	opts := []fakeapi.Option{fakeapi.WithDefaultUser(*userID)}
	if env.JWTSecret != "" {
		opts = append(opts, fakeapi.WithSecret([]byte(env.JWTSecret)))
	}
	srv := fakeapi.NewServer(opts...)
	srv.AddUser(board.User{ID: *userID, Email: *userEmail, Tier: workflow.ParseTier(*userTier)})

	if env.JWTSecret != "" {
		token, err := fakeapi.SignToken([]byte(env.JWTSecret), *userID, *userEmail)
		if err != nil {
			slog.Error("failed to sign token", "error", err)
			os.Exit(1)
		}
		slog.Info("issued development token", "user_id", *userID, "token", token)
	}

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := srv.ListenAndServe(ctx, env.Host, env.Port); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
