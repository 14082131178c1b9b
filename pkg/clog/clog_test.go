package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "a", 1)
	AddAttributes(ctx, map[string]any{"b": "two"})

	assert.Equal(t, 1, GetAttribute[int](ctx, "a"))
	assert.Equal(t, "two", GetAttribute[string](ctx, "b"))
	assert.Equal(t, "", GetAttribute[string](ctx, "a"), "mismatched type yields zero value")

	child := ContextWithSlog(ctx)
	AddAttribute(child, "c", true)
	assert.True(t, GetAttribute[bool](child, "c"))
	assert.Equal(t, 1, GetAttribute[int](child, "a"), "child inherits parent attributes")
	assert.False(t, GetAttribute[bool](ctx, "c"), "child attributes stay out of the parent")
}

func TestAddAttributeWithoutSlogContext(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "a", 1)
	assert.Nil(t, GetAttributes(ctx))
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug))))

	ctx := WithOperation(context.Background(), "changeStatus", "task-1")
	AddError(ctx, errors.New("boom"))
	logger.InfoContext(ctx, "rolled back", "from", "IN_PROGRESS")

	out := buf.String()
	require.Contains(t, out, "INFO changeStatus task-1 rolled back boom")
	assert.Contains(t, out, "    from=IN_PROGRESS\n")
}

func TestTextHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false)))
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestHTTPStatusToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(200))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(499))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(404))
	assert.Equal(t, LevelError, HTTPStatusToLevel(503))
	assert.Equal(t, slog.LevelWarn, LevelWarn.Slog())
}
