package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/pkg/storage"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "local", env.Env)
	assert.Equal(t, "http://localhost:3200", env.BaseURL)
	assert.Equal(t, 30*time.Second, env.Timeout)
	assert.Equal(t, "local", env.StorageEnv.Type)
	assert.Equal(t, "3200", env.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TASKBOARD_ENV", "production")
	t.Setenv("TASKBOARD_LOG_LEVEL", "warn")
	t.Setenv("TASKBOARD_HTTP_TIMEOUT", "5s")
	t.Setenv("TASKBOARD_STORAGE_TYPE", "redis")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.False(t, env.Local())
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
	assert.Equal(t, 5*time.Second, env.Timeout)
	assert.Equal(t, "redis", env.StorageEnv.Type)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("TASKBOARD_HTTP_TIMEOUT", "soon")
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"error", slog.LevelError},
		{"loud", slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, (&BaseEnv{LogLevel: tt.in}).SlogLevel())
		})
	}
	var nilEnv *BaseEnv
	assert.Equal(t, slog.LevelDebug, nilEnv.SlogLevel())
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	s, err := (&StorageEnv{Type: "local", BaseDir: t.TempDir()}).NewStorage(ctx)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	s, err = (&StorageEnv{Type: "redis", RedisAddr: mr.Addr(), RedisPrefix: "x:"}).NewStorage(ctx)
	require.NoError(t, err)
	assert.IsType(t, &storage.RedisStorage{}, s)

	_, err = (&StorageEnv{Type: "ftp"}).NewStorage(ctx)
	assert.Error(t, err)
}
