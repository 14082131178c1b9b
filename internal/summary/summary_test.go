package summary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

var sample = Summary{
	Country:     "PT",
	BoardID:     "b1",
	GoalCount:   "4",
	DoneCount:   "1",
	CreatedDate: "2026-10-01",
	OwnerEmail:  "ann@example.com",
}

func TestRepositoryLocal(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewRepository(s)
	ctx := context.Background()

	_, err = repo.Load(ctx)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, repo.Save(ctx, sample))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
	assert.Equal(t, 25, got.Percent())

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx))
}

func TestRepositoryRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRepository(storage.NewRedisStorage(client, "tb:"))
	require.NoError(t, repo.Save(context.Background(), sample))

	raw, err := mr.Get("tb:" + Key)
	require.NoError(t, err)
	assert.Contains(t, raw, "boardId: b1")
	assert.Contains(t, raw, `goalCount: "4"`)
}

func TestSaveOverwritesWholeDocument(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewRepository(s)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sample))
	require.NoError(t, repo.Save(ctx, Summary{BoardID: "b2", GoalCount: "0", DoneCount: "0"}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{BoardID: "b2", GoalCount: "0", DoneCount: "0"}, got)
	assert.Zero(t, got.Percent())
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("country: [unterminated"))
	assert.True(t, cerr.IsCode(err, cerr.DataLoss))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	repo := NewRepository(s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Summary, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, s.FilePath(Key), func(sum Summary) { got <- sum })
	}()

	// give the watcher time to register before writing
	require.Eventually(t, func() bool {
		_ = repo.Save(context.Background(), sample)
		select {
		case sum := <-got:
			assert.Equal(t, sample, sum)
			return true
		default:
			return false
		}
	}, 4*time.Second, 200*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644))
	cancel()
	assert.NoError(t, <-done)
}
