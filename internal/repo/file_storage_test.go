package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carlfranklin/avnrepo/pkg/logger"
)

func TestFileStorage_saveAndLoad(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "items.json")

	src := NewMemory(itemSchema, item{Key: "a", Name: "first"}, item{Key: "b", Name: "second"})
	storage := NewFileStorage[item](file, time.Hour, src, logger.NewStub())
	require.NoError(t, storage.Load())
	require.NoError(t, storage.Save())
	require.FileExists(t, file)

	// unchanged since the last save: nothing is written
	require.NoError(t, os.Remove(file))
	require.NoError(t, storage.Save())
	require.NoFileExists(t, file)

	_, err := src.Insert(ctx, item{Key: "c"})
	require.NoError(t, err)
	require.NoError(t, storage.Save())

	dst := NewMemory[item](itemSchema)
	require.NoError(t, NewFileStorage[item](file, time.Hour, dst, logger.NewStub()).Load())

	all, err := dst.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys(all))
}

func TestFileStorage_Load(t *testing.T) {
	dir := t.TempDir()
	m := NewMemory[item](itemSchema)

	missing := NewFileStorage[item](filepath.Join(dir, "missing.json"), time.Hour, m, logger.NewStub())
	require.NoError(t, missing.Load())

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o644))
	require.Error(t, NewFileStorage[item](broken, time.Hour, m, logger.NewStub()).Load())
}

func TestFileStorage_RunSavesOnStop(t *testing.T) {
	file := filepath.Join(t.TempDir(), "items.json")
	m := NewMemory(itemSchema, item{Key: "a"})
	storage := NewFileStorage[item](file, time.Hour, m, logger.NewStub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, storage.Run(ctx))
	require.FileExists(t, file)
}

func TestNew_memoryWithDir(t *testing.T) {
	dir := t.TempDir()
	// never canceled: the background saver must not race the temp dir cleanup
	ctx := context.Background()

	cfg := Config{
		Backend: BackendMemory,
		Memory:  MemoryConfig{Dir: dir, SaveInterval: time.Hour},
	}

	r, err := New(ctx, cfg, "items", itemSchema, logger.NewStub())
	require.NoError(t, err)

	_, err = r.Insert(ctx, item{Key: "a", Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, r.Close(ctx))

	reopened, err := New(ctx, cfg, "items", itemSchema, logger.NewStub())
	require.NoError(t, err)

	got, err := reopened.GetByID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "kept", got.Name)
}

func TestNew_unknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "redis"}, "items", itemSchema, logger.NewStub())
	require.Error(t, err)
}
