package repo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

type snapshotter[T any] interface {
	Snapshot() ([]T, uint64)
	Restore([]T)
}

// FileStorage persists a memory store as a JSON array. It loads the file once
// and then writes a new copy on every tick if the store has changed since.
type FileStorage[T any] struct {
	fileName string
	interval time.Duration
	model    snapshotter[T]
	log      logger.Logger

	mu    sync.Mutex
	saved uint64
}

func NewFileStorage[T any](
	fileName string,
	interval time.Duration,
	model snapshotter[T],
	log logger.Logger,
) *FileStorage[T] {
	return &FileStorage[T]{
		fileName: fileName,
		interval: interval,
		model:    model,
		log:      log.With("file_storage"),
	}
}

// Load restores the model from the file. A missing file is not an error.
func (s *FileStorage[T]) Load() error {
	s.log.Infof("reading data from %s", s.fileName)

	data, err := os.ReadFile(s.fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.WrapFailf(err, "read %s", s.fileName)
	}

	var items []T
	err = json.Unmarshal(data, &items)
	if err != nil {
		return errors.WrapFailf(err, "decode %s", s.fileName)
	}

	s.model.Restore(items)

	s.mu.Lock()
	_, s.saved = s.model.Snapshot()
	s.mu.Unlock()
	return nil
}

// Run saves periodically until ctx is done, then saves one last time.
func (s *FileStorage[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.log.Warn(s.Save())
		case <-ctx.Done():
			return s.Save()
		}
	}
}

// Save writes the current contents if they changed since the last save.
func (s *FileStorage[T]) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, revision := s.model.Snapshot()
	if revision == s.saved {
		return nil
	}

	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return errors.WrapFail(err, "encode snapshot")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.fileName), filepath.Base(s.fileName)+".*")
	if err != nil {
		return errors.WrapFail(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return errors.WrapFailf(err, "write %s", tmp.Name())
	}

	err = tmp.Close()
	if err != nil {
		return errors.WrapFailf(err, "close %s", tmp.Name())
	}

	err = os.Rename(tmp.Name(), s.fileName)
	if err != nil {
		return errors.WrapFailf(err, "replace %s", s.fileName)
	}

	s.log.Infof("saved %d items to %s", len(items), s.fileName)
	s.saved = revision
	return nil
}

// persistentMemory flushes its file storage on Close.
type persistentMemory[T Entity] struct {
	*Memory[T]
	storage *FileStorage[T]
}

func (p persistentMemory[T]) Close(ctx context.Context) error {
	return errors.WrapFail(p.storage.Save(), "save memory store")
}
