package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const defaultSaveInterval = 30 * time.Second

// Entity is anything stored by a Repo: it only has to know its own id.
type Entity interface {
	ID() string
}

// Repo is the data-access contract shared by the server backends and the HTTP client.
type Repo[T Entity] interface {
	GetAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Get(ctx context.Context, filter query.Filter) (query.Result[T], error)

	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) (deleted bool, err error)
	DeleteAll(ctx context.Context) error

	Close(ctx context.Context) error
}

var (
	ErrNotFound  = errors.Error("entity not found")
	ErrConflict  = errors.Error("entity already exists")
	ErrMissingID = errors.Error("entity has no id")
)

// StoreAccessError is a failure of the backing store. It is passed through
// unchanged by the query engine and never retried by the repositories.
type StoreAccessError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("%s: can't %s: %s", e.Store, e.Op, e.Err)
}

func (e *StoreAccessError) Unwrap() error {
	return e.Err
}

func storeErr(store, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreAccessError{Store: store, Op: op, Err: err}
}

// New opens the backend selected by cfg for one kind of entity. source names
// the collection, table or snapshot file. A file-backed memory store keeps
// saving in the background until ctx is done.
func New[T Entity](
	ctx context.Context,
	cfg Config,
	source string,
	schema *query.Schema[T],
	log logger.Logger,
	seed ...T,
) (Repo[T], error) {
	switch cfg.Backend {
	case BackendMemory, "":
		m := NewMemory(schema, seed...)
		if cfg.Memory.Dir == "" {
			return m, nil
		}

		interval := cfg.Memory.SaveInterval
		if interval <= 0 {
			interval = defaultSaveInterval
		}

		err := os.MkdirAll(cfg.Memory.Dir, 0o755)
		if err != nil {
			return nil, errors.WrapFail(err, "create snapshot dir")
		}

		storage := NewFileStorage[T](filepath.Join(cfg.Memory.Dir, source+".json"), interval, m, log)
		err = storage.Load()
		if err != nil {
			return nil, errors.WrapFail(err, "load memory snapshot")
		}

		go func() {
			log.Error(errors.WrapFail(storage.Run(ctx), "save memory snapshot"))
		}()
		return persistentMemory[T]{Memory: m, storage: storage}, nil

	case BackendMongo:
		m, err := NewMongo(ctx, cfg.Mongo, source, schema, log)
		if err != nil {
			return nil, err
		}
		return m, nil

	case BackendSQL:
		s, err := NewSQL(cfg.SQL, source, schema, log)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}
