package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
	"github.com/carlfranklin/avnrepo/pkg/mongotools"
)

const mongoStore = "mongo"

// Mongo stores one entity per document with the entity id as _id, so T must
// map its id field to "_id" in its bson tags.
type Mongo[T Entity] struct {
	coll   *mongo.Collection
	owned  bool
	schema *query.Schema[T]
	log    logger.Logger
}

func NewMongo[T Entity](
	ctx context.Context,
	cfg MongoConfig,
	collection string,
	schema *query.Schema[T],
	log logger.Logger,
) (*Mongo[T], error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRegistry(mongotools.Registry())

	if cfg.Auth.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		})
	}
	if cfg.Pool.MinSize > 0 {
		opts.SetMinPoolSize(cfg.Pool.MinSize)
	}
	if cfg.Pool.MaxSize > 0 {
		opts.SetMaxPoolSize(cfg.Pool.MaxSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapFail(err, "connect to mongo db")
	}

	m := NewMongoCollection(client.Database(cfg.Database).Collection(collection), schema, log)
	m.owned = true
	return m, nil
}

// NewMongoCollection wraps a collection whose client is managed by the caller.
func NewMongoCollection[T Entity](coll *mongo.Collection, schema *query.Schema[T], log logger.Logger) *Mongo[T] {
	return &Mongo[T]{
		coll:   coll,
		schema: schema,
		log:    log.With("mongo_repo"),
	}
}

func (m *Mongo[T]) GetAll(ctx context.Context) ([]T, error) {
	c, err := m.coll.Find(ctx, mongotools.All())
	if err != nil {
		return nil, storeErr(mongoStore, "find all", err)
	}

	items, err := mongotools.Collect[T](ctx, c)
	return items, storeErr(mongoStore, "read all", err)
}

func (m *Mongo[T]) GetByID(ctx context.Context, id string) (T, error) {
	var item T

	err := m.coll.FindOne(ctx, mongotools.ID(id)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return item, ErrNotFound
	}
	return item, storeErr(mongoStore, "find by id", err)
}

// Get loads the whole collection and evaluates filter in memory.
func (m *Mongo[T]) Get(ctx context.Context, filter query.Filter) (query.Result[T], error) {
	items, err := m.GetAll(ctx)
	if err != nil {
		return query.Result[T]{}, err
	}
	return query.Evaluate(ctx, m.schema, items, filter)
}

func (m *Mongo[T]) Insert(ctx context.Context, item T) (T, error) {
	if item.ID() == "" {
		return item, ErrMissingID
	}

	_, err := m.coll.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return item, ErrConflict
	}
	return item, storeErr(mongoStore, "insert", err)
}

func (m *Mongo[T]) Update(ctx context.Context, item T) (T, error) {
	r, err := m.coll.ReplaceOne(ctx, mongotools.ID(item.ID()), item)
	if err != nil {
		return item, storeErr(mongoStore, "replace", err)
	}

	if r.MatchedCount == 0 {
		return item, ErrNotFound
	}
	return item, nil
}

func (m *Mongo[T]) Delete(ctx context.Context, id string) (bool, error) {
	r, err := m.coll.DeleteOne(ctx, mongotools.ID(id))
	if err != nil {
		return false, storeErr(mongoStore, "delete", err)
	}
	return r.DeletedCount == 1, nil
}

func (m *Mongo[T]) DeleteAll(ctx context.Context) error {
	r, err := m.coll.DeleteMany(ctx, mongotools.All())
	if err != nil {
		return storeErr(mongoStore, "delete all", err)
	}

	m.log.Infof("deleted %d documents from %s", r.DeletedCount, m.coll.Name())
	return nil
}

func (m *Mongo[T]) Close(ctx context.Context) error {
	if !m.owned {
		return nil
	}

	err := m.coll.Database().Client().Disconnect(ctx)
	return errors.WrapFail(err, "close mongo db connection")
}
