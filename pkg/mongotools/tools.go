package mongotools

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

func All() bson.M {
	return bson.M{}
}

func ID(id string) bson.M {
	return bson.M{"_id": id}
}

// Collect decodes every document left in c and closes it.
func Collect[T any](ctx context.Context, c *mongo.Cursor) ([]T, error) {
	defer c.Close(ctx)

	items := make([]T, 0, c.RemainingBatchLength())
	for c.Next(ctx) {
		var item T
		err := c.Decode(&item)
		if err != nil {
			return nil, errors.WrapFail(err, "decode item")
		}
		items = append(items, item)
	}

	return items, errors.WrapFail(c.Err(), "iterate cursor")
}
