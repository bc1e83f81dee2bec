package customers

import (
	"context"

	"github.com/carlfranklin/avnrepo/internal/repo"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const Source = "customers"

// New opens the customers repository. An in-memory store without a snapshot
// starts with Seed.
func New(ctx context.Context, log logger.Logger, cfg repo.Config) (repo.Repo[Customer], error) {
	db, err := repo.New(ctx, cfg, Source, Schema, log, Seed()...)
	if err != nil {
		return nil, errors.WrapFail(err, "init customers repo")
	}
	return db, nil
}
