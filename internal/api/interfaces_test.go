package api

import (
	"github.com/carlfranklin/avnrepo/internal/repo"
)

//go:generate mockgen -source=interfaces_test.go -destination=mocks_test.go -package=api

type item struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

func (i item) ID() string { return i.Key }

type itemRepo interface {
	repo.Repo[item]
}
