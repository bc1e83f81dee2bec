package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

// EntityResponse wraps a single entity, or the reasons there is none.
type EntityResponse[T any] struct {
	Success       bool     `json:"success"`
	ErrorMessages []string `json:"errorMessages"`
	Data          *T       `json:"data,omitempty"`
}

// ListResponse wraps a list of entities. Data is empty, never null, on failure,
// so clients can tell "no matches" (success, empty) from "bad query" (failure).
type ListResponse[T any] struct {
	Success       bool     `json:"success"`
	ErrorMessages []string `json:"errorMessages"`
	Data          []T      `json:"data"`
}

func entityOK[T any](item T) EntityResponse[T] {
	return EntityResponse[T]{Success: true, ErrorMessages: []string{}, Data: &item}
}

func listOK[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Success: true, ErrorMessages: []string{}, Data: items}
}

func entityFailure[T any](err error) EntityResponse[T] {
	return EntityResponse[T]{ErrorMessages: messages(err)}
}

func listFailure[T any](err error) ListResponse[T] {
	return ListResponse[T]{ErrorMessages: messages(err), Data: []T{}}
}

func messages(err error) []string {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		out := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			out = append(out, fe.Error())
		}
		return out
	}

	var out []string
	for _, e := range errors.Flatten(err) {
		out = append(out, e.Error())
	}
	return out
}
