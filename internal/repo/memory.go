package repo

import (
	"context"
	"slices"
	"sync"

	"github.com/carlfranklin/avnrepo/internal/query"
)

// Memory keeps entities in insertion order. Queries run over a snapshot, so
// writers are never blocked by a long evaluation.
type Memory[T Entity] struct {
	mu       sync.RWMutex
	items    []T
	index    map[string]int
	revision uint64

	schema *query.Schema[T]
}

func NewMemory[T Entity](schema *query.Schema[T], seed ...T) *Memory[T] {
	m := &Memory[T]{schema: schema}
	m.Restore(seed)
	return m
}

func (m *Memory[T]) GetAll(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.items), nil
}

func (m *Memory[T]) GetByID(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return m.items[i], nil
}

func (m *Memory[T]) Get(ctx context.Context, filter query.Filter) (query.Result[T], error) {
	items, err := m.GetAll(ctx)
	if err != nil {
		return query.Result[T]{}, err
	}
	return query.Evaluate(ctx, m.schema, items, filter)
}

func (m *Memory[T]) Insert(_ context.Context, item T) (T, error) {
	id := item.ID()
	if id == "" {
		return item, ErrMissingID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; ok {
		return item, ErrConflict
	}

	m.index[id] = len(m.items)
	m.items = append(m.items, item)
	m.revision++
	return item, nil
}

func (m *Memory[T]) Update(_ context.Context, item T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[item.ID()]
	if !ok {
		return item, ErrNotFound
	}

	m.items[i] = item
	m.revision++
	return item, nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return false, nil
	}

	m.items = slices.Delete(m.items, i, i+1)
	delete(m.index, id)
	for j := i; j < len(m.items); j++ {
		m.index[m.items[j].ID()] = j
	}
	m.revision++
	return true, nil
}

func (m *Memory[T]) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.index = make(map[string]int)
	m.revision++
	return nil
}

func (m *Memory[T]) Close(context.Context) error {
	return nil
}

// Snapshot returns a copy of the contents and the revision they belong to.
func (m *Memory[T]) Snapshot() ([]T, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.items), m.revision
}

// Restore replaces the contents. Later duplicates of an id win.
func (m *Memory[T]) Restore(items []T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]T, 0, len(items))
	m.index = make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := m.index[item.ID()]; ok {
			m.items[i] = item
			continue
		}
		m.index[item.ID()] = len(m.items)
		m.items = append(m.items, item)
	}
	m.revision++
}
