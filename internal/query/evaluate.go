package query

import (
	"context"
	"slices"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

// items between context checks while filtering
const checkEvery = 1024

// Result is the outcome of evaluating a Filter. Items hold full entities;
// Fields is the projection the caller asked for, empty meaning all.
type Result[T any] struct {
	Items  []T
	Fields []string

	schema *Schema[T]
}

// NewResult wraps items evaluated elsewhere, e.g. by a remote server, so that
// Records can project them with s.
func NewResult[T any](s *Schema[T], items []T, fields []string) Result[T] {
	return Result[T]{
		Items:  items,
		Fields: slices.Clone(fields),
		schema: s,
	}
}

// Evaluate applies f to items: every clause must hold, the matching subset
// keeps its input order unless f orders it, and sorting is stable. Any invalid
// clause, order-by or projection fails the whole call before items are read.
// items is never modified.
func Evaluate[T any](ctx context.Context, s *Schema[T], items []T, f Filter) (Result[T], error) {
	preds := make([]predicate[T], 0, len(f.FilterProperties))
	for _, c := range f.FilterProperties {
		p, err := compile(s, c)
		if err != nil {
			return Result[T]{}, err
		}
		preds = append(preds, p)
	}

	var order *property[T]
	if f.OrderByPropertyName != "" {
		p, err := s.lookup(f.OrderByPropertyName)
		if err != nil {
			return Result[T]{}, err
		}
		if !p.kind.Orderable() {
			return Result[T]{}, &UnsupportedTypeError{Property: p.name, Type: p.typeName}
		}
		order = p
	}

	for _, name := range f.IncludePropertyNames {
		if _, err := s.lookup(name); err != nil {
			return Result[T]{}, err
		}
	}

	selected, err := apply(ctx, items, conjunction(preds))
	if err != nil {
		return Result[T]{}, err
	}

	if order != nil {
		selected = sortBy(selected, order, f.OrderByDescending)
	}

	return Result[T]{
		Items:  selected,
		Fields: slices.Clone(f.IncludePropertyNames),
		schema: s,
	}, nil
}

func apply[T any](ctx context.Context, items []T, match predicate[T]) ([]T, error) {
	selected := make([]T, 0, len(items))
	for i, item := range items {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.WrapFail(err, "filter items")
			}
		}

		if match(item) {
			selected = append(selected, item)
		}
	}
	return selected, nil
}

func sortBy[T any](items []T, p *property[T], desc bool) []T {
	type keyed struct {
		item T
		key  any
	}

	rows := make([]keyed, len(items))
	for i, item := range items {
		rows[i] = keyed{item: item, key: scalar(p.kind, p.get(item))}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		c := compareScalars(a.key, b.key)
		if desc {
			return -c
		}
		return c
	})

	for i := range rows {
		items[i] = rows[i].item
	}
	return items
}

// Records narrows every item to the selected properties, keyed by their JSON
// names. Without a projection all properties are kept.
func (r Result[T]) Records() []map[string]any {
	if r.schema == nil {
		return nil
	}

	names := r.Fields
	if len(names) == 0 {
		names = r.schema.order
	}

	records := make([]map[string]any, 0, len(r.Items))
	for _, item := range r.Items {
		rec := make(map[string]any, len(names))
		for _, name := range names {
			p := r.schema.props[name]
			v := p.get(item)
			if v.IsValid() {
				rec[p.jsonName] = v.Interface()
			} else {
				rec[p.jsonName] = nil
			}
		}
		records = append(records, rec)
	}
	return records
}

// Projected reports whether the result carries a column selection.
func (r Result[T]) Projected() bool {
	return len(r.Fields) > 0
}
