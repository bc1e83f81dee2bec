package query

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Property is a single WHERE condition: the named property compared to Value
// by Operator. CaseSensitive only matters for string properties.
type Property struct {
	Name          string   `json:"name"`
	Value         string   `json:"value"`
	Operator      Operator `json:"operator"`
	CaseSensitive bool     `json:"caseSensitive"`
}

// Filter is a serializable query over a collection of entities. Clauses are
// combined with AND; an empty Filter selects everything in its original order.
type Filter struct {
	IncludePropertyNames []string   `json:"includePropertyNames"`
	FilterProperties     []Property `json:"filterProperties"`
	OrderByPropertyName  string     `json:"orderByPropertyName"`
	OrderByDescending    bool       `json:"orderByDescending"`
}

type Option func(*Filter)

func New(opts ...Option) Filter {
	var f Filter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Where adds a case-insensitive clause. value is rendered with FormatValue,
// so char operands must be given as WhereChar or a one-character string.
func Where(name string, op Operator, value any) Option {
	return func(f *Filter) {
		f.FilterProperties = append(f.FilterProperties, Property{
			Name:     name,
			Value:    FormatValue(value),
			Operator: op,
		})
	}
}

// WhereExact adds a case-sensitive clause.
func WhereExact(name string, op Operator, value any) Option {
	return func(f *Filter) {
		f.FilterProperties = append(f.FilterProperties, Property{
			Name:          name,
			Value:         FormatValue(value),
			Operator:      op,
			CaseSensitive: true,
		})
	}
}

// WhereChar adds a clause on a char property. A bare rune would be rendered
// as its code point by Where.
func WhereChar(name string, op Operator, value rune) Option {
	return Where(name, op, string(value))
}

func OrderBy(name string) Option {
	return func(f *Filter) {
		f.OrderByPropertyName = name
		f.OrderByDescending = false
	}
}

func OrderByDesc(name string) Option {
	return func(f *Filter) {
		f.OrderByPropertyName = name
		f.OrderByDescending = true
	}
}

func Select(names ...string) Option {
	return func(f *Filter) {
		f.IncludePropertyNames = append(f.IncludePropertyNames, names...)
	}
}

// FormatValue renders a Go value as clause text. Runes are int32 and come out
// as numbers.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
