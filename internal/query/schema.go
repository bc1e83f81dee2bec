package query

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

type property[T any] struct {
	name     string
	jsonName string
	kind     Kind
	bits     int
	typeName string
	get      func(T) reflect.Value
}

// Schema maps property names of T to typed accessors. It is built once per
// entity type and is safe for concurrent use once set up.
type Schema[T any] struct {
	entity string
	props  map[string]*property[T]
	order  []string
}

// SchemaOf builds the schema of a struct type (or pointer to struct) from its
// exported fields, including promoted fields of embedded structs.
//
// Field tags:
//
//	query:"-"      skip the field
//	query:",char"  treat an int32 field as a single character
func SchemaOf[T any]() (*Schema[T], error) {
	t := reflect.TypeFor[T]()

	isPtr := t.Kind() == reflect.Pointer
	if isPtr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("can't build schema of non-struct type %s", t)
	}

	s := &Schema[T]{
		entity: t.Name(),
		props:  make(map[string]*property[T]),
	}

	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous || !reachable(t, sf.Index) {
			continue
		}

		name, char := parseQueryTag(sf.Tag.Get("query"))
		if name == "-" {
			continue
		}

		kind, bits := kindOf(sf.Type)
		if char && kind == KindInt && bits == 32 {
			kind = KindChar
		}

		s.add(&property[T]{
			name:     sf.Name,
			jsonName: jsonName(sf),
			kind:     kind,
			bits:     bits,
			typeName: sf.Type.String(),
			get:      fieldGetter[T](sf.Index, isPtr),
		})
	}

	return s, nil
}

// MustSchemaOf is like SchemaOf but panics on error. Meant for package-level schemas.
func MustSchemaOf[T any]() *Schema[T] {
	s, err := SchemaOf[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Register adds or replaces a computed property. get must return values of
// the Go type matching kind (string for KindString, any signed integer for
// KindInt and KindChar, time.Time for KindTime, etc.). Register must not be
// called concurrently with evaluation.
func (s *Schema[T]) Register(name string, kind Kind, get func(T) any) *Schema[T] {
	zero := zeroOf(kind)
	s.add(&property[T]{
		name:     name,
		jsonName: name,
		kind:     kind,
		bits:     64,
		typeName: kind.String(),
		get: func(item T) reflect.Value {
			v := reflect.ValueOf(get(item))
			if !v.IsValid() {
				return zero
			}
			return v
		},
	})
	return s
}

func (s *Schema[T]) add(p *property[T]) {
	if _, ok := s.props[p.name]; !ok {
		s.order = append(s.order, p.name)
	}
	s.props[p.name] = p
}

// Entity is the name of the described type.
func (s *Schema[T]) Entity() string {
	return s.entity
}

// Names lists the known properties in declaration order.
func (s *Schema[T]) Names() []string {
	return append([]string(nil), s.order...)
}

// Kind returns the semantic kind of a property, false if there is no such property.
func (s *Schema[T]) Kind(name string) (Kind, bool) {
	p, ok := s.props[name]
	if !ok {
		return KindUnsupported, false
	}
	return p.kind, true
}

// Value reads a property of item.
func (s *Schema[T]) Value(item T, name string) (any, error) {
	p, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	v := p.get(item)
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func (s *Schema[T]) lookup(name string) (*property[T], error) {
	p, ok := s.props[name]
	if !ok {
		return nil, &UnknownPropertyError{Entity: s.entity, Property: name}
	}
	return p, nil
}

func parseQueryTag(tag string) (name string, char bool) {
	name, opts, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "char" {
			char = true
		}
	}
	return name, char
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func kindOf(t reflect.Type) (Kind, int) {
	switch t {
	case timeType:
		return KindTime, 0
	case decimalType:
		return KindDecimal, 0
	}

	switch t.Kind() {
	case reflect.String:
		return KindString, 0
	case reflect.Bool:
		return KindBool, 0
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return KindInt, t.Bits()
	case reflect.Uint8:
		return KindByte, 8
	case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return KindUint, t.Bits()
	case reflect.Float32, reflect.Float64:
		return KindFloat, t.Bits()
	default:
		return KindUnsupported, 0
	}
}

func zeroOf(kind Kind) reflect.Value {
	switch kind {
	case KindString:
		return reflect.ValueOf("")
	case KindInt, KindChar:
		return reflect.ValueOf(int64(0))
	case KindUint:
		return reflect.ValueOf(uint64(0))
	case KindByte:
		return reflect.ValueOf(byte(0))
	case KindFloat:
		return reflect.ValueOf(float64(0))
	case KindDecimal:
		return reflect.ValueOf(decimal.Zero)
	case KindBool:
		return reflect.ValueOf(false)
	case KindTime:
		return reflect.ValueOf(time.Time{})
	default:
		return reflect.Value{}
	}
}

// reachable reports whether every embedded field on the path to index is exported.
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if !t.FieldByIndex(index[:i]).IsExported() {
			return false
		}
	}
	return true
}

func fieldGetter[T any](index []int, isPtr bool) func(T) reflect.Value {
	return func(item T) reflect.Value {
		v := reflect.ValueOf(&item).Elem()
		if isPtr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}

		f, err := v.FieldByIndexErr(index)
		if err != nil {
			// nil embedded pointer on the path
			return reflect.Value{}
		}
		return f
	}
}
