package query

import (
	"strings"
)

type predicate[T any] func(T) bool

// compile turns one clause into a predicate over T. The clause value is
// converted once here, so evaluation only reads and compares.
func compile[T any](s *Schema[T], c Property) (predicate[T], error) {
	p, err := s.lookup(c.Name)
	if err != nil {
		return nil, err
	}

	if p.kind == KindUnsupported {
		return nil, &UnsupportedTypeError{Property: p.name, Type: p.typeName}
	}

	if !p.kind.Supports(c.Operator) {
		return nil, &UnsupportedOperatorError{Property: p.name, Kind: p.kind, Operator: c.Operator}
	}

	if p.kind == KindString {
		return compileString(p, c), nil
	}

	operand, err := parseOperand(p.kind, p.bits, c.Value)
	if err != nil {
		return nil, &ValueConversionError{Property: p.name, Value: c.Value, Kind: p.kind, Err: err}
	}

	kind, get, op := p.kind, p.get, c.Operator
	return func(item T) bool {
		return op.holds(compareScalars(scalar(kind, get(item)), operand))
	}, nil
}

func compileString[T any](p *property[T], c Property) predicate[T] {
	fold := func(s string) string { return s }
	if !c.CaseSensitive {
		fold = strings.ToLower
	}

	operand := fold(c.Value)

	var test func(string) bool
	switch c.Operator {
	case StartsWith:
		test = func(s string) bool { return strings.HasPrefix(s, operand) }
	case EndsWith:
		test = func(s string) bool { return strings.HasSuffix(s, operand) }
	case Contains:
		test = func(s string) bool { return strings.Contains(s, operand) }
	default:
		op := c.Operator
		test = func(s string) bool { return op.holds(strings.Compare(s, operand)) }
	}

	get := p.get
	return func(item T) bool {
		return test(fold(scalar(KindString, get(item)).(string)))
	}
}

// conjunction holds only when every predicate holds.
func conjunction[T any](preds []predicate[T]) predicate[T] {
	return func(item T) bool {
		for _, p := range preds {
			if !p(item) {
				return false
			}
		}
		return true
	}
}
