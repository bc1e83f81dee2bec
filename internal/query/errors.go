package query

import (
	"fmt"
)

// UnknownPropertyError is returned when a clause, the order-by directive or
// the projection names a property the entity type does not have.
type UnknownPropertyError struct {
	Entity   string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q on %s", e.Property, e.Entity)
}

// UnsupportedOperatorError is returned when the operator is not valid for the kind of the property.
type UnsupportedOperatorError struct {
	Property string
	Kind     Kind
	Operator Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %s is not supported for %s property %q", e.Operator, e.Kind, e.Property)
}

// UnsupportedTypeError is returned when a property's Go type can be neither
// compared nor ordered, e.g. a slice or a nested struct.
type UnsupportedTypeError struct {
	Property string
	Type     string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("property %q of type %s can't be filtered or ordered", e.Property, e.Type)
}

// ValueConversionError is returned when the textual clause value can't be
// converted to the kind of the property.
type ValueConversionError struct {
	Property string
	Value    string
	Kind     Kind
	Err      error
}

func (e *ValueConversionError) Error() string {
	return fmt.Sprintf("can't convert %q to %s for property %q: %s", e.Value, e.Kind, e.Property, e.Err)
}

func (e *ValueConversionError) Unwrap() error {
	return e.Err
}
