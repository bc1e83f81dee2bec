package query

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

// Operator is the comparison applied by a filter clause. The numeric values
// are part of the wire format: clients may send either the name or the number.
type Operator int

const (
	Equals Operator = iota
	NotEquals
	StartsWith
	EndsWith
	Contains
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
)

var operatorNames = [...]string{
	Equals:             "Equals",
	NotEquals:          "NotEquals",
	StartsWith:         "StartsWith",
	EndsWith:           "EndsWith",
	Contains:           "Contains",
	LessThan:           "LessThan",
	GreaterThan:        "GreaterThan",
	LessThanOrEqual:    "LessThanOrEqual",
	GreaterThanOrEqual: "GreaterThanOrEqual",
}

func (o Operator) Valid() bool {
	return o >= Equals && int(o) < len(operatorNames)
}

func (o Operator) String() string {
	if !o.Valid() {
		return "Operator(" + strconv.Itoa(int(o)) + ")"
	}
	return operatorNames[o]
}

// ParseOperator resolves an operator by name, ignoring case.
func ParseOperator(name string) (Operator, error) {
	for op, known := range operatorNames {
		if strings.EqualFold(known, name) {
			return Operator(op), nil
		}
	}
	return 0, errors.Errorf("unknown operator %q", name)
}

func (o Operator) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, errors.Errorf("can't marshal invalid operator %d", int(o))
	}
	return json.Marshal(o.String())
}

func (o *Operator) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return errors.WrapFail(err, "decode operator name")
		}

		op, err := ParseOperator(name)
		if err != nil {
			return err
		}
		*o = op
		return nil
	}

	var num int
	if err := json.Unmarshal(data, &num); err != nil {
		return errors.WrapFail(err, "decode operator")
	}

	op := Operator(num)
	if !op.Valid() {
		return errors.Errorf("unknown operator %d", num)
	}
	*o = op
	return nil
}

// holds reports whether a three-way comparison result satisfies an ordered operator.
func (o Operator) holds(c int) bool {
	switch o {
	case Equals:
		return c == 0
	case NotEquals:
		return c != 0
	case LessThan:
		return c < 0
	case GreaterThan:
		return c > 0
	case LessThanOrEqual:
		return c <= 0
	case GreaterThanOrEqual:
		return c >= 0
	default:
		return false
	}
}
