package query

import (
	"cmp"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/carlfranklin/avnrepo/pkg/errors"
)

// scalar normalizes a live property value to the comparison domain of its kind:
// string, int64, uint64, float64, bool, decimal.Decimal or time.Time.
func scalar(kind Kind, v reflect.Value) any {
	if !v.IsValid() {
		v = zeroOf(kind)
	}

	switch kind {
	case KindString:
		return v.String()
	case KindInt, KindChar:
		return v.Int()
	case KindUint, KindByte:
		return v.Uint()
	case KindFloat:
		return v.Float()
	case KindBool:
		return v.Bool()
	case KindDecimal:
		d, _ := v.Interface().(decimal.Decimal)
		return d
	case KindTime:
		t, _ := v.Interface().(time.Time)
		return t
	default:
		return nil
	}
}

// parseOperand converts the textual clause value to the comparison domain of kind.
func parseOperand(kind Kind, bits int, raw string) (any, error) {
	s := strings.TrimSpace(raw)

	switch kind {
	case KindString:
		return raw, nil
	case KindInt:
		return strconv.ParseInt(s, 10, bitsOr64(bits))
	case KindUint:
		return strconv.ParseUint(s, 10, bitsOr64(bits))
	case KindByte:
		return strconv.ParseUint(s, 10, 8)
	case KindFloat:
		return strconv.ParseFloat(s, bitsOr64(bits))
	case KindBool:
		return strconv.ParseBool(s)
	case KindDecimal:
		return decimal.NewFromString(s)
	case KindChar:
		if utf8.RuneCountInString(raw) != 1 {
			return nil, errors.Error("expected exactly one character")
		}
		r, _ := utf8.DecodeRuneInString(raw)
		return int64(r), nil
	case KindTime:
		return cast.ToTimeE(s)
	default:
		return nil, errors.Errorf("no conversion for kind %s", kind)
	}
}

func bitsOr64(bits int) int {
	if bits == 0 {
		return 64
	}
	return bits
}

// compareScalars orders two values produced by scalar or parseOperand for the same kind.
func compareScalars(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int64:
		return cmp.Compare(x, b.(int64))
	case uint64:
		return cmp.Compare(x, b.(uint64))
	case float64:
		return cmp.Compare(x, b.(float64))
	case bool:
		return compareBools(x, b.(bool))
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	case time.Time:
		return x.Compare(b.(time.Time))
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
