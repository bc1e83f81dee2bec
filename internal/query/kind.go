package query

// Kind is the semantic type of an entity property. It decides which
// operators a clause may use and how the clause value is parsed.
type Kind int

const (
	KindUnsupported Kind = iota
	KindString
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindBool
	KindByte
	KindChar
	KindTime
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindString:      "string",
	KindInt:         "int",
	KindUint:        "uint",
	KindFloat:       "float",
	KindDecimal:     "decimal",
	KindBool:        "bool",
	KindByte:        "byte",
	KindChar:        "char",
	KindTime:        "time",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnsupported]
	}
	return kindNames[k]
}

type operatorSet uint16

func setOf(ops ...Operator) operatorSet {
	var s operatorSet
	for _, op := range ops {
		s |= 1 << op
	}
	return s
}

func (s operatorSet) has(op Operator) bool {
	return op.Valid() && s&(1<<op) != 0
}

var (
	equality = setOf(Equals, NotEquals)
	textual  = setOf(StartsWith, EndsWith, Contains)
	ordered  = setOf(LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual)
)

var kindOperators = map[Kind]operatorSet{
	KindString:  equality | textual,
	KindInt:     equality | ordered,
	KindUint:    equality | ordered,
	KindFloat:   equality | ordered,
	KindDecimal: equality | ordered,
	KindBool:    equality,
	KindByte:    equality | ordered,
	KindChar:    equality | ordered,
	KindTime:    equality | ordered,
}

// Supports reports whether op may be used in a clause on a property of kind k.
func (k Kind) Supports(op Operator) bool {
	return kindOperators[k].has(op)
}

// Orderable reports whether results can be sorted by a property of kind k.
func (k Kind) Orderable() bool {
	return k != KindUnsupported
}
