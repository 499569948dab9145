package query

// operatorMnemonics maps filter mnemonics to comparison symbols. The lookup
// is exact: mnemonics sharing substrings (ne/notlike/notin) never interfere.
var operatorMnemonics = map[string]Operator{
	"eq":      OpEqual,
	"ne":      OpNotEqual,
	"gt":      OpGreaterThan,
	"ge":      OpGreaterOrEqual,
	"lt":      OpLessThan,
	"le":      OpLessOrEqual,
	"like":    OpLike,
	"notlike": OpNotLike,
	"in":      OpIn,
	"notin":   OpNotIn,
}

// ResolveOperator translates a mnemonic into its comparison symbol.
// Unknown mnemonics are returned verbatim and rejected by the executor.
func ResolveOperator(mnemonic string) Operator {
	if op, ok := operatorMnemonics[mnemonic]; ok {
		return op
	}
	return Operator(mnemonic)
}

// IsKnown reports whether op is one of the supported comparison symbols
func (op Operator) IsKnown() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan,
		OpLessOrEqual, OpLike, OpNotLike, OpIn, OpNotIn:
		return true
	}
	return false
}
