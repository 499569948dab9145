package query

import "strings"

const (
	orDelimiter  = ":or:"
	andDelimiter = ":and:"
)

// ParseExpression splits a filter expression into OR groups of AND groups.
// OR binds looser than AND: "a:and:b:or:c" means (a AND b) OR c.
func ParseExpression(expr string) OrGroup {
	segments := strings.Split(expr, orDelimiter)
	groups := make(OrGroup, 0, len(segments))
	for _, segment := range segments {
		pieces := strings.Split(segment, andDelimiter)
		group := make(AndGroup, 0, len(pieces))
		for _, piece := range pieces {
			group = append(group, ParseTerm(piece))
		}
		groups = append(groups, group)
	}
	return groups
}

// ParseTerm parses "mnemonic:value" or a bare value (equality)
func ParseTerm(piece string) Term {
	parts := strings.SplitN(piece, ":", 2)
	if len(parts) == 2 {
		return Term{Operator: ResolveOperator(parts[0]), Value: DecodeValue(parts[1])}
	}
	return Term{Operator: OpEqual, Value: DecodeValue(parts[0])}
}
