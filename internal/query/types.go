// Package query translates the filter mini-language carried in API query
// strings into an immutable query plan.
//
// A request such as
//
//	filter[created_at]=lt:2016-12-10:and:gt:2016-12-08&order[name]=asc&limit=10
//
// is parsed into FilterParams, folded into a Plan by Assemble and handed to
// an Executor for counting, fetching and pagination.
package query

import (
	"context"
	"errors"
)

// Operator is the comparison symbol handed to the storage layer
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpLike           Operator = "like"
	OpNotLike        Operator = "not like"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not in"
)

// Keyword marks filter values with a special predicate form
type Keyword string

const (
	KeywordNone     Keyword = ""
	KeywordNull     Keyword = "null"
	KeywordNotNull  Keyword = "notnull"
	KeywordToday    Keyword = "today"
	KeywordNotToday Keyword = "nottoday"
)

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Value is a decoded filter value
type Value struct {
	Text    string  // decoded text, wildcards expanded unless Encoded
	Keyword Keyword // set when Text is one of the reserved keywords
	Encoded bool    // value came from a {{b64(...)}} escape
}

// Term is a single (operator, value) comparison
type Term struct {
	Operator Operator
	Value    Value
}

// AndGroup holds terms that must all match
type AndGroup []Term

// OrGroup holds AND groups of which at least one must match
type OrGroup []AndGroup

// RelationPath is a resolved field key
type RelationPath struct {
	Chain   []string // relation names from the base entity, empty for plain fields
	Field   string   // leaf field on the last related entity
	Negated bool     // no related row may match
}

// IsRelation reports whether the path traverses at least one relation
func (p RelationPath) IsRelation() bool {
	return len(p.Chain) > 0
}

// OrderSpec is one order[...] entry
type OrderSpec struct {
	Path      RelationPath
	Direction Direction
}

// Row is a single result record keyed by column name
type Row = map[string]interface{}

// Window restricts a fetch to a slice of the matching rows
type Window struct {
	Offset int
	Limit  int
}

// Executor is the storage collaborator that runs plans
type Executor interface {
	// Count returns the number of rows matching the plan's predicates,
	// ignoring ordering, projection and limit.
	Count(ctx context.Context, plan Plan) (int64, error)
	// Fetch returns the rows of the plan. A non-nil window replaces the
	// plan's limit with an offset/limit pair.
	Fetch(ctx context.Context, plan Plan, window *Window) ([]Row, error)
}

// Errors surfaced by executors when a plan is run, and by ParseParams for
// parameters of the wrong shape.
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrUnknownField        = errors.New("unknown field")
	ErrUnknownRelation     = errors.New("unknown relation")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnsupportedOrder    = errors.New("unsupported order")
)

// IsClientError reports whether err was caused by the request rather than
// by the backend
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrUnknownRelation) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrUnsupportedOperator) ||
		errors.Is(err, ErrUnsupportedOrder)
}
