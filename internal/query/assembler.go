package query

import (
	"time"

	"github.com/rs/zerolog/log"
)

// assembleOptions holds Assemble configuration
type assembleOptions struct {
	now func() time.Time
}

// AssembleOption configures Assemble
type AssembleOption func(*assembleOptions)

// WithClock overrides the wall clock used for the today/nottoday keywords
func WithClock(now func() time.Time) AssembleOption {
	return func(o *assembleOptions) {
		o.now = now
	}
}

// Assemble folds the request parameters into base, in the order with,
// filter, order, limit, select. The plan is only described here; names are
// validated when an executor runs it.
func Assemble(params FilterParams, base Plan, opts ...AssembleOption) Plan {
	o := assembleOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	now := o.now()

	plan := base
	if len(params.With) > 0 {
		plan = plan.WithRelations(params.With...)
	}

	terms := 0
	for _, entry := range params.Filters {
		pred, n := fieldPredicate(entry.Key, entry.Value, now)
		terms += n
		if group, ok := pred.(Group); ok && group.Connective == And {
			// a single OR branch: its terms join the top-level AND directly
			for _, child := range group.Children {
				plan = plan.Where(child)
			}
			continue
		}
		plan = plan.Where(pred)
	}

	for _, order := range params.Orders {
		plan = plan.OrderBy(OrderSpec{Path: ResolvePath(order.Field), Direction: order.Direction})
	}

	if params.Limit != nil {
		plan = plan.WithLimit(*params.Limit)
	}

	if len(params.Select) > 0 {
		plan = plan.WithColumns(params.Select)
	}

	log.Debug().
		Str("table", plan.Table).
		Int("fields", len(params.Filters)).
		Int("terms", terms).
		Int("orders", len(plan.Order)).
		Strs("with", plan.With).
		Msg("Assembled query plan")

	return plan
}

// fieldPredicate builds the grouped clause for one filter[fieldKey] entry
// and reports the number of terms it contains
func fieldPredicate(fieldKey, expression string, now time.Time) (Predicate, int) {
	path := ResolvePath(fieldKey)
	groups := ParseExpression(expression)

	terms := 0
	branches := make([]Predicate, 0, len(groups))
	for _, group := range groups {
		children := make([]Predicate, 0, len(group))
		for _, term := range group {
			children = append(children, BuildPredicate(path, term, now))
		}
		terms += len(children)
		branches = append(branches, Group{Connective: And, Children: children})
	}

	if len(branches) == 1 {
		return branches[0], terms
	}
	return Group{Connective: Or, Children: branches}, terms
}

// CountTerms returns the number of comparison terms across all filters
func CountTerms(params FilterParams) int {
	n := 0
	for _, entry := range params.Filters {
		for _, group := range ParseExpression(entry.Value) {
			n += len(group)
		}
	}
	return n
}
