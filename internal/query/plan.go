package query

// Plan is an immutable description of a query against one table. Builder
// methods return a modified copy and never touch the receiver, so partial
// plans can be shared freely.
type Plan struct {
	Table   string
	With    []string
	Filters []Predicate // combined with AND
	Order   []OrderSpec
	Limit   *int
	Columns []string // empty selects every column
}

// NewPlan starts a plan on table
func NewPlan(table string) Plan {
	return Plan{Table: table}
}

// WithRelations adds eager-load hints
func (p Plan) WithRelations(relations ...string) Plan {
	p.With = appendCopy(p.With, relations...)
	return p
}

// Where adds a predicate combined with AND
func (p Plan) Where(pred Predicate) Plan {
	p.Filters = appendCopy(p.Filters, pred)
	return p
}

// OrderBy appends an ORDER BY entry
func (p Plan) OrderBy(spec OrderSpec) Plan {
	p.Order = appendCopy(p.Order, spec)
	return p
}

// WithLimit caps the number of returned rows
func (p Plan) WithLimit(n int) Plan {
	p.Limit = &n
	return p
}

// WithColumns replaces the projection
func (p Plan) WithColumns(columns []string) Plan {
	p.Columns = appendCopy(nil, columns...)
	return p
}

func appendCopy[T any](s []T, items ...T) []T {
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}
