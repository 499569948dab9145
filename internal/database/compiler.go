package database

import (
	"fmt"
	"strings"

	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/jackc/pgx/v5"
)

// sqlOperators lists the comparison symbols a Comparison may carry. Anything
// else is rejected rather than spliced into SQL.
var sqlOperators = map[query.Operator]string{
	query.OpEqual:          "=",
	query.OpNotEqual:       "<>",
	query.OpGreaterThan:    ">",
	query.OpGreaterOrEqual: ">=",
	query.OpLessThan:       "<",
	query.OpLessOrEqual:    "<=",
	query.OpLike:           "LIKE",
	query.OpNotLike:        "NOT LIKE",
}

// Compiler renders plans as PostgreSQL statements with $n placeholders
type Compiler struct {
	schema *Schema
}

// NewCompiler creates a compiler resolving relations through schema
func NewCompiler(schema *Schema) *Compiler {
	return &Compiler{schema: schema}
}

// sqlBuilder carries per-statement state: bound arguments and the alias
// counter for nested relation subqueries
type sqlBuilder struct {
	schema *Schema
	args   []interface{}
	alias  int
}

func (b *sqlBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) nextAlias() string {
	b.alias++
	return fmt.Sprintf("t%d", b.alias)
}

// BuildSelect renders the plan's SELECT. A non-nil window replaces the
// plan limit.
func (c *Compiler) BuildSelect(plan query.Plan, window *query.Window) (string, []interface{}, error) {
	table, err := c.schema.lookupTable(plan.Table)
	if err != nil {
		return "", nil, err
	}

	b := &sqlBuilder{schema: c.schema}
	const base = "t0"

	columns := quoteIdent(base) + ".*"
	if len(plan.Columns) > 0 {
		cols := make([]string, 0, len(plan.Columns))
		for _, col := range plan.Columns {
			if !table.HasColumn(col) {
				return "", nil, unknownField(table, col)
			}
			cols = append(cols, qualify(base, col))
		}
		columns = strings.Join(cols, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", columns, fromClause(table, base))

	where, err := b.where(table, base, plan.Filters)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if len(plan.Order) > 0 {
		parts := make([]string, 0, len(plan.Order))
		for _, spec := range plan.Order {
			expr, err := b.orderExpr(table, base, spec)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, expr+" "+strings.ToUpper(string(spec.Direction)))
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}

	switch {
	case window != nil:
		fmt.Fprintf(&sb, " LIMIT %d", window.Limit)
		if window.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", window.Offset)
		}
	case plan.Limit != nil:
		fmt.Fprintf(&sb, " LIMIT %d", *plan.Limit)
	}

	return sb.String(), b.args, nil
}

// BuildCount renders a COUNT(*) over the plan's predicates
func (c *Compiler) BuildCount(plan query.Plan) (string, []interface{}, error) {
	table, err := c.schema.lookupTable(plan.Table)
	if err != nil {
		return "", nil, err
	}

	b := &sqlBuilder{schema: c.schema}
	where, err := b.where(table, "t0", plan.Filters)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + fromClause(table, "t0") + where, b.args, nil
}

// BuildRelated renders the eager-load lookup of target rows whose column
// matches one of keys
func (c *Compiler) BuildRelated(target *TableInfo, column string, keys []string) (string, []interface{}) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)",
		pgx.Identifier{target.Schema, target.Table}.Sanitize(), quoteIdent(column))
	return sql, []interface{}{keys}
}

func (b *sqlBuilder) where(table *TableInfo, alias string, preds []query.Predicate) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		sql, err := b.predicate(table, alias, pred)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (b *sqlBuilder) predicate(table *TableInfo, alias string, pred query.Predicate) (string, error) {
	switch p := pred.(type) {
	case query.Comparison:
		if !table.HasColumn(p.Field) {
			return "", unknownField(table, p.Field)
		}
		op, ok := sqlOperators[p.Operator]
		if !ok {
			return "", fmt.Errorf("%w: %q", query.ErrUnsupportedOperator, p.Operator)
		}
		return fmt.Sprintf("%s %s %s", qualify(alias, p.Field), op, b.bind(p.Value)), nil

	case query.Membership:
		if !table.HasColumn(p.Field) {
			return "", unknownField(table, p.Field)
		}
		if p.Negated {
			return fmt.Sprintf("%s <> ALL(%s)", qualify(alias, p.Field), b.bind(p.Values)), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", qualify(alias, p.Field), b.bind(p.Values)), nil

	case query.NullCheck:
		if !table.HasColumn(p.Field) {
			return "", unknownField(table, p.Field)
		}
		if p.Negated {
			return qualify(alias, p.Field) + " IS NOT NULL", nil
		}
		return qualify(alias, p.Field) + " IS NULL", nil

	case query.DatePrefix:
		if !table.HasColumn(p.Field) {
			return "", unknownField(table, p.Field)
		}
		col := qualify(alias, p.Field)
		if p.Negated {
			return fmt.Sprintf("(CAST(%s AS TEXT) NOT LIKE %s OR %s IS NULL)", col, b.bind(p.Date+"%"), col), nil
		}
		return fmt.Sprintf("CAST(%s AS TEXT) LIKE %s", col, b.bind(p.Date+"%")), nil

	case query.Group:
		if len(p.Children) == 0 {
			return "TRUE", nil
		}
		parts := make([]string, 0, len(p.Children))
		for _, child := range p.Children {
			sql, err := b.predicate(table, alias, child)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " "+string(p.Connective)+" ") + ")", nil

	case query.Exists:
		hops, err := b.schema.ResolveChain(table, p.Chain)
		if err != nil {
			return "", err
		}
		sql, err := b.exists(hops, alias, p.Inner)
		if err != nil {
			return "", err
		}
		if p.Negated {
			return "NOT " + sql, nil
		}
		return sql, nil

	default:
		return "", fmt.Errorf("unsupported predicate %T", pred)
	}
}

// exists renders nested EXISTS subqueries, one per hop, with inner applied
// to the last related table
func (b *sqlBuilder) exists(hops []Hop, parentAlias string, inner query.Predicate) (string, error) {
	hop := hops[0]
	alias := b.nextAlias()

	cond := fmt.Sprintf("%s = %s",
		qualify(alias, hop.Relation.RemoteColumn), qualify(parentAlias, hop.Relation.LocalColumn))

	var rest string
	var err error
	if len(hops) > 1 {
		rest, err = b.exists(hops[1:], alias, inner)
	} else {
		rest, err = b.predicate(hop.To, alias, inner)
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s AND %s)", fromClause(hop.To, alias), cond, rest), nil
}

// orderExpr renders a sort key. Relation paths are limited to a single
// to-one hop, expressed as a correlated scalar subquery.
func (b *sqlBuilder) orderExpr(table *TableInfo, alias string, spec query.OrderSpec) (string, error) {
	path := spec.Path
	if !path.IsRelation() {
		if !table.HasColumn(path.Field) {
			return "", unknownField(table, path.Field)
		}
		return qualify(alias, path.Field), nil
	}

	hops, err := b.schema.ResolveChain(table, path.Chain)
	if err != nil {
		return "", err
	}
	if err := checkOrderPath(path, hops); err != nil {
		return "", err
	}

	hop := hops[0]
	if !hop.To.HasColumn(path.Field) {
		return "", unknownField(hop.To, path.Field)
	}
	sub := b.nextAlias()
	return fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s LIMIT 1)",
		qualify(sub, path.Field), fromClause(hop.To, sub),
		qualify(sub, hop.Relation.RemoteColumn), qualify(alias, hop.Relation.LocalColumn)), nil
}

// checkOrderPath rejects relation orderings that cannot yield one value per row
func checkOrderPath(path query.RelationPath, hops []Hop) error {
	if path.Negated {
		return fmt.Errorf("%w: negated path %s", query.ErrUnsupportedOrder, strings.Join(path.Chain, "."))
	}
	if len(hops) > 1 {
		return fmt.Errorf("%w: ordering through %d relations is not supported", query.ErrUnsupportedOrder, len(hops))
	}
	if !hops[0].Relation.Kind.ToOne() {
		return fmt.Errorf("%w: %s is a %s relation", query.ErrUnsupportedOrder, hops[0].Relation.Name, hops[0].Relation.Kind)
	}
	return nil
}

func fromClause(table *TableInfo, alias string) string {
	return pgx.Identifier{table.Schema, table.Table}.Sanitize() + " AS " + quoteIdent(alias)
}

func qualify(alias, column string) string {
	return pgx.Identifier{alias, column}.Sanitize()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func unknownField(table *TableInfo, field string) error {
	return fmt.Errorf("%w: %s has no column %q", query.ErrUnknownField, table.Name, field)
}
