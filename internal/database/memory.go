package database

import (
	"context"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/fluxbase-eu/queryfilter/internal/query"
	"gopkg.in/yaml.v3"
)

const backendMemory = "memory"

// MemoryStore is an in-process executor holding rows per resource. It
// follows PostgreSQL semantics for the predicates it evaluates: null
// values never satisfy a comparison, LIKE is case sensitive and nulls
// sort after every other value.
type MemoryStore struct {
	mu      sync.RWMutex
	schema  *Schema
	rows    map[string][]query.Row
	metrics *observability.Metrics
}

// NewMemoryStore creates an empty store for the resources in schema.
// metrics may be nil.
func NewMemoryStore(schema *Schema, metrics *observability.Metrics) *MemoryStore {
	return &MemoryStore{
		schema:  schema,
		rows:    make(map[string][]query.Row),
		metrics: metrics,
	}
}

// Insert appends rows to a resource
func (s *MemoryStore) Insert(table string, rows ...query.Row) error {
	info, err := s.schema.lookupTable(table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		for col := range row {
			if !info.HasColumn(col) {
				return unknownField(info, col)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.rows[table] = append(s.rows[table], maps.Clone(row))
	}
	return nil
}

// LoadSeedFile inserts the rows of a YAML document keyed by resource name
//
//	authors:
//	  - {id: 1, name: Ann}
//	posts:
//	  - {id: 1, author_id: 1, title: Hello}
func (s *MemoryStore) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	return s.LoadSeed(data)
}

// LoadSeed inserts the rows of a YAML seed document
func (s *MemoryStore) LoadSeed(data []byte) error {
	var seed map[string][]map[string]interface{}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	// declaration order keeps seeding deterministic
	for _, info := range s.schema.Tables() {
		rows, ok := seed[info.Name]
		if !ok {
			continue
		}
		converted := make([]query.Row, 0, len(rows))
		for _, r := range rows {
			converted = append(converted, query.Row(r))
		}
		if err := s.Insert(info.Name, converted...); err != nil {
			return fmt.Errorf("failed to seed %s: %w", info.Name, err)
		}
		delete(seed, info.Name)
	}
	if len(seed) > 0 {
		names := slices.Sorted(maps.Keys(seed))
		return fmt.Errorf("failed to seed %s: %w", names[0], query.ErrUnknownRelation)
	}
	return nil
}

// Count implements query.Executor
func (s *MemoryStore) Count(ctx context.Context, plan query.Plan) (count int64, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordQuery(backendMemory, "count", time.Since(start), err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, matched, err := s.match(plan)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Fetch implements query.Executor
func (s *MemoryStore) Fetch(ctx context.Context, plan query.Plan, window *query.Window) (rows []query.Row, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordQuery(backendMemory, "fetch", time.Since(start), err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, matched, err := s.match(plan)
	if err != nil {
		return nil, err
	}
	if err := s.sortRows(table, matched, plan.Order); err != nil {
		return nil, err
	}

	offset, limit := 0, -1
	if window != nil {
		offset, limit = window.Offset, window.Limit
	} else if plan.Limit != nil {
		limit = *plan.Limit
	}
	matched = slice(matched, offset, limit)

	columns, hidden, err := joinColumns(s.schema, table, plan.Columns, plan.With)
	if err != nil {
		return nil, err
	}

	rows = make([]query.Row, 0, len(matched))
	for _, row := range matched {
		projected, err := project(table, row, columns)
		if err != nil {
			return nil, err
		}
		rows = append(rows, projected)
	}

	if err := loadRelations(ctx, s.schema, table, rows, plan.With, s.fetchRelated); err != nil {
		return nil, err
	}
	dropColumns(rows, hidden)
	return rows, nil
}

// match returns the rows of the plan's table satisfying every filter
func (s *MemoryStore) match(plan query.Plan) (*TableInfo, []query.Row, error) {
	table, err := s.schema.lookupTable(plan.Table)
	if err != nil {
		return nil, nil, err
	}
	for _, pred := range plan.Filters {
		if err := s.check(table, pred); err != nil {
			return nil, nil, err
		}
	}

	ev := &evaluator{store: s, patterns: map[string]*regexp.Regexp{}}
	var matched []query.Row
	for _, row := range s.rows[table.Name] {
		ok := true
		for _, pred := range plan.Filters {
			ok, err = ev.eval(table, row, pred)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				break
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}
	return table, matched, nil
}

// check rejects predicates naming unknown columns, relations or operators
// before any row is looked at, so empty tables fail the same way
func (s *MemoryStore) check(table *TableInfo, pred query.Predicate) error {
	switch p := pred.(type) {
	case query.Comparison:
		if !table.HasColumn(p.Field) {
			return unknownField(table, p.Field)
		}
		if _, ok := sqlOperators[p.Operator]; !ok {
			return fmt.Errorf("%w: %q", query.ErrUnsupportedOperator, p.Operator)
		}
	case query.Membership:
		if !table.HasColumn(p.Field) {
			return unknownField(table, p.Field)
		}
	case query.NullCheck:
		if !table.HasColumn(p.Field) {
			return unknownField(table, p.Field)
		}
	case query.DatePrefix:
		if !table.HasColumn(p.Field) {
			return unknownField(table, p.Field)
		}
	case query.Group:
		for _, child := range p.Children {
			if err := s.check(table, child); err != nil {
				return err
			}
		}
	case query.Exists:
		hops, err := s.schema.ResolveChain(table, p.Chain)
		if err != nil {
			return err
		}
		return s.check(hops[len(hops)-1].To, p.Inner)
	default:
		return fmt.Errorf("unsupported predicate %T", pred)
	}
	return nil
}

func (s *MemoryStore) fetchRelated(_ context.Context, target *TableInfo, column string, keys []string) ([]query.Row, error) {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	var out []query.Row
	for _, row := range s.rows[target.Name] {
		if k, ok := keyString(row[column]); ok && wanted[k] {
			out = append(out, maps.Clone(row))
		}
	}
	return out, nil
}

// related returns the rows reached from row through rel
func (s *MemoryStore) related(row query.Row, rel Relation) []query.Row {
	k, ok := keyString(row[rel.LocalColumn])
	if !ok {
		return nil
	}
	var out []query.Row
	for _, candidate := range s.rows[rel.Target] {
		if ck, ok := keyString(candidate[rel.RemoteColumn]); ok && ck == k {
			out = append(out, candidate)
		}
	}
	return out
}

func (s *MemoryStore) sortRows(table *TableInfo, rows []query.Row, order []query.OrderSpec) error {
	if len(order) == 0 {
		return nil
	}

	type sortKey struct {
		rel   *Relation
		field string
		desc  bool
	}
	keys := make([]sortKey, 0, len(order))
	for _, spec := range order {
		key := sortKey{field: spec.Path.Field, desc: spec.Direction == query.Desc}
		target := table
		if spec.Path.IsRelation() {
			hops, err := s.schema.ResolveChain(table, spec.Path.Chain)
			if err != nil {
				return err
			}
			if err := checkOrderPath(spec.Path, hops); err != nil {
				return err
			}
			key.rel = &hops[0].Relation
			target = hops[0].To
		}
		if !target.HasColumn(key.field) {
			return unknownField(target, key.field)
		}
		keys = append(keys, key)
	}

	value := func(row query.Row, key sortKey) interface{} {
		if key.rel == nil {
			return row[key.field]
		}
		if rel := s.related(row, *key.rel); len(rel) > 0 {
			return rel[0][key.field]
		}
		return nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			c := compareSortValues(value(rows[i], key), value(rows[j], key))
			if c == 0 {
				continue
			}
			if key.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

// evaluator applies predicates to rows, caching compiled LIKE patterns
type evaluator struct {
	store    *MemoryStore
	patterns map[string]*regexp.Regexp
}

func (ev *evaluator) eval(table *TableInfo, row query.Row, pred query.Predicate) (bool, error) {
	switch p := pred.(type) {
	case query.Comparison:
		v := row[p.Field]
		if v == nil {
			return false, nil
		}
		switch p.Operator {
		case query.OpLike:
			return ev.like(v, p.Value), nil
		case query.OpNotLike:
			return !ev.like(v, p.Value), nil
		}
		c, err := compareText(v, p.Value, p.Field)
		if err != nil {
			return false, err
		}
		switch p.Operator {
		case query.OpEqual:
			return c == 0, nil
		case query.OpNotEqual:
			return c != 0, nil
		case query.OpGreaterThan:
			return c > 0, nil
		case query.OpGreaterOrEqual:
			return c >= 0, nil
		case query.OpLessThan:
			return c < 0, nil
		case query.OpLessOrEqual:
			return c <= 0, nil
		}
		return false, fmt.Errorf("%w: %q", query.ErrUnsupportedOperator, p.Operator)

	case query.Membership:
		v := row[p.Field]
		if v == nil {
			return false, nil
		}
		found := false
		for _, candidate := range p.Values {
			c, err := compareText(v, candidate, p.Field)
			if err != nil {
				return false, err
			}
			if c == 0 {
				found = true
				break
			}
		}
		return found != p.Negated, nil

	case query.NullCheck:
		return (row[p.Field] == nil) != p.Negated, nil

	case query.DatePrefix:
		v := row[p.Field]
		if v == nil {
			return p.Negated, nil
		}
		return strings.HasPrefix(castText(v), p.Date) != p.Negated, nil

	case query.Group:
		if len(p.Children) == 0 {
			return true, nil
		}
		for _, child := range p.Children {
			ok, err := ev.eval(table, row, child)
			if err != nil {
				return false, err
			}
			if p.Connective == query.Or && ok {
				return true, nil
			}
			if p.Connective == query.And && !ok {
				return false, nil
			}
		}
		return p.Connective == query.And, nil

	case query.Exists:
		hops, err := ev.store.schema.ResolveChain(table, p.Chain)
		if err != nil {
			return false, err
		}
		found, err := ev.exists(row, hops, p.Inner)
		if err != nil {
			return false, err
		}
		return found != p.Negated, nil
	}
	return false, fmt.Errorf("unsupported predicate %T", pred)
}

func (ev *evaluator) exists(row query.Row, hops []Hop, inner query.Predicate) (bool, error) {
	hop := hops[0]
	for _, candidate := range ev.store.related(row, hop.Relation) {
		var ok bool
		var err error
		if len(hops) > 1 {
			ok, err = ev.exists(candidate, hops[1:], inner)
		} else {
			ok, err = ev.eval(hop.To, candidate, inner)
		}
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (ev *evaluator) like(v interface{}, pattern string) bool {
	re, ok := ev.patterns[pattern]
	if !ok {
		re = likePattern(pattern)
		ev.patterns[pattern] = re
	}
	return re.MatchString(castText(v))
}

// likePattern translates a LIKE pattern into an anchored regexp. % and _
// are wildcards and a backslash makes the next character literal.
func likePattern(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		case '\\':
			if i+1 < len(runes) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				sb.WriteString(`\\`)
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

// compareText compares a stored value with a filter literal, converting the
// literal to the stored value's type
func compareText(v interface{}, text, field string) (int, error) {
	mismatch := func() error {
		return fmt.Errorf("%w: %q is not a valid value for %s", query.ErrTypeMismatch, text, field)
	}

	if f, ok := toFloat(v); ok {
		t, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, mismatch()
		}
		return compareFloats(f, t), nil
	}

	switch val := v.(type) {
	case bool:
		t, err := strconv.ParseBool(text)
		if err != nil {
			return 0, mismatch()
		}
		return compareBools(val, t), nil
	case time.Time:
		t, err := parseTime(text)
		if err != nil {
			return 0, mismatch()
		}
		return val.Compare(t), nil
	default:
		return strings.Compare(castText(v), text), nil
	}
}

// compareSortValues orders two stored values. Nulls sort after everything
// else, so they come last ascending and first descending.
func compareSortValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return compareFloats(fa, fb)
		}
	}
	switch va := a.(type) {
	case bool:
		if vb, ok := b.(bool); ok {
			return compareBools(va, vb)
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}
	return strings.Compare(castText(a), castText(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTime(text string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// castText renders a value the way PostgreSQL casts it to text
func castText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

func project(table *TableInfo, row query.Row, columns []string) (query.Row, error) {
	if len(columns) == 0 {
		return maps.Clone(row), nil
	}
	out := make(query.Row, len(columns))
	for _, col := range columns {
		if !table.HasColumn(col) {
			return nil, unknownField(table, col)
		}
		out[col] = row[col]
	}
	return out, nil
}

func slice(rows []query.Row, offset, limit int) []query.Row {
	offset = max(offset, 0)
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
