package database

import (
	"fmt"
	"slices"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/query"
)

// RelationKind is the cardinality of a relation
type RelationKind string

const (
	BelongsTo RelationKind = config.RelationBelongsTo
	HasOne    RelationKind = config.RelationHasOne
	HasMany   RelationKind = config.RelationHasMany
)

// ToOne reports whether the relation yields at most one related row
func (k RelationKind) ToOne() bool {
	return k == BelongsTo || k == HasOne
}

// Relation links a parent table to a target table.
// A parent row relates to the target rows where
// target.RemoteColumn = parent.LocalColumn.
type Relation struct {
	Name         string
	Kind         RelationKind
	Target       string
	LocalColumn  string
	RemoteColumn string
}

// TableInfo describes a resource table
type TableInfo struct {
	Name       string // resource name
	Schema     string
	Table      string
	PrimaryKey string
	Columns    []string
	Relations  map[string]Relation
}

// HasColumn reports whether column is known. Tables without declared
// columns accept every name and leave validation to the database.
func (t *TableInfo) HasColumn(column string) bool {
	return len(t.Columns) == 0 || slices.Contains(t.Columns, column)
}

// Hop is one step of a resolved relation chain
type Hop struct {
	Relation Relation
	From     *TableInfo
	To       *TableInfo
}

// Schema is the static registry of resources and their relations. It is
// built once from configuration and only read afterwards.
type Schema struct {
	tables map[string]*TableInfo
	order  []string
}

// NewSchema builds a schema from resource declarations
func NewSchema(resources []config.ResourceConfig) (*Schema, error) {
	if err := config.ValidateResources(resources); err != nil {
		return nil, err
	}

	s := &Schema{tables: make(map[string]*TableInfo, len(resources))}
	for _, rc := range resources {
		info := &TableInfo{
			Name:       rc.Name,
			Schema:     valueOr(rc.Schema, "public"),
			Table:      valueOr(rc.Table, rc.Name),
			PrimaryKey: valueOr(rc.PrimaryKey, "id"),
			Columns:    rc.Columns,
			Relations:  make(map[string]Relation, len(rc.Relations)),
		}
		s.tables[rc.Name] = info
		s.order = append(s.order, rc.Name)
	}

	for _, rc := range resources {
		parent := s.tables[rc.Name]
		for _, relCfg := range rc.Relations {
			target := s.tables[relCfg.Target]
			rel := Relation{
				Name:   relCfg.Name,
				Kind:   RelationKind(relCfg.Kind),
				Target: relCfg.Target,
			}
			if rel.Kind == BelongsTo {
				rel.LocalColumn = relCfg.ForeignKey
				rel.RemoteColumn = valueOr(relCfg.OwnerKey, target.PrimaryKey)
			} else {
				rel.LocalColumn = valueOr(relCfg.OwnerKey, parent.PrimaryKey)
				rel.RemoteColumn = relCfg.ForeignKey
			}
			parent.Relations[rel.Name] = rel
		}
	}

	return s, nil
}

// Table returns the resource with the given name
func (s *Schema) Table(name string) (*TableInfo, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Tables returns every resource in declaration order
func (s *Schema) Tables() []*TableInfo {
	out := make([]*TableInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name])
	}
	return out
}

// Relation looks up a relation of table
func (s *Schema) Relation(table *TableInfo, name string) (Relation, *TableInfo, error) {
	rel, ok := table.Relations[name]
	if !ok {
		return Relation{}, nil, fmt.Errorf("%w: %s has no relation %q", query.ErrUnknownRelation, table.Name, name)
	}
	return rel, s.tables[rel.Target], nil
}

// ResolveChain walks a relation chain starting at table
func (s *Schema) ResolveChain(table *TableInfo, chain []string) ([]Hop, error) {
	hops := make([]Hop, 0, len(chain))
	current := table
	for _, name := range chain {
		rel, target, err := s.Relation(current, name)
		if err != nil {
			return nil, err
		}
		hops = append(hops, Hop{Relation: rel, From: current, To: target})
		current = target
	}
	return hops, nil
}

// lookupTable resolves a plan's base table
func (s *Schema) lookupTable(name string) (*TableInfo, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: no resource %q", query.ErrUnknownRelation, name)
	}
	return t, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
