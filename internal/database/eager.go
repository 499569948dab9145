package database

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/google/uuid"
)

// relatedFetcher returns the rows of target whose column holds one of keys
type relatedFetcher func(ctx context.Context, target *TableInfo, column string, keys []string) ([]query.Row, error)

// loadRelations attaches the relations named in with to rows. Dotted names
// load nested relations on the related rows. To-one relations attach a
// row or nil, has_many relations attach a slice.
func loadRelations(ctx context.Context, schema *Schema, table *TableInfo, rows []query.Row, with []string, fetch relatedFetcher) error {
	if len(rows) == 0 || len(with) == 0 {
		return nil
	}

	// group "a.b" and "a.c" under "a" while keeping request order
	var names []string
	nested := map[string][]string{}
	for _, path := range with {
		head, rest, _ := strings.Cut(path, ".")
		if _, ok := nested[head]; !ok {
			names = append(names, head)
			nested[head] = nil
		}
		if rest != "" {
			nested[head] = append(nested[head], rest)
		}
	}

	for _, name := range names {
		rel, target, err := schema.Relation(table, name)
		if err != nil {
			return err
		}

		keys := distinctKeys(rows, rel.LocalColumn)
		var related []query.Row
		if len(keys) > 0 {
			related, err = fetch(ctx, target, rel.RemoteColumn, keys)
			if err != nil {
				return fmt.Errorf("failed to load relation %s: %w", name, err)
			}
		}

		if err := loadRelations(ctx, schema, target, related, nested[name], fetch); err != nil {
			return err
		}

		byKey := map[string][]query.Row{}
		for _, r := range related {
			if k, ok := keyString(r[rel.RemoteColumn]); ok {
				byKey[k] = append(byKey[k], r)
			}
		}

		for _, row := range rows {
			k, ok := keyString(row[rel.LocalColumn])
			matches := byKey[k]
			if !ok {
				matches = nil
			}
			if rel.Kind.ToOne() {
				if len(matches) > 0 {
					row[name] = matches[0]
				} else {
					row[name] = nil
				}
				continue
			}
			if matches == nil {
				matches = []query.Row{}
			}
			row[name] = matches
		}
	}
	return nil
}

// joinColumns extends a projection with the local columns the relations in
// with join on, and returns the columns it added. Those are removed again
// once the relations are attached.
func joinColumns(schema *Schema, table *TableInfo, columns, with []string) ([]string, []string, error) {
	if len(columns) == 0 || len(with) == 0 {
		return columns, nil, nil
	}

	out := slices.Clone(columns)
	var added []string
	for _, path := range with {
		head, _, _ := strings.Cut(path, ".")
		rel, _, err := schema.Relation(table, head)
		if err != nil {
			return nil, nil, err
		}
		if !slices.Contains(out, rel.LocalColumn) {
			out = append(out, rel.LocalColumn)
			added = append(added, rel.LocalColumn)
		}
	}
	return out, added, nil
}

func dropColumns(rows []query.Row, columns []string) {
	for _, row := range rows {
		for _, col := range columns {
			delete(row, col)
		}
	}
}

func distinctKeys(rows []query.Row, column string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		k, ok := keyString(row[column])
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// keyString normalises join key values so 1, int64(1) and "1" match
func keyString(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	switch val := v.(type) {
	case []byte:
		return string(val), true
	case [16]byte:
		return uuid.UUID(val).String(), true
	default:
		return fmt.Sprint(val), true
	}
}
