package config

import "fmt"

// Relation kinds
const (
	RelationBelongsTo = "belongs_to"
	RelationHasOne    = "has_one"
	RelationHasMany   = "has_many"
)

// ResourceConfig declares a table exposed through the API
type ResourceConfig struct {
	Name       string           `mapstructure:"name" yaml:"name"`               // Name used in URLs and relation targets
	Schema     string           `mapstructure:"schema" yaml:"schema"`           // Database schema (default: "public")
	Table      string           `mapstructure:"table" yaml:"table"`             // Physical table name (default: Name)
	PrimaryKey string           `mapstructure:"primary_key" yaml:"primary_key"` // Primary key column (default: "id")
	Columns    []string         `mapstructure:"columns" yaml:"columns"`         // Known columns; empty = not checked before execution
	Relations  []RelationConfig `mapstructure:"relations" yaml:"relations"`
}

// RelationConfig declares a relation from one resource to another
//
// belongs_to: parent.foreign_key = target.owner_key (owner_key defaults to the target primary key)
// has_one / has_many: target.foreign_key = parent.owner_key (owner_key defaults to the parent primary key)
type RelationConfig struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Kind       string `mapstructure:"kind" yaml:"kind"`
	Target     string `mapstructure:"target" yaml:"target"`
	ForeignKey string `mapstructure:"foreign_key" yaml:"foreign_key"`
	OwnerKey   string `mapstructure:"owner_key" yaml:"owner_key"`
}

// ValidateResources checks resource and relation declarations for shape
// and for dangling relation targets
func ValidateResources(resources []ResourceConfig) error {
	names := make(map[string]bool, len(resources))
	for _, rc := range resources {
		if rc.Name == "" {
			return fmt.Errorf("resource name cannot be empty")
		}
		if names[rc.Name] {
			return fmt.Errorf("duplicate resource: %s", rc.Name)
		}
		names[rc.Name] = true
	}

	for _, rc := range resources {
		seen := make(map[string]bool, len(rc.Relations))
		for _, rel := range rc.Relations {
			if rel.Name == "" {
				return fmt.Errorf("resource %s: relation name cannot be empty", rc.Name)
			}
			if seen[rel.Name] {
				return fmt.Errorf("resource %s: duplicate relation %s", rc.Name, rel.Name)
			}
			seen[rel.Name] = true

			switch rel.Kind {
			case RelationBelongsTo, RelationHasOne, RelationHasMany:
			default:
				return fmt.Errorf("resource %s: relation %s has unknown kind %q", rc.Name, rel.Name, rel.Kind)
			}
			if !names[rel.Target] {
				return fmt.Errorf("resource %s: relation %s targets unknown resource %q", rc.Name, rel.Name, rel.Target)
			}
			if rel.ForeignKey == "" {
				return fmt.Errorf("resource %s: relation %s requires foreign_key", rc.Name, rel.Name)
			}
		}
	}
	return nil
}
