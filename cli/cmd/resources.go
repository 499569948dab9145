package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/queryfilter/cli/output"
	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/database"
)

var resourcesCmd = &cobra.Command{
	Use:     "resources",
	Aliases: []string{"resource", "res"},
	Short:   "List the configured resources",
	Long: `List the resources declared in the configuration with their tables
and relations.

Examples:
  queryfilter resources
  queryfilter resources -o json`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

// ResourceSummary describes one configured resource
type ResourceSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Table      string   `json:"table" yaml:"table"`
	PrimaryKey string   `json:"primary_key" yaml:"primary_key"`
	Relations  []string `json:"relations" yaml:"relations"`
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	schema, err := database.NewSchema(cfg.Resources)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	summaries := summarize(schema)
	if formatter.Format != output.FormatTable {
		return formatter.Print(summaries)
	}

	data := output.TableData{
		Headers: []string{"NAME", "TABLE", "PRIMARY KEY", "RELATIONS"},
		Rows:    make([][]string, 0, len(summaries)),
	}
	for _, s := range summaries {
		data.Rows = append(data.Rows, []string{s.Name, s.Table, s.PrimaryKey, strings.Join(s.Relations, ", ")})
	}
	return formatter.PrintTable(data)
}

func summarize(schema *database.Schema) []ResourceSummary {
	tables := schema.Tables()
	summaries := make([]ResourceSummary, 0, len(tables))
	for _, t := range tables {
		relations := make([]string, 0, len(t.Relations))
		for name, rel := range t.Relations {
			relations = append(relations, fmt.Sprintf("%s (%s %s)", name, rel.Kind, rel.Target))
		}
		slices.Sort(relations)

		summaries = append(summaries, ResourceSummary{
			Name:       t.Name,
			Table:      t.Schema + "." + t.Table,
			PrimaryKey: t.PrimaryKey,
			Relations:  relations,
		})
	}
	return summaries
}
