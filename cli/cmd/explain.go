package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/queryfilter/cli/output"
	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/database"
	"github.com/fluxbase-eu/queryfilter/internal/query"
)

var explainCmd = &cobra.Command{
	Use:   "explain [resource] [query-string]",
	Short: "Show the SQL a request would run",
	Long: `Parse a query string the way the server does and print the
PostgreSQL statements it compiles to, without connecting to a database.

Examples:
  queryfilter explain posts "filter[name]=Rob*"
  queryfilter explain posts "filter[author.name]=Ann&order[author.age]=desc&page=2"
  queryfilter explain posts "filter[created_at]=today&all" -o yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExplain,
}

// Statement is one compiled statement
type Statement struct {
	Name string   `json:"name" yaml:"name"`
	SQL  string   `json:"sql" yaml:"sql"`
	Args []string `json:"args" yaml:"args"`
}

func runExplain(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	schema, err := database.NewSchema(cfg.Resources)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	rawQuery := ""
	if len(args) > 1 {
		rawQuery = strings.TrimPrefix(args[1], "?")
	}

	statements, err := explain(schema, cfg.API, args[0], rawQuery)
	if err != nil {
		return err
	}

	if formatter.Format != output.FormatTable {
		return formatter.Print(statements)
	}

	data := output.TableData{
		Headers: []string{"STATEMENT", "SQL", "ARGS"},
		Rows:    make([][]string, 0, len(statements)),
	}
	for _, st := range statements {
		data.Rows = append(data.Rows, []string{st.Name, st.SQL, strings.Join(st.Args, ", ")})
	}
	return formatter.PrintTable(data)
}

// explain compiles the statements a listing request runs. Paginated
// requests show the count and the window of the requested page; the page
// window of per_page=-1 depends on the count and is left open.
func explain(schema *database.Schema, api config.APIConfig, resource, rawQuery string) ([]Statement, error) {
	table, ok := schema.Table(resource)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}

	params, err := query.ParseParams(rawQuery)
	if err != nil {
		return nil, err
	}
	if params.PerPage != nil && *params.PerPage > 0 {
		capped := api.EffectivePerPage(*params.PerPage)
		params.PerPage = &capped
	}
	plan := query.Assemble(params, query.NewPlan(table.Name))
	compiler := database.NewCompiler(schema)

	var statements []Statement
	if !params.All {
		sql, args, err := compiler.BuildCount(plan)
		if err != nil {
			return nil, err
		}
		statements = append(statements, Statement{Name: "count", SQL: sql, Args: formatArgs(args)})
	}

	var window *query.Window
	if !params.All && (params.PerPage == nil || *params.PerPage != query.PerPageAll) {
		perPage := query.ResolvePerPage(params, 0, api.DefaultPageSize)
		page := max(params.Page, 1)
		window = &query.Window{Offset: (page - 1) * perPage, Limit: perPage}
	}

	sql, args, err := compiler.BuildSelect(plan, window)
	if err != nil {
		return nil, err
	}
	statements = append(statements, Statement{Name: "select", SQL: sql, Args: formatArgs(args)})

	return statements, nil
}

func formatArgs(args []interface{}) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = fmt.Sprintf("$%d=%v", i+1, arg)
	}
	return out
}
