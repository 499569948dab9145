// Package cmd implements the queryfilter command line
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/queryfilter/cli/output"
)

var (
	cfgFile      string
	outputFormat string

	formatter *output.Formatter
)

var rootCmd = &cobra.Command{
	Use:   "queryfilter",
	Short: "Filterable REST listings over relational tables",
	Long: `queryfilter serves the tables declared in its configuration as
read-only REST resources that clients filter, order, paginate and
eager-load through the query string.

Examples:
  queryfilter serve --config queryfilter.yaml
  queryfilter explain posts "filter[name]=Rob*&order[created_at]=desc"
  queryfilter resources -o yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format)
		formatter.Writer = cmd.OutOrStdout()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./queryfilter.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
