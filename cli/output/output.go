// Package output renders CLI results as tables, JSON or YAML
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is an output format name
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output flag value
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// TableData is a table with a header row
type TableData struct {
	Headers []string
	Rows    [][]string
}

// Formatter writes results in the selected format
type Formatter struct {
	Format Format
	Writer io.Writer
}

// NewFormatter creates a formatter writing to stdout
func NewFormatter(format Format) *Formatter {
	return &Formatter{Format: format, Writer: os.Stdout}
}

// Print encodes v as JSON or YAML. Table output falls back to JSON, since
// arbitrary values have no tabular form.
func (f *Formatter) Print(v interface{}) error {
	switch f.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// PrintTable renders data as an aligned table
func (f *Formatter) PrintTable(data TableData) error {
	table := tablewriter.NewWriter(f.Writer)

	headers := make([]any, len(data.Headers))
	for i, h := range data.Headers {
		headers[i] = h
	}
	table.Header(headers...)

	for _, row := range data.Rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	return table.Render()
}
