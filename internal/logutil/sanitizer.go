// Package logutil holds logger setup and helpers that keep request data
// out of log lines.
package logutil

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	stringLiteralPattern = regexp.MustCompile(`'(?:[^']|'')*'`)
	placeholderPattern   = regexp.MustCompile(`\$\d+`)
	numericPattern       = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:[eE][+-]?\d+)?\b`)
	booleanPattern       = regexp.MustCompile(`\b(?:TRUE|FALSE)\b`)
)

// SanitizeSQL replaces literal values in a statement with markers so only
// its shape reaches the logs. Placeholders such as $1 are kept.
//
//	SELECT * FROM "t" WHERE "name" = 'Rob' AND "age" > 30 LIMIT 10
//	=> SELECT * FROM "t" WHERE "name" = '<redacted>' AND "age" > <num> LIMIT <num>
func SanitizeSQL(query string) string {
	query = stringLiteralPattern.ReplaceAllString(query, "'<redacted>'")

	// protect placeholders from the numeric pass
	params := placeholderPattern.FindAllString(query, -1)
	for i, param := range params {
		query = strings.Replace(query, param, "\x00PARAM"+fmt.Sprint(i)+"\x00", 1)
	}

	query = numericPattern.ReplaceAllString(query, "<num>")

	for i, param := range params {
		query = strings.Replace(query, "\x00PARAM"+fmt.Sprint(i)+"\x00", param, 1)
	}

	return booleanPattern.ReplaceAllString(query, "<bool>")
}

// DescribeArgs summarises bound arguments by type and size, never by value
//
//	[]interface{}{"Rob%", []string{"1", "2"}, nil} => ["string(4)", "[]string(2)", "nil"]
func DescribeArgs(args []interface{}) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			out = append(out, "nil")
		case string:
			out = append(out, fmt.Sprintf("string(%d)", len(v)))
		case []string:
			out = append(out, fmt.Sprintf("[]string(%d)", len(v)))
		default:
			out = append(out, fmt.Sprintf("%T", v))
		}
	}
	return out
}
