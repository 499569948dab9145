package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple string literal",
			input:    "SELECT * FROM users WHERE name = 'John'",
			expected: "SELECT * FROM users WHERE name = '<redacted>'",
		},
		{
			name:     "numeric literal",
			input:    "SELECT * FROM users WHERE id = 123",
			expected: "SELECT * FROM users WHERE id = <num>",
		},
		{
			name:     "boolean literal",
			input:    "SELECT * FROM users WHERE active = TRUE AND id = 1",
			expected: "SELECT * FROM users WHERE active = <bool> AND id = <num>",
		},
		{
			name:     "escaped quotes in string",
			input:    "SELECT * FROM users WHERE name = 'O''Reilly'",
			expected: "SELECT * FROM users WHERE name = '<redacted>'",
		},
		{
			name:     "float number",
			input:    "SELECT * FROM products WHERE price > 99.99",
			expected: "SELECT * FROM products WHERE price > <num>",
		},
		{
			name:     "parameter placeholders preserved",
			input:    `SELECT "t0".* FROM "public"."posts" AS "t0" WHERE "t0"."id" = $1 AND "t0"."title" LIKE $12`,
			expected: `SELECT "t0".* FROM "public"."posts" AS "t0" WHERE "t0"."id" = $1 AND "t0"."title" LIKE $12`,
		},
		{
			name:     "limit and offset",
			input:    `SELECT "t0".* FROM "public"."posts" AS "t0" LIMIT 15 OFFSET 30`,
			expected: `SELECT "t0".* FROM "public"."posts" AS "t0" LIMIT <num> OFFSET <num>`,
		},
		{
			name:     "empty query",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeSQL(tt.input))
		})
	}
}

func TestDescribeArgs(t *testing.T) {
	args := []interface{}{"Rob%", []string{"1", "2"}, nil, 42}

	assert.Equal(t, []string{"string(4)", "[]string(2)", "nil", "int"}, DescribeArgs(args))
	assert.Empty(t, DescribeArgs(nil))
}
