package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOperator(t *testing.T) {
	tests := []struct {
		mnemonic string
		expected Operator
	}{
		{"eq", OpEqual},
		{"ne", OpNotEqual},
		{"gt", OpGreaterThan},
		{"ge", OpGreaterOrEqual},
		{"lt", OpLessThan},
		{"le", OpLessOrEqual},
		{"like", OpLike},
		{"notlike", OpNotLike},
		{"in", OpIn},
		{"notin", OpNotIn},
		// unknown mnemonics pass through untouched
		{"between", Operator("between")},
		{"gte", Operator("gte")},
		{"nee", Operator("nee")},
	}

	for _, tt := range tests {
		t.Run(tt.mnemonic, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveOperator(tt.mnemonic))
		})
	}
}

func TestResolveOperator_NoSubstringCorruption(t *testing.T) {
	// sequential substring replacement would turn "notlike" into "not <ike"
	// and "notin" into "!=tin"
	assert.Equal(t, OpNotLike, ResolveOperator("notlike"))
	assert.Equal(t, OpNotIn, ResolveOperator("notin"))
	assert.True(t, OpNotLike.IsKnown())
	assert.False(t, Operator("gte").IsKnown())
}

func TestParseTerm(t *testing.T) {
	t.Run("operator and value", func(t *testing.T) {
		term := ParseTerm("ge:18")
		assert.Equal(t, Term{Operator: OpGreaterOrEqual, Value: Value{Text: "18"}}, term)
	})

	t.Run("bare value defaults to equality", func(t *testing.T) {
		assert.Equal(t, ParseTerm("eq:v"), ParseTerm("v"))
	})

	t.Run("splits on the first colon only", func(t *testing.T) {
		term := ParseTerm("lt:2016-12-10 10:00")
		assert.Equal(t, OpLessThan, term.Operator)
		assert.Equal(t, "2016-12-10 10:00", term.Value.Text)
	})

	t.Run("like with wildcard", func(t *testing.T) {
		term := ParseTerm("like:Rob*")
		assert.Equal(t, OpLike, term.Operator)
		assert.Equal(t, "Rob%", term.Value.Text)
	})

	t.Run("empty piece", func(t *testing.T) {
		assert.Equal(t, Term{Operator: OpEqual, Value: Value{}}, ParseTerm(""))
	})
}

func TestParseExpression(t *testing.T) {
	t.Run("single term", func(t *testing.T) {
		groups := ParseExpression("eq:1")
		require.Len(t, groups, 1)
		require.Len(t, groups[0], 1)
		assert.Equal(t, OpEqual, groups[0][0].Operator)
	})

	t.Run("and group", func(t *testing.T) {
		groups := ParseExpression("lt:2016-12-10:and:gt:2016-12-08")
		require.Len(t, groups, 1)
		assert.Equal(t, AndGroup{
			{Operator: OpLessThan, Value: Value{Text: "2016-12-10"}},
			{Operator: OpGreaterThan, Value: Value{Text: "2016-12-08"}},
		}, groups[0])
	})

	t.Run("or binds looser than and", func(t *testing.T) {
		groups := ParseExpression("a:and:b:or:c")
		require.Len(t, groups, 2)
		assert.Equal(t, AndGroup{
			{Operator: OpEqual, Value: Value{Text: "a"}},
			{Operator: OpEqual, Value: Value{Text: "b"}},
		}, groups[0])
		assert.Equal(t, AndGroup{
			{Operator: OpEqual, Value: Value{Text: "c"}},
		}, groups[1])
	})

	t.Run("empty segments become empty values", func(t *testing.T) {
		groups := ParseExpression("a:or:")
		require.Len(t, groups, 2)
		assert.Equal(t, "", groups[1][0].Value.Text)
	})
}
