package query

import (
	"strings"
	"time"
)

const (
	pathSeparator  = "."
	negationMarker = "!"
	dateLayout     = "2006-01-02"
)

// ResolvePath splits a dotted field key into a relation chain and a leaf
// field. A leading "!" on a relation chain negates the path. Plain fields
// are returned as-is, including any "!".
func ResolvePath(fieldKey string) RelationPath {
	segments := strings.Split(fieldKey, pathSeparator)
	if len(segments) == 1 {
		return RelationPath{Field: fieldKey}
	}

	path := RelationPath{
		Chain: segments[:len(segments)-1],
		Field: segments[len(segments)-1],
	}
	if strings.HasPrefix(path.Chain[0], negationMarker) {
		chain := make([]string, len(path.Chain))
		copy(chain, path.Chain)
		chain[0] = strings.TrimPrefix(chain[0], negationMarker)
		path.Chain = chain
		path.Negated = true
	}
	return path
}

// BuildPredicate applies term to the path's leaf field, wrapping it in an
// existence check when the path crosses relations. now resolves the today
// and nottoday keywords.
func BuildPredicate(path RelationPath, term Term, now time.Time) Predicate {
	leaf := leafPredicate(path.Field, term, now)
	if !path.IsRelation() {
		return leaf
	}
	return Exists{Chain: path.Chain, Inner: leaf, Negated: path.Negated}
}

func leafPredicate(field string, term Term, now time.Time) Predicate {
	switch term.Value.Keyword {
	case KeywordNull:
		return NullCheck{Field: field}
	case KeywordNotNull:
		return NullCheck{Field: field, Negated: true}
	case KeywordToday:
		return DatePrefix{Field: field, Date: now.Format(dateLayout)}
	case KeywordNotToday:
		return DatePrefix{Field: field, Date: now.Format(dateLayout), Negated: true}
	}

	switch term.Operator {
	case OpIn:
		return Membership{Field: field, Values: strings.Split(term.Value.Text, ",")}
	case OpNotIn:
		return Membership{Field: field, Values: strings.Split(term.Value.Text, ","), Negated: true}
	}
	return Comparison{Field: field, Operator: term.Operator, Value: term.Value.Text}
}
