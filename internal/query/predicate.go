package query

// Predicate is a node of a plan's WHERE tree. Nodes are values and are
// never modified once built.
type Predicate interface {
	predicate()
}

// Connective joins the children of a Group
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// Comparison is "field op value"
type Comparison struct {
	Field    string
	Operator Operator
	Value    string
}

// Membership is "field IN (values)" or "field NOT IN (values)"
type Membership struct {
	Field   string
	Values  []string
	Negated bool
}

// NullCheck is "field IS NULL" or "field IS NOT NULL"
type NullCheck struct {
	Field   string
	Negated bool
}

// DatePrefix matches fields whose text starts with Date. The negated form
// also matches null fields.
type DatePrefix struct {
	Field   string
	Date    string
	Negated bool
}

// Group combines children with a single connective
type Group struct {
	Connective Connective
	Children   []Predicate
}

// Exists holds when at least one row reached through Chain satisfies
// Inner, or when none does if Negated is set.
type Exists struct {
	Chain   []string
	Inner   Predicate
	Negated bool
}

func (Comparison) predicate() {}
func (Membership) predicate() {}
func (NullCheck) predicate()  {}
func (DatePrefix) predicate() {}
func (Group) predicate()      {}
func (Exists) predicate()     {}
