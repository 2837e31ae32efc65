package filter

import "fmt"

// Kind is the clause variant.
type Kind string

// Clause kinds, named after the engine's wire "filter" field.
const (
	Term       Kind = "term"
	Terms      Kind = "terms"
	Numeric    Kind = "numeric"
	Date       Kind = "date"
	Match      Kind = "match"
	GroupBoost Kind = "group_boost"
)

// Operator is a numeric comparison.
type Operator string

// Numeric operators accepted by the engine.
const (
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// IsValid reports whether op is a supported numeric operator.
func (op Operator) IsValid() bool {
	return op == GT || op == GTE || op == LT || op == LTE
}

// Clause is a single filter or boost clause. Only the fields relevant to its Kind are set.
type Clause struct {
	kind   Kind
	field  string
	value  any
	values []any
	op     Operator
	number float64
	from   string
	to     string
	group  *Group
}

// Group holds the parameters of a group boost: values are read from {group}_01..{group}_N
// of the lookup document and receive linearly decreasing boosts between Min and Max.
type Group struct {
	LookupIndex string
	Name        string
	MinBoost    float64
	MaxBoost    float64
	N           int
}

// NewTerm creates an exact term clause.
func NewTerm(field string, value any) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("term: field is required")
	}
	return Clause{kind: Term, field: field, value: value}, nil
}

// NewTerms creates a match-any clause.
func NewTerms(field string, values []any) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("terms: field is required")
	}
	if len(values) == 0 {
		return Clause{}, fmt.Errorf("terms %q: at least one value is required", field)
	}
	return Clause{kind: Terms, field: field, values: values}, nil
}

// NewNumeric creates a numeric range clause.
func NewNumeric(field string, op Operator, value float64) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("numeric: field is required")
	}
	if !op.IsValid() {
		return Clause{}, fmt.Errorf("numeric %q: invalid operator %q", field, op)
	}
	return Clause{kind: Numeric, field: field, op: op, number: value}, nil
}

// NewDate creates a date range clause. At least one bound is required.
func NewDate(field, from, to string) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("date: field is required")
	}
	if from == "" && to == "" {
		return Clause{}, fmt.Errorf("date %q: at least one of from/to is required", field)
	}
	return Clause{kind: Date, field: field, from: from, to: to}, nil
}

// NewMatch creates a full-text match clause.
func NewMatch(field, text string) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("match: field is required")
	}
	return Clause{kind: Match, field: field, value: text}, nil
}

// NewGroupBoost creates a personalization boost driven by a lookup document.
func NewGroupBoost(field string, value any, g Group) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("group boost: field is required")
	}
	if g.LookupIndex == "" || g.Name == "" {
		return Clause{}, fmt.Errorf("group boost %q: lookup index and group are required", field)
	}
	if g.MinBoost > g.MaxBoost {
		return Clause{}, fmt.Errorf("group boost %q: min boost %v exceeds max %v", field, g.MinBoost, g.MaxBoost)
	}
	if g.N <= 0 {
		return Clause{}, fmt.Errorf("group boost %q: n must be positive", field)
	}
	return Clause{kind: GroupBoost, field: field, value: value, group: &g}, nil
}

// Kind returns the clause variant.
func (c Clause) Kind() Kind { return c.kind }

// Field returns the attribute the clause applies to.
func (c Clause) Field() string { return c.field }

// Value returns the scalar value (term, match, group boost).
func (c Clause) Value() any { return c.value }

// Values returns the value list (terms).
func (c Clause) Values() []any { return c.values }

// Op returns the numeric operator.
func (c Clause) Op() Operator { return c.op }

// Number returns the numeric operand.
func (c Clause) Number() float64 { return c.number }

// From returns the lower date bound ("" when open).
func (c Clause) From() string { return c.from }

// To returns the upper date bound ("" when open).
func (c Clause) To() string { return c.to }

// Group returns group boost parameters (nil for other kinds).
func (c Clause) Group() *Group { return c.group }

// Spec is the ordered triple of clause lists for one retrieval request.
type Spec struct {
	include []Clause
	exclude []Clause
	boost   []Clause
}

// NewSpec creates a Spec. Slices are copied so the Spec stays immutable.
func NewSpec(include, exclude, boost []Clause) Spec {
	return Spec{
		include: clone(include),
		exclude: clone(exclude),
		boost:   clone(boost),
	}
}

// Include returns the hard AND filters.
func (s Spec) Include() []Clause { return s.include }

// Exclude returns the hard NOT filters.
func (s Spec) Exclude() []Clause { return s.exclude }

// Boost returns the soft SHOULD scoring clauses.
func (s Spec) Boost() []Clause { return s.boost }

// IsEmpty reports whether the spec has no clauses.
func (s Spec) IsEmpty() bool {
	return len(s.include) == 0 && len(s.exclude) == 0 && len(s.boost) == 0
}

func clone(cs []Clause) []Clause {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Clause, len(cs))
	copy(out, cs)
	return out
}
