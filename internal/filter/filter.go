// Package filter evaluates predicates against the records of a Dataset.
//
// Comparisons are total: a record whose value has a kind the operator cannot
// compare is excluded, never reported as an error. Only malformed arguments
// (blank field names, unknown operators) produce errors.
package filter

import (
	"math"
	"strings"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
)

// Operator is a comparison applied between a field value and an operand.
type Operator string

// Supported operators.
const (
	OpEq         Operator = "="
	OpNe         Operator = "!="
	OpLt         Operator = "<"
	OpGt         Operator = ">"
	OpLe         Operator = "<="
	OpGe         Operator = ">="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpListAny    Operator = "list_any"
	OpListAll    Operator = "list_all"
)

var operatorAliases = map[string]Operator{
	"=": OpEq, "==": OpEq, "eq": OpEq,
	"!=": OpNe, "<>": OpNe, "ne": OpNe,
	"<": OpLt, "lt": OpLt,
	">": OpGt, "gt": OpGt,
	"<=": OpLe, "le": OpLe, "lte": OpLe,
	">=": OpGe, "ge": OpGe, "gte": OpGe,
	"contains":    OpContains,
	"starts_with": OpStartsWith, "startswith": OpStartsWith,
	"ends_with": OpEndsWith, "endswith": OpEndsWith,
	"list_any": OpListAny,
	"list_all": OpListAll,
}

// Operators returns every canonical operator.
func Operators() []Operator {
	return []Operator{OpEq, OpNe, OpLt, OpGt, OpLe, OpGe, OpContains, OpStartsWith, OpEndsWith, OpListAny, OpListAll}
}

// ParseOperator resolves an operator or one of its aliases, ignoring case.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	names := make([]string, 0, len(Operators()))
	for _, op := range Operators() {
		names = append(names, string(op))
	}
	return "", errors.NewInvalidArgumentError("ParseOperator", "", "unknown operator "+s).
		WithHint("supported operators: " + strings.Join(names, ", "))
}

// IsOrdering reports whether op is one of <, >, <= and >=.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpLt, OpGt, OpLe, OpGe:
		return true
	}
	return false
}

// Condition is a single predicate over one field.
type Condition struct {
	Field   string      `json:"field"`
	Op      Operator    `json:"operator"`
	Operand value.Value `json:"value"`
}

// Validate checks that the condition names a field and a known operator.
func (c Condition) Validate() error {
	if err := validation.ValidateFieldName(c.Field, "Filter"); err != nil {
		return err
	}
	if _, err := ParseOperator(string(c.Op)); err != nil {
		return err
	}
	return nil
}

// String renders the condition in the form accepted by ParseCondition.
func (c Condition) String() string {
	return c.Field + " " + string(c.Op) + " " + value.EncodeLiteral(c.Operand)
}

// Match reports whether r satisfies the condition. Absent and Null field
// values never match.
func (c Condition) Match(r dataset.Record) bool {
	if !r.Has(c.Field) {
		return false
	}
	v, _ := r.Get(c.Field)
	return compare(v, c.Op, c.Operand)
}

// Filter returns the records whose field satisfies op against operand. The
// input is not modified.
func Filter(d dataset.Dataset, field string, op Operator, operand value.Value) (dataset.Dataset, error) {
	return Where(d, Condition{Field: field, Op: op, Operand: operand})
}

// Where returns the records satisfying every condition.
func Where(d dataset.Dataset, conds ...Condition) (dataset.Dataset, error) {
	normalized := make([]Condition, len(conds))
	for i, c := range conds {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		c.Op, _ = ParseOperator(string(c.Op))
		normalized[i] = c
	}

	out := dataset.Dataset{}
	for _, r := range d {
		if matchAll(r, normalized) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Update returns a copy of d where field is set to v on every record that
// satisfies cond, along with the number of records changed.
func Update(d dataset.Dataset, cond Condition, field string, v value.Value) (dataset.Dataset, int, error) {
	if err := validation.ValidateFieldName(field, "Update"); err != nil {
		return nil, 0, err
	}
	if err := cond.Validate(); err != nil {
		return nil, 0, err
	}
	cond.Op, _ = ParseOperator(string(cond.Op))

	out := make(dataset.Dataset, len(d))
	updated := 0
	for i, r := range d {
		if cond.Match(r) {
			out[i] = r.Clone().With(field, v.Clone())
			updated++
			continue
		}
		out[i] = r.Clone()
	}
	return out, updated, nil
}

func matchAll(r dataset.Record, conds []Condition) bool {
	for _, c := range conds {
		if !c.Match(r) {
			return false
		}
	}
	return true
}

// compare applies op between a non-null field value and the operand.
func compare(v value.Value, op Operator, operand value.Value) bool {
	switch op {
	case OpEq:
		return looseEqual(v, operand)
	case OpNe:
		return !looseEqual(v, operand)
	case OpLt, OpGt, OpLe, OpGe:
		c, ok := order(v, operand)
		if !ok {
			return false
		}
		switch op {
		case OpLt:
			return c < 0
		case OpGt:
			return c > 0
		case OpLe:
			return c <= 0
		default:
			return c >= 0
		}
	case OpContains, OpStartsWith, OpEndsWith:
		s, ok := v.AsText()
		t, ok2 := operand.AsText()
		if !ok || !ok2 {
			return false
		}
		s, t = strings.ToLower(s), strings.ToLower(t)
		switch op {
		case OpContains:
			return strings.Contains(s, t)
		case OpStartsWith:
			return strings.HasPrefix(s, t)
		default:
			return strings.HasSuffix(s, t)
		}
	case OpListAny, OpListAll:
		return listMatch(v, op, operand)
	}
	return false
}

// looseEqual is structural equality where Int and Float compare by numeric
// value and Text compares case-insensitively.
func looseEqual(a, b value.Value) bool {
	if x, ok := a.Number(); ok {
		y, ok := b.Number()
		return ok && x == y
	}
	if x, ok := a.AsText(); ok {
		y, ok := b.AsText()
		return ok && strings.EqualFold(x, y)
	}
	return a.Equal(b)
}

// order compares a to b when the pair is orderable: number with number,
// text with text, or a list's length with a number.
func order(a, b value.Value) (int, bool) {
	if y, ok := b.Number(); ok {
		if x, ok := a.Number(); ok {
			return cmpFloat(x, y)
		}
		if a.Kind() == value.KindList {
			return cmpFloat(float64(a.Len()), y)
		}
		return 0, false
	}
	x, ok := a.AsText()
	y, ok2 := b.AsText()
	if !ok || !ok2 {
		return 0, false
	}
	return strings.Compare(x, y), true
}

func cmpFloat(x, y float64) (int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// listMatch tests the numeric elements of a list against a numeric operand:
// list_any needs one element greater than the operand, list_all needs every
// numeric element to be greater. Non-numeric elements are ignored, so list_all
// holds for a list without numbers.
func listMatch(v value.Value, op Operator, operand value.Value) bool {
	threshold, ok := operand.Number()
	if !ok || v.Kind() != value.KindList {
		return false
	}
	for _, item := range v.Items() {
		n, ok := item.Number()
		if !ok {
			continue
		}
		if op == OpListAny && n > threshold {
			return true
		}
		if op == OpListAll && n <= threshold {
			return false
		}
	}
	return op == OpListAll
}
