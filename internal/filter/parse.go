package filter

import (
	"strings"
	"unicode"

	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/value"
)

// ParseCondition parses expressions such as "age >= 30", "name = \"Bob\""
// and "name contains al". Word operators must be separated from the field
// and operand by whitespace. The operand follows the literal-or-text rule:
// "30" is an Int, "[1,2]" a List and "al" stays Text.
func ParseCondition(expr string) (Condition, error) {
	const op = "ParseCondition"
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Condition{}, errors.NewInvalidArgumentError(op, "", "empty condition")
	}

	if parts := strings.Fields(expr); len(parts) >= 2 && isWordOperator(parts[1]) {
		rest := strings.TrimSpace(strings.TrimPrefix(expr, parts[0]))
		rest = strings.TrimSpace(rest[len(parts[1]):])
		if rest == "" {
			return Condition{}, errors.NewInvalidArgumentError(op, parts[0], "missing operand")
		}
		operator, _ := ParseOperator(parts[1])
		return Condition{Field: parts[0], Op: operator, Operand: value.DecodeCell(rest)}, nil
	}

	i := strings.IndexAny(expr, "<>=!")
	if i < 0 {
		return Condition{}, errors.NewInvalidArgumentError(op, "", "no operator in condition "+expr).
			WithHint(`write conditions like "age >= 30" or "name contains al"`)
	}
	symbol := expr[i : i+1]
	if i+1 < len(expr) && strings.ContainsRune("<>=", rune(expr[i+1])) {
		symbol = expr[i : i+2]
	}
	operator, err := ParseOperator(symbol)
	if err != nil {
		return Condition{}, err
	}

	field := strings.TrimSpace(expr[:i])
	if field == "" {
		return Condition{}, errors.NewInvalidArgumentError(op, "", "missing field name")
	}
	operand := strings.TrimSpace(expr[i+len(symbol):])
	return Condition{Field: field, Op: operator, Operand: value.DecodeCell(operand)}, nil
}

// isWordOperator reports whether s is an operator spelled with letters,
// such as contains or gte.
func isWordOperator(s string) bool {
	_, ok := operatorAliases[strings.ToLower(s)]
	return ok && unicode.IsLetter(rune(s[0]))
}
