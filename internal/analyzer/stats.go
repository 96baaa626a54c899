package analyzer

import (
	"strings"

	"github.com/paveg/datafilter/internal/errors"
	"golang.org/x/exp/constraints"
)

// number covers the element types the helpers aggregate.
type number interface {
	constraints.Integer | constraints.Float
}

// extremes returns the smallest and largest element of a non-empty slice.
func extremes[T number](values []T) (lo, hi T) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ParseStat normalises a statistic name.
func ParseStat(name string) (string, error) {
	switch s := strings.ToLower(strings.TrimSpace(name)); s {
	case StatMin, StatMax, StatMean:
		return s, nil
	case "avg", "average":
		return StatMean, nil
	default:
		return "", errors.NewInvalidArgumentError("ParseStat", "", "unknown statistic "+name).
			WithHint("use min, max or mean")
	}
}

// Stat returns the named statistic of field's number bucket.
func (r Report) Stat(field, stat string) (float64, error) {
	const op = "Stat"
	name, err := ParseStat(stat)
	if err != nil {
		return 0, err
	}
	fr, ok := r[field]
	if !ok {
		return 0, errors.NewInvalidArgumentError(op, field, "field does not exist")
	}
	if fr.Number == nil {
		return 0, errors.NewInvalidArgumentError(op, field, "field has no numeric values")
	}
	switch name {
	case StatMin:
		return fr.Number.Min, nil
	case StatMax:
		return fr.Number.Max, nil
	default:
		return fr.Number.Mean, nil
	}
}
