package filter

import (
	"github.com/paveg/datafilter/internal/analyzer"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
)

// ByStat keeps the records whose numeric field compares to the field's own
// min, max or mean under op. It returns the filtered dataset and the
// threshold that was used.
func ByStat(d dataset.Dataset, field string, op Operator, stat string) (dataset.Dataset, float64, error) {
	const name = "FilterByStat"
	v := validation.NewCompoundValidator(
		validation.NewFieldNameValidator(field, name),
		validation.NewFieldExistsValidator(d, field, name),
	)
	if err := v.Validate(); err != nil {
		return nil, 0, err
	}
	operator, err := ParseOperator(string(op))
	if err != nil {
		return nil, 0, err
	}
	if !operator.IsOrdering() && operator != OpEq && operator != OpNe {
		return nil, 0, errors.NewInvalidArgumentError(name, field, "operator "+string(operator)+" cannot compare against a statistic")
	}

	fr := analyzer.New().AnalyzeField(d, field)
	report := analyzer.Report{field: fr}
	threshold, err := report.Stat(field, stat)
	if err != nil {
		return nil, 0, err
	}

	out, err := Filter(d, field, operator, value.Float(threshold))
	if err != nil {
		return nil, 0, err
	}
	return out, threshold, nil
}
