package filter_test

import (
	"strings"
	"testing"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/filter"
	"github.com/paveg/datafilter/internal/testutil"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(t *testing.T, d dataset.Dataset) []string {
	t.Helper()
	out := make([]string, 0, len(d))
	for _, r := range d {
		s, ok := r["name"].AsText()
		require.True(t, ok)
		out = append(out, s)
	}
	return out
}

func TestFilter_Operators(t *testing.T) {
	d := testutil.CreateTestDataset(testutil.WithTagsField())

	tests := []struct {
		name    string
		field   string
		op      filter.Operator
		operand value.Value
		want    []string
	}{
		{"equal int", "age", filter.OpEq, value.Int(30), []string{"Bob"}},
		{"equal int to float", "age", filter.OpEq, value.Float(30), []string{"Bob"}},
		{"equal text ignores case", "name", filter.OpEq, value.Text("alice"), []string{"Alice"}},
		{"not equal", "department", filter.OpNe, value.Text("engineering"), []string{"Bob", "David"}},
		{"less than", "age", filter.OpLt, value.Int(30), []string{"Alice", "David"}},
		{"greater or equal", "salary", filter.OpGe, value.Int(100000), []string{"Alice", "Charlie"}},
		{"less or equal", "age", filter.OpLe, value.Int(28), []string{"Alice", "David"}},
		{"text ordering", "name", filter.OpGt, value.Text("Bz"), []string{"Charlie", "David"}},
		{"list length", "tags", filter.OpGe, value.Int(2), []string{"Bob", "Charlie"}},
		{"contains", "department", filter.OpContains, value.Text("ENG"), []string{"Alice", "Charlie"}},
		{"starts with", "name", filter.OpStartsWith, value.Text("da"), []string{"David"}},
		{"ends with", "department", filter.OpEndsWith, value.Text("ing"), []string{"Alice", "Charlie", "David"}},
		{"incompatible kinds are excluded", "age", filter.OpGt, value.Text("20"), []string{}},
		{"text operator on numbers", "age", filter.OpContains, value.Text("3"), []string{}},
		{"missing field", "nope", filter.OpEq, value.Int(1), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := filter.Filter(d, tt.field, tt.op, tt.operand)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, out))
		})
	}
}

func TestFilter_NullNeverMatches(t *testing.T) {
	d := dataset.Dataset{
		{"name": value.Text("a"), "x": value.Null()},
		{"name": value.Text("b")},
		{"name": value.Text("c"), "x": value.Int(1)},
	}

	out, err := filter.Filter(d, "x", filter.OpNe, value.Int(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(t, out))

	out, err = filter.Filter(d, "x", filter.OpEq, value.Null())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilter_ResultIsSubsetAndIndependent(t *testing.T) {
	d := testutil.CreateMixedDataset()
	before := d.Clone()

	for _, op := range filter.Operators() {
		for _, field := range append(d.Fields(), "missing") {
			out, err := filter.Filter(d, field, op, value.Int(1))
			require.NoError(t, err)
			assert.LessOrEqual(t, out.Len(), d.Len())
			for _, r := range out {
				assert.True(t, filter.Condition{Field: field, Op: op, Operand: value.Int(1)}.Match(r))
			}
		}
	}

	out, err := filter.Filter(d, "id", filter.OpEq, value.Int(1))
	require.NoError(t, err)
	out[0]["id"] = value.Int(99)
	assert.True(t, before.Equal(d), "input is never mutated")
}

func TestFilter_ListOperators(t *testing.T) {
	d := dataset.Dataset{
		{"name": value.Text("a"), "v": value.List(value.Int(1), value.Int(9))},
		{"name": value.Text("b"), "v": value.List(value.Int(6), value.Float(7.5), value.Text("x"))},
		{"name": value.Text("c"), "v": value.List(value.Text("x"))},
		{"name": value.Text("d"), "v": value.Int(10)},
	}

	out, err := filter.Filter(d, "v", filter.OpListAny, value.Int(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(t, out))

	out, err = filter.Filter(d, "v", filter.OpListAll, value.Int(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names(t, out), "a list without numbers satisfies list_all")
}

func TestWhere(t *testing.T) {
	d := testutil.CreateTestDataset()
	out, err := filter.Where(d,
		filter.Condition{Field: "department", Op: "eq", Operand: value.Text("Engineering")},
		filter.Condition{Field: "age", Op: filter.OpGt, Operand: value.Int(30)},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Charlie"}, names(t, out))

	_, err = filter.Where(d, filter.Condition{Field: "age", Op: "~", Operand: value.Int(1)})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, err = filter.Where(d, filter.Condition{Field: " ", Op: filter.OpEq, Operand: value.Int(1)})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestUpdate(t *testing.T) {
	d := testutil.CreateTestDataset()
	cond := filter.Condition{Field: "department", Op: filter.OpEq, Operand: value.Text("engineering")}

	out, n, err := filter.Update(d, cond, "bonus", value.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	testutil.AssertFieldValues(t, out, "bonus", value.Bool(true), value.Null(), value.Bool(true), value.Null())
	assert.NotContains(t, d.Fields(), "bonus")

	_, _, err = filter.Update(d, cond, "", value.Null())
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestByStat(t *testing.T) {
	d := testutil.CreateTestDataset()

	out, threshold, err := filter.ByStat(d, "age", filter.OpGt, "mean")
	require.NoError(t, err)
	assert.InDelta(t, 29.5, threshold, 1e-9)
	assert.Equal(t, []string{"Bob", "Charlie"}, names(t, out))

	out, threshold, err = filter.ByStat(d, "salary", filter.OpEq, "max")
	require.NoError(t, err)
	assert.InDelta(t, 120000.0, threshold, 1e-9)
	assert.Equal(t, []string{"Charlie"}, names(t, out))

	_, _, err = filter.ByStat(d, "name", filter.OpGt, "mean")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, _, err = filter.ByStat(d, "age", filter.OpContains, "mean")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, _, err = filter.ByStat(d, "age", filter.OpGt, "median")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, _, err = filter.ByStat(d, "bonus", filter.OpGt, "mean")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "field does not exist")
	assert.Contains(t, err.Error(), "available fields")
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		expr string
		want filter.Condition
	}{
		{"age >= 30", filter.Condition{Field: "age", Op: filter.OpGe, Operand: value.Int(30)}},
		{"age>30", filter.Condition{Field: "age", Op: filter.OpGt, Operand: value.Int(30)}},
		{"score == 1.5", filter.Condition{Field: "score", Op: filter.OpEq, Operand: value.Float(1.5)}},
		{"name != Bob", filter.Condition{Field: "name", Op: filter.OpNe, Operand: value.Text("Bob")}},
		{`name = "42"`, filter.Condition{Field: "name", Op: filter.OpEq, Operand: value.Text("42")}},
		{"name contains al ice", filter.Condition{Field: "name", Op: filter.OpContains, Operand: value.Text("al ice")}},
		{"dept STARTS_WITH eng", filter.Condition{Field: "dept", Op: filter.OpStartsWith, Operand: value.Text("eng")}},
		{"age gte 21", filter.Condition{Field: "age", Op: filter.OpGe, Operand: value.Int(21)}},
		{"tags list_any 3", filter.Condition{Field: "tags", Op: filter.OpListAny, Operand: value.Int(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := filter.ParseCondition(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Field, got.Field)
			assert.Equal(t, tt.want.Op, got.Op)
			assert.True(t, tt.want.Operand.Equal(got.Operand), "operand %#v", got.Operand)
		})
	}

	for _, bad := range []string{"", "age", ">= 30", "name contains", "age ! 3"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := filter.ParseCondition(bad)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
		})
	}
}

func TestParseOperator(t *testing.T) {
	for _, op := range filter.Operators() {
		got, err := filter.ParseOperator(strings.ToUpper(string(op)))
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}

	_, err := filter.ParseOperator("~")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "supported operators: =, !=, <, >, <=, >=, contains, starts_with, ends_with, list_any, list_all")
}
