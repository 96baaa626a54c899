// Package testutil provides common testing utilities shared by the dataset
// engine's package tests.
//
// It consolidates the patterns most tests need:
//   - Arrow allocator setup with leak checking
//   - Standard employee Dataset fixtures
//   - Temporary data files
//   - Dataset assertions that report the first differing record
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of records in test Datasets.
	defaultRowCount = 4
)

// TestMemoryContext provides a leak-checking allocator.
type TestMemoryContext struct {
	Allocator *memory.CheckedAllocator
	tb        testing.TB
}

// Release asserts that every buffer taken from the allocator was freed.
func (tmc *TestMemoryContext) Release() {
	tmc.Allocator.AssertSize(tmc.tb, 0)
}

// SetupMemoryTest creates a checked allocator for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewCheckedAllocator(memory.NewGoAllocator()),
		tb:        tb,
	}
}

// TestDatasetOption configures test Dataset creation.
type TestDatasetOption func(*testDatasetConfig)

type testDatasetConfig struct {
	includeNulls  bool
	rowCount      int
	includeActive bool
	includeTags   bool
}

// WithNulls replaces every third salary with Null and drops the age of the
// second record.
func WithNulls() TestDatasetOption {
	return func(c *testDatasetConfig) { c.includeNulls = true }
}

// WithRowCount sets the number of records in test data.
func WithRowCount(count int) TestDatasetOption {
	return func(c *testDatasetConfig) { c.rowCount = count }
}

// WithActiveField includes an 'active' boolean field.
func WithActiveField() TestDatasetOption {
	return func(c *testDatasetConfig) { c.includeActive = true }
}

// WithTagsField includes a 'tags' list field.
func WithTagsField() TestDatasetOption {
	return func(c *testDatasetConfig) { c.includeTags = true }
}

// CreateTestDataset creates a standard employee Dataset.
//
// Default Dataset includes:
//   - name (text): ["Alice", "Bob", "Charlie", "David"]
//   - age (int): [25, 30, 35, 28]
//   - department (text): ["Engineering", "Sales", "Engineering", "Marketing"]
//   - salary (float): [100000.0, 80000.0, 120000.0, 75000.0]
//
// Example usage:
//
//	d := testutil.CreateTestDataset(testutil.WithActiveField())
func CreateTestDataset(opts ...TestDatasetOption) dataset.Dataset {
	config := &testDatasetConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(config)
	}

	d := make(dataset.Dataset, config.rowCount)
	for i := range config.rowCount {
		rec := dataset.Record{
			"name":       value.Text(baseNames[i%len(baseNames)]),
			"age":        value.Int(baseAges[i%len(baseAges)]),
			"department": value.Text(baseDepts[i%len(baseDepts)]),
			"salary":     value.Float(baseSalaries[i%len(baseSalaries)]),
		}
		if config.includeActive {
			rec["active"] = value.Bool(baseFlags[i%len(baseFlags)])
		}
		if config.includeTags {
			rec["tags"] = tagsFor(i)
		}
		if config.includeNulls {
			if i%3 == 2 {
				rec["salary"] = value.Null()
			}
			if i == 1 {
				delete(rec, "age")
			}
		}
		d[i] = rec
	}
	return d
}

// CreateMixedDataset creates a small Dataset whose fields mix kinds across
// records, covering every value tag.
func CreateMixedDataset() dataset.Dataset {
	return dataset.Dataset{
		{
			"id":    value.Int(1),
			"score": value.Float(9.5),
			"label": value.Text("alpha"),
			"flag":  value.Bool(true),
			"items": value.List(value.Int(1), value.Int(2)),
			"meta":  value.Map(map[string]value.Value{"k": value.Text("v")}),
		},
		{
			"id":    value.Int(2),
			"score": value.Int(7),
			"label": value.Text("beta"),
			"flag":  value.Bool(false),
			"items": value.List(),
		},
		{
			"id":    value.Int(3),
			"score": value.Null(),
			"label": value.Text("alpha"),
			"items": value.List(value.Text("x"), value.Float(1.5), value.Int(3)),
			"meta":  value.Map(map[string]value.Value{"k": value.Int(1), "n": value.Null()}),
		},
	}
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// AssertDatasetEqual performs record-by-record comparison of Datasets.
func AssertDatasetEqual(t *testing.T, expected, actual dataset.Dataset) {
	t.Helper()

	require.Len(t, actual, len(expected), "record count should match")
	for i := range expected {
		if !expected[i].Equal(actual[i]) {
			assert.Failf(t, "records differ",
				"record %d:\nexpected: %#v\nactual:   %#v", i, expected[i], actual[i])
			return
		}
	}
}

// AssertDatasetHasFields verifies the field union of a Dataset.
func AssertDatasetHasFields(t *testing.T, d dataset.Dataset, expectedFields []string) {
	t.Helper()
	assert.ElementsMatch(t, expectedFields, d.Fields(), "field union should match")
}

// AssertFieldValues verifies the values of field across records, in order.
// An absent field is compared as Null.
func AssertFieldValues(t *testing.T, d dataset.Dataset, field string, expected ...value.Value) {
	t.Helper()

	require.Len(t, d, len(expected), "record count should match")
	for i, want := range expected {
		got, ok := d[i][field]
		if !ok {
			got = value.Null()
		}
		assert.True(t, want.Equal(got), "record %d field %s: expected %#v, got %#v", i, field, want, got)
	}
}

var (
	baseNames    = []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	baseAges     = []int64{25, 30, 35, 28, 32, 45, 29, 38}
	baseDepts    = []string{"Engineering", "Sales", "Engineering", "Marketing", "HR", "Finance", "Engineering", "Sales"}
	baseSalaries = []float64{100000, 80000, 120000, 75000, 90000, 110000, 95000, 85000}
	baseFlags    = []bool{true, true, false, true, true, false, true, false}
)

func tagsFor(i int) value.Value {
	tags := make([]value.Value, i%3+1)
	for j := range tags {
		tags[j] = value.Text(baseDepts[(i+j)%len(baseDepts)])
	}
	return value.List(tags...)
}
