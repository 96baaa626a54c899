package testutil_test

import (
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/datafilter/internal/testutil"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryTest(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	require.NotNil(t, mem.Allocator)

	b := array.NewFloat64Builder(mem.Allocator)
	b.AppendValues([]float64{1, 2, 3}, nil)
	arr := b.NewFloat64Array()
	b.Release()
	assert.Equal(t, 3, arr.Len())
	arr.Release()
}

func TestCreateTestDataset(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		d := testutil.CreateTestDataset()

		assert.Equal(t, 4, d.Len())
		testutil.AssertDatasetHasFields(t, d, []string{"name", "age", "department", "salary"})
		testutil.AssertFieldValues(t, d, "age", value.Int(25), value.Int(30), value.Int(35), value.Int(28))
	})

	t.Run("with options", func(t *testing.T) {
		d := testutil.CreateTestDataset(
			testutil.WithRowCount(6),
			testutil.WithActiveField(),
			testutil.WithTagsField(),
			testutil.WithNulls(),
		)

		assert.Equal(t, 6, d.Len())
		testutil.AssertDatasetHasFields(t, d, []string{"name", "age", "department", "salary", "active", "tags"})
		assert.True(t, d[2]["salary"].IsNull())
		_, hasAge := d[1]["age"]
		assert.False(t, hasAge)
		assert.Equal(t, 3, d[2]["tags"].Len())
	})
}

func TestCreateMixedDataset(t *testing.T) {
	d := testutil.CreateMixedDataset()
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, value.KindFloat, d[0]["score"].Kind())
	assert.Equal(t, value.KindInt, d[1]["score"].Kind())
}

func TestWriteFile(t *testing.T) {
	path := testutil.WriteFile(t, "data.csv", "a,b\n1,2\n")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestAssertDatasetEqual(t *testing.T) {
	d := testutil.CreateTestDataset()
	testutil.AssertDatasetEqual(t, d, d.Clone())
}
