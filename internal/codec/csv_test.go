package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paveg/datafilter/internal/codec"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/testutil"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	t.Run("reads typed cells", func(t *testing.T) {
		csvData := `name,age,score,active,tags,meta
Alice,25,9.5,true,"[1,2]","{""a"":1}"
Bob,30,7.0,false,[],null`

		d, err := codec.NewCSVReader(strings.NewReader(csvData), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		require.Equal(t, 2, d.Len())

		testutil.AssertFieldValues(t, d, "name", value.Text("Alice"), value.Text("Bob"))
		testutil.AssertFieldValues(t, d, "age", value.Int(25), value.Int(30))
		testutil.AssertFieldValues(t, d, "score", value.Float(9.5), value.Float(7))
		testutil.AssertFieldValues(t, d, "active", value.Bool(true), value.Bool(false))
		testutil.AssertFieldValues(t, d, "tags", value.List(value.Int(1), value.Int(2)), value.List())
		testutil.AssertFieldValues(t, d, "meta", value.Map(map[string]value.Value{"a": value.Int(1)}), value.Null())
	})

	t.Run("empty cell stays text and missing cell is null", func(t *testing.T) {
		d, err := codec.NewCSVReader(strings.NewReader("a,b,c\n,x\n"), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		require.Equal(t, 1, d.Len())

		assert.True(t, d[0]["a"].Equal(value.Text("")))
		assert.True(t, d[0]["b"].Equal(value.Text("x")))
		assert.True(t, d[0]["c"].IsNull())
	})

	t.Run("text keeps surrounding whitespace", func(t *testing.T) {
		d, err := codec.NewCSVReader(strings.NewReader("a\n  hello \n"), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.True(t, d[0]["a"].Equal(value.Text("  hello ")))
	})

	t.Run("custom delimiter", func(t *testing.T) {
		opts := codec.DefaultCSVOptions()
		opts.Delimiter = ';'
		d, err := codec.NewCSVReader(strings.NewReader("a;b\n1;two\n"), opts).Read()
		require.NoError(t, err)
		testutil.AssertFieldValues(t, d, "a", value.Int(1))
		testutil.AssertFieldValues(t, d, "b", value.Text("two"))
	})

	t.Run("header only and empty input", func(t *testing.T) {
		d, err := codec.NewCSVReader(strings.NewReader("a,b\n"), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, d.Len())

		d, err = codec.NewCSVReader(strings.NewReader(""), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, d.Len())
	})

	t.Run("malformed input", func(t *testing.T) {
		tests := []struct {
			name string
			data string
		}{
			{"duplicate header", "a,a\n1,2\n"},
			{"too many cells", "a\n1,2\n"},
			{"unterminated quote", "a\n\"oops\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := codec.NewCSVReader(strings.NewReader(tt.data), codec.DefaultCSVOptions()).Read()
				assert.Error(t, err)
			})
		}
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		d, err := codec.NewCSVReader(strings.NewReader("\ufeffid\n1\n"), codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, d.Fields())
	})
}

func TestCSVWriter(t *testing.T) {
	t.Run("writes union header and literals", func(t *testing.T) {
		d := dataset.Dataset{
			{"b": value.Text("x,y"), "a": value.Float(3)},
			{"c": value.List(value.Int(1), value.Text("z"))},
		}

		var buf bytes.Buffer
		require.NoError(t, codec.NewCSVWriter(&buf, codec.DefaultCSVOptions()).Write(d))

		expected := "a,b,c\n" +
			"3.0,\"x,y\",null\n" +
			"null,null,\"[1,\"\"z\"\"]\"\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("round trip keeps every non-text tag", func(t *testing.T) {
		d := testutil.CreateMixedDataset()

		var buf bytes.Buffer
		require.NoError(t, codec.NewCSVWriter(&buf, codec.DefaultCSVOptions()).Write(d))
		back, err := codec.NewCSVReader(&buf, codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)

		require.Equal(t, d.Len(), back.Len())
		for i := range d {
			for _, f := range back.Fields() {
				want, ok := d[i][f]
				if !ok {
					want = value.Null()
				}
				assert.True(t, want.Equal(back[i][f]), "record %d field %s: %#v vs %#v", i, f, want, back[i][f])
			}
		}
	})

	t.Run("single column empty text keeps its record", func(t *testing.T) {
		d := dataset.Dataset{{"a": value.Text("")}, {"a": value.Int(1)}}

		var buf bytes.Buffer
		require.NoError(t, codec.NewCSVWriter(&buf, codec.DefaultCSVOptions()).Write(d))
		assert.Equal(t, "a\n\"\"\n1\n", buf.String())

		back, err := codec.NewCSVReader(&buf, codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		require.Len(t, back, 2)
		assert.True(t, value.Text("").Equal(back[0]["a"]))
		assert.True(t, value.Int(1).Equal(back[1]["a"]))
	})

	t.Run("literal-looking text becomes typed", func(t *testing.T) {
		d := dataset.Dataset{{"code": value.Text("42")}}

		var buf bytes.Buffer
		require.NoError(t, codec.NewCSVWriter(&buf, codec.DefaultCSVOptions()).Write(d))
		back, err := codec.NewCSVReader(&buf, codec.DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.True(t, back[0]["code"].Equal(value.Int(42)))
	})
}
