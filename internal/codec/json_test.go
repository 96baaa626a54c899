package codec_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/paveg/datafilter/internal/codec"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/testutil"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReader(t *testing.T) {
	t.Run("reads array of objects", func(t *testing.T) {
		jsonData := `[
			{"name": "Alice", "age": 25, "score": 9.5, "tags": ["a", 1], "extra": {"k": null}},
			{"name": "Bob", "age": 30.0, "active": true}
		]`

		d, err := codec.NewJSONReader(strings.NewReader(jsonData), codec.DefaultJSONOptions()).Read()
		require.NoError(t, err)
		require.Equal(t, 2, d.Len())

		testutil.AssertDatasetHasFields(t, d, []string{"name", "age", "score", "tags", "extra", "active"})
		testutil.AssertFieldValues(t, d, "age", value.Int(25), value.Float(30))
		assert.True(t, d[0]["tags"].Equal(value.List(value.Text("a"), value.Int(1))))
		assert.True(t, d[0]["extra"].Equal(value.Map(map[string]value.Value{"k": value.Null()})))
		_, present := d[1]["score"]
		assert.False(t, present, "absent fields stay absent")
	})

	t.Run("single object is one record", func(t *testing.T) {
		d, err := codec.NewJSONReader(strings.NewReader(`{"a": 1}`), codec.DefaultJSONOptions()).Read()
		require.NoError(t, err)
		testutil.AssertFieldValues(t, d, "a", value.Int(1))
	})

	t.Run("strings are never reinterpreted", func(t *testing.T) {
		d, err := codec.NewJSONReader(strings.NewReader(`[{"a": "42"}]`), codec.DefaultJSONOptions()).Read()
		require.NoError(t, err)
		testutil.AssertFieldValues(t, d, "a", value.Text("42"))
	})

	t.Run("empty input", func(t *testing.T) {
		d, err := codec.NewJSONReader(strings.NewReader(""), codec.DefaultJSONOptions()).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, d.Len())
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, data := range []string{`[{"a": 1}`, `[1, 2]`, `"text"`, `[{}] []`} {
			_, err := codec.NewJSONReader(strings.NewReader(data), codec.DefaultJSONOptions()).Read()
			assert.Error(t, err, data)
		}
	})

	t.Run("reads JSON lines", func(t *testing.T) {
		opts := codec.DefaultJSONOptions()
		opts.Format = codec.JSONLines
		d, err := codec.NewJSONReader(strings.NewReader("{\"a\": 1}\n\n{\"a\": \"x\"}\n"), opts).Read()
		require.NoError(t, err)
		testutil.AssertFieldValues(t, d, "a", value.Int(1), value.Text("x"))

		_, err = codec.NewJSONReader(strings.NewReader("{\"a\": 1}\nnope\n"), opts).Read()
		assert.ErrorContains(t, err, "line 2")
	})
}

func TestJSONWriter(t *testing.T) {
	t.Run("writes indented array with sorted keys", func(t *testing.T) {
		d := dataset.Dataset{{"b": value.Float(2), "a": value.Text("x")}}

		var buf bytes.Buffer
		require.NoError(t, codec.NewJSONWriter(&buf, codec.DefaultJSONOptions()).Write(d))

		expected := "[\n    {\n        \"a\": \"x\",\n        \"b\": 2.0\n    }\n]\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("round trip preserves tags", func(t *testing.T) {
		d := testutil.CreateMixedDataset()

		var buf bytes.Buffer
		require.NoError(t, codec.NewJSONWriter(&buf, codec.DefaultJSONOptions()).Write(d))
		back, err := codec.NewJSONReader(&buf, codec.DefaultJSONOptions()).Read()
		require.NoError(t, err)
		testutil.AssertDatasetEqual(t, d, back)
	})

	t.Run("JSON lines round trip", func(t *testing.T) {
		opts := codec.DefaultJSONOptions()
		opts.Format = codec.JSONLines
		d := testutil.CreateMixedDataset()

		var buf bytes.Buffer
		require.NoError(t, codec.NewJSONWriter(&buf, opts).Write(d))
		assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

		back, err := codec.NewJSONReader(&buf, opts).Read()
		require.NoError(t, err)
		testutil.AssertDatasetEqual(t, d, back)
	})

	t.Run("non-finite float is an encode error", func(t *testing.T) {
		d := dataset.Dataset{{"x": value.Float(math.Inf(1))}}

		var buf bytes.Buffer
		err := codec.NewJSONWriter(&buf, codec.DefaultJSONOptions()).Write(d)
		require.ErrorIs(t, err, errors.ErrEncode)
		assert.Equal(t, errors.KindEncode, errors.KindOf(err))
		assert.Contains(t, err.Error(), "'x'")
	})
}

func nan() float64 { return math.NaN() }
