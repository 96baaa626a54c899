package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paveg/datafilter/internal/dataset"
	dserrors "github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/value"
)

// Read reads JSON data and returns a Dataset.
func (r *JSONReader) Read() (dataset.Dataset, error) {
	switch r.options.Format {
	case JSONArray:
		return r.readJSONArray()
	case JSONLines:
		return r.readJSONLines()
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.options.Format)
	}
}

// readJSONArray reads a document holding an array of objects. A single
// top-level object is accepted as a one-record dataset.
func (r *JSONReader) readJSONArray() (dataset.Dataset, error) {
	dec := json.NewDecoder(r.reader)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.Dataset{}, nil
		}
		return nil, fmt.Errorf("unmarshaling JSON document: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected content after JSON document")
	}
	return recordsFromNative(raw)
}

// readJSONLines reads one object per line, skipping blank lines.
func (r *JSONReader) readJSONLines() (dataset.Dataset, error) {
	scanner := bufio.NewScanner(r.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLineSize)

	d := dataset.Dataset{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("unmarshaling JSON line %d: %w", lineNum, err)
		}
		d = append(d, dataset.FromNative(record))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning JSON lines: %w", err)
	}
	return d, nil
}

// recordsFromNative converts a decoded document into records. It is shared
// by the JSON and YAML readers.
func recordsFromNative(raw any) (dataset.Dataset, error) {
	switch doc := raw.(type) {
	case nil:
		return dataset.Dataset{}, nil
	case map[string]any:
		return dataset.Dataset{dataset.FromNative(doc)}, nil
	case []any:
		d := make(dataset.Dataset, 0, len(doc))
		for i, elem := range doc {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, expected an object", i, elem)
			}
			d = append(d, dataset.FromNative(m))
		}
		return d, nil
	default:
		return nil, fmt.Errorf("top-level value is %T, expected an array of objects", raw)
	}
}

// Write writes the Dataset to JSON format. NaN and infinite floats have no
// JSON spelling and fail with an encode error naming the field.
func (w *JSONWriter) Write(d dataset.Dataset) error {
	switch w.options.Format {
	case JSONArray:
		return w.writeJSONArray(d)
	case JSONLines:
		return w.writeJSONLines(d)
	default:
		return fmt.Errorf("unsupported JSON format: %d", w.options.Format)
	}
}

func (w *JSONWriter) writeJSONArray(d dataset.Dataset) error {
	compact := []byte{'['}
	for i, rec := range d {
		if i > 0 {
			compact = append(compact, ',')
		}
		var err error
		if compact, err = appendRecordJSON(compact, rec); err != nil {
			return err
		}
	}
	compact = append(compact, ']')

	var out bytes.Buffer
	if w.options.Indent > 0 {
		if err := json.Indent(&out, compact, "", strings.Repeat(" ", w.options.Indent)); err != nil {
			return fmt.Errorf("indenting JSON output: %w", err)
		}
	} else {
		out.Write(compact)
	}
	out.WriteByte('\n')

	if _, err := w.writer.Write(out.Bytes()); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}

func (w *JSONWriter) writeJSONLines(d dataset.Dataset) error {
	buf := bufio.NewWriter(w.writer)
	line := make([]byte, 0, 256)
	for _, rec := range d {
		var err error
		if line, err = appendRecordJSON(line[:0], rec); err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := buf.Write(line); err != nil {
			return fmt.Errorf("writing JSON line: %w", err)
		}
	}
	return buf.Flush()
}

// appendRecordJSON appends rec as a compact JSON object with sorted keys.
func appendRecordJSON(dst []byte, rec dataset.Record) ([]byte, error) {
	dst = append(dst, '{')
	for i, f := range rec.Fields() {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, value.Quote(f)...)
		dst = append(dst, ':')
		var err error
		if dst, err = value.AppendJSON(dst, rec[f]); err != nil {
			if errors.Is(err, value.ErrNonFinite) {
				return nil, dserrors.NewEncodeError("WriteJSON", f, "NaN and infinite floats cannot be written as JSON")
			}
			return nil, fmt.Errorf("encoding field %q: %w", f, err)
		}
	}
	return append(dst, '}'), nil
}
