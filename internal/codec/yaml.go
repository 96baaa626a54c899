package codec

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/value"
	"gopkg.in/yaml.v3"
)

// Read reads a YAML-like document holding a sequence of mappings. Multiple
// documents in one stream are concatenated. Top-level string values are
// decoded with the literal-or-text rule; everything else keeps its YAML type.
func (r *YAMLReader) Read() (dataset.Dataset, error) {
	dec := yaml.NewDecoder(r.reader)

	d := dataset.Dataset{}
	for {
		var raw any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unmarshaling YAML document: %w", err)
		}

		records, err := recordsFromNative(normalizeYAML(raw))
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			for f, v := range rec {
				if s, ok := v.AsText(); ok {
					rec[f] = value.DecodeCell(s)
				}
			}
		}
		d = append(d, records...)
	}
	return d, nil
}

// normalizeYAML rewrites mappings with non-string keys into string-keyed
// maps so the shared record conversion accepts them.
func normalizeYAML(raw any) any {
	switch x := raw.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i, v := range x {
			x[i] = normalizeYAML(v)
		}
		return x
	default:
		return raw
	}
}

// Write writes the Dataset as a YAML sequence of mappings. Scalars carry
// explicit tags where the plain form would resolve to another type.
func (w *YAMLWriter) Write(d dataset.Dataset) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, rec := range d {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range rec.Fields() {
			m.Content = append(m.Content, stringNode(f), valueNode(rec[f]))
		}
		doc.Content = append(doc.Content, m)
	}

	enc := yaml.NewEncoder(w.writer)
	indent := w.options.Indent
	if indent <= 0 {
		indent = DefaultYAMLIndent
	}
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func valueNode(v value.Value) *yaml.Node {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
	case value.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
	case value.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(f)}
	case value.KindText:
		s, _ := v.AsText()
		return stringNode(s)
	case value.KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range v.Items() {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case value.KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
		entries := v.Entries()
		for _, k := range v.Keys() {
			n.Content = append(n.Content, stringNode(k), valueNode(entries[k]))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return value.FormatFloat(f)
}
