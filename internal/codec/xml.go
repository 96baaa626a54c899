package codec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/paveg/datafilter/internal/dataset"
	dserrors "github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/value"
)

// Nesting depths of the XML-like layout: <root><record><field>text</field>.
const (
	xmlDepthRoot = iota + 1
	xmlDepthRecord
	xmlDepthField
)

// Read reads an XML-like document. Every child of the root element is a
// record and every child of a record is a field whose text is decoded with
// the literal-or-text rule. Element names of the root and records are not
// checked.
func (r *XMLReader) Read() (dataset.Dataset, error) {
	dec := xml.NewDecoder(r.reader)

	var (
		d       = dataset.Dataset{}
		rec     dataset.Record
		field   string
		text    strings.Builder
		depth   int
		hasRoot bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case xmlDepthRoot:
				if hasRoot {
					return nil, fmt.Errorf("multiple root elements")
				}
				hasRoot = true
			case xmlDepthRecord:
				rec = dataset.Record{}
			case xmlDepthField:
				field = t.Name.Local
				text.Reset()
			default:
				return nil, fmt.Errorf("field %q contains nested element <%s>", field, t.Name.Local)
			}
		case xml.CharData:
			if depth == xmlDepthField {
				text.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case xmlDepthField:
				rec[field] = value.DecodeCell(text.String())
			case xmlDepthRecord:
				d = append(d, rec)
			}
			depth--
		}
	}

	if !hasRoot {
		return nil, fmt.Errorf("document has no root element")
	}
	return d, nil
}

// Write writes the Dataset as an XML-like document. Field names must be
// valid element names.
func (w *XMLWriter) Write(d dataset.Dataset) error {
	if _, err := io.WriteString(w.writer, xml.Header); err != nil {
		return fmt.Errorf("writing XML header: %w", err)
	}

	enc := xml.NewEncoder(w.writer)
	if w.options.Indent > 0 {
		enc.Indent("", strings.Repeat(" ", w.options.Indent))
	}

	root := xml.StartElement{Name: xml.Name{Local: w.options.RootElement}}
	item := xml.StartElement{Name: xml.Name{Local: w.options.RecordElement}}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("writing XML root: %w", err)
	}
	for _, rec := range d {
		if err := enc.EncodeToken(item); err != nil {
			return fmt.Errorf("writing XML record: %w", err)
		}
		for _, f := range rec.Fields() {
			if !validElementName(f) {
				return dserrors.NewEncodeError("WriteXML", f, "field name is not a valid element name")
			}
			elem := xml.StartElement{Name: xml.Name{Local: f}}
			if err := enc.EncodeElement(value.EncodeLiteral(rec[f]), elem); err != nil {
				return fmt.Errorf("writing XML field %q: %w", f, err)
			}
		}
		if err := enc.EncodeToken(item.End()); err != nil {
			return fmt.Errorf("writing XML record: %w", err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("writing XML root: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flushing XML: %w", err)
	}
	_, err := io.WriteString(w.writer, "\n")
	return err
}

// validElementName reports whether name can be used as an element name
// without a namespace prefix.
func validElementName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
