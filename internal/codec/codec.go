// Package codec provides readers and writers that map datasets to and from
// their textual formats.
//
// Key components:
//   - DataReader/DataWriter interfaces for pluggable format backends
//   - CSV and XML-like codecs that carry types through structural literals
//   - JSON, JSON Lines and YAML-like codecs that keep native types
//   - Registry for extension-based format selection and crash-safe saves
//
// CSV cells and XML text nodes have no type system. Text values are written
// verbatim and every other value as its structural literal; on read, a cell
// that parses as a literal takes the literal's type and anything else stays
// Text. A text field that always holds literal-looking strings such as "42"
// therefore comes back typed after a round trip.
package codec

import (
	"io"

	"github.com/paveg/datafilter/internal/dataset"
)

const (
	// DefaultJSONIndent is the number of spaces used to indent JSON arrays
	DefaultJSONIndent = 4
	// DefaultYAMLIndent is the number of spaces used to indent YAML documents
	DefaultYAMLIndent = 2
	// DefaultXMLIndent is the number of spaces used to indent XML documents
	DefaultXMLIndent = 2
	// maxJSONLineSize bounds a single JSON Lines record
	maxJSONLineSize = 16 * 1024 * 1024
)

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	// Read reads data from the source and returns a Dataset
	Read() (dataset.Dataset, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	// Write writes the Dataset to the destination
	Write(d dataset.Dataset) error
}

// Options bundles the per-format options a Registry hands to its codecs.
type Options struct {
	CSV  CSVOptions
	JSON JSONOptions
	XML  XMLOptions
	YAML YAMLOptions
}

// DefaultOptions returns default options for every format
func DefaultOptions() Options {
	return Options{
		CSV:  DefaultCSVOptions(),
		JSON: DefaultJSONOptions(),
		XML:  DefaultXMLOptions(),
		YAML: DefaultYAMLOptions(),
	}
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter: ',',
		Comment:   0,
	}
}

// JSONFormat selects between a single JSON array and newline-delimited records.
type JSONFormat int

const (
	// JSONArray is a single array of objects
	JSONArray JSONFormat = iota
	// JSONLines is one object per line
	JSONLines
)

// JSONOptions contains configuration options for JSON operations
type JSONOptions struct {
	// Format selects array or line-delimited layout
	Format JSONFormat
	// Indent is the number of spaces per nesting level for JSONArray output (0 = compact)
	Indent int
}

// DefaultJSONOptions returns default JSON options
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{
		Format: JSONArray,
		Indent: DefaultJSONIndent,
	}
}

// XMLOptions contains configuration options for XML-like operations
type XMLOptions struct {
	// RootElement wraps the whole document
	RootElement string
	// RecordElement wraps one record
	RecordElement string
	// Indent is the number of spaces per nesting level (0 = single line)
	Indent int
}

// DefaultXMLOptions returns default XML options
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		RootElement:   "data",
		RecordElement: "item",
		Indent:        DefaultXMLIndent,
	}
}

// YAMLOptions contains configuration options for YAML-like operations
type YAMLOptions struct {
	// Indent is the number of spaces per nesting level
	Indent int
}

// DefaultYAMLOptions returns default YAML options
func DefaultYAMLOptions() YAMLOptions {
	return YAMLOptions{Indent: DefaultYAMLIndent}
}

// CSVReader reads CSV data and converts it to a Dataset
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions) *CSVReader {
	return &CSVReader{reader: reader, options: options}
}

// CSVWriter writes Datasets to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{writer: writer, options: options}
}

// JSONReader reads JSON data and converts it to a Dataset
type JSONReader struct {
	reader  io.Reader
	options JSONOptions
}

// NewJSONReader creates a new JSON reader with the specified options
func NewJSONReader(reader io.Reader, options JSONOptions) *JSONReader {
	return &JSONReader{reader: reader, options: options}
}

// JSONWriter writes Datasets to JSON format
type JSONWriter struct {
	writer  io.Writer
	options JSONOptions
}

// NewJSONWriter creates a new JSON writer with the specified options
func NewJSONWriter(writer io.Writer, options JSONOptions) *JSONWriter {
	return &JSONWriter{writer: writer, options: options}
}

// XMLReader reads XML-like data and converts it to a Dataset
type XMLReader struct {
	reader  io.Reader
	options XMLOptions
}

// NewXMLReader creates a new XML reader with the specified options
func NewXMLReader(reader io.Reader, options XMLOptions) *XMLReader {
	return &XMLReader{reader: reader, options: options}
}

// XMLWriter writes Datasets to XML-like format
type XMLWriter struct {
	writer  io.Writer
	options XMLOptions
}

// NewXMLWriter creates a new XML writer with the specified options
func NewXMLWriter(writer io.Writer, options XMLOptions) *XMLWriter {
	return &XMLWriter{writer: writer, options: options}
}

// YAMLReader reads YAML-like data and converts it to a Dataset
type YAMLReader struct {
	reader  io.Reader
	options YAMLOptions
}

// NewYAMLReader creates a new YAML reader with the specified options
func NewYAMLReader(reader io.Reader, options YAMLOptions) *YAMLReader {
	return &YAMLReader{reader: reader, options: options}
}

// YAMLWriter writes Datasets to YAML-like format
type YAMLWriter struct {
	writer  io.Writer
	options YAMLOptions
}

// NewYAMLWriter creates a new YAML writer with the specified options
func NewYAMLWriter(writer io.Writer, options YAMLOptions) *YAMLWriter {
	return &YAMLWriter{writer: writer, options: options}
}
