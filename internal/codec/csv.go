package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/value"
)

const utf8BOM = "\ufeff"

// Read reads CSV data and returns a Dataset. The first row is the header.
// A row shorter than the header yields Null for its missing trailing cells.
func (r *CSVReader) Read() (dataset.Dataset, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return dataset.Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	d := dataset.Dataset{}
	for line := 2; ; line++ {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d has %d cells but the header has %d", line, len(row), len(header))
		}

		rec := make(dataset.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = value.DecodeCell(row[i])
			} else {
				rec[name] = value.Null()
			}
		}
		d = append(d, rec)
	}
	return d, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("header column %d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Write writes the Dataset to CSV format. The header is the sorted union of
// field names; absent fields are written as the Null literal.
func (w *CSVWriter) Write(d dataset.Dataset) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	fields := d.Fields()
	if err := csvWriter.Write(fields); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	row := make([]string, len(fields))
	for _, rec := range d {
		for j, f := range fields {
			v, ok := rec[f]
			if !ok {
				v = value.Null()
			}
			row[j] = value.EncodeLiteral(v)
		}
		if len(row) == 1 && row[0] == "" {
			// encoding/csv writes a lone empty field as a blank line, which
			// readers skip. Quote it so the record survives.
			csvWriter.Flush()
			if err := csvWriter.Error(); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
			if _, err := io.WriteString(w.writer, `""`+"\n"); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
			continue
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
