// Package render formats Datasets and analyzer reports as aligned text for
// terminals.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/paveg/datafilter/internal/analyzer"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/value"
)

// DefaultMaxCellWidth is the widest a table cell is rendered before it is
// truncated.
const DefaultMaxCellWidth = 40

// TableOptions controls Table output.
type TableOptions struct {
	MaxRows      int // rows shown; 0 shows every row
	MaxCellWidth int // runes per cell; 0 disables truncation
}

// DefaultTableOptions returns the options used by the CLI.
func DefaultTableOptions() TableOptions {
	return TableOptions{MaxRows: 50, MaxCellWidth: DefaultMaxCellWidth}
}

// Table writes d as a table: a header of field names, a row of field type
// signatures, then one row per record. Absent fields render empty and Null
// renders as "null".
func Table(w io.Writer, d dataset.Dataset, opts TableOptions) error {
	if len(d) == 0 {
		_, err := fmt.Fprintln(w, "(no records)")
		return err
	}

	fields := d.Fields()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	writeRow(tw, fields)
	sigs := make([]string, len(fields))
	for i, f := range fields {
		sigs[i] = "<" + dataset.Signature(d, f).String() + ">"
	}
	writeRow(tw, sigs)

	shown := d
	if opts.MaxRows > 0 && len(d) > opts.MaxRows {
		shown = d[:opts.MaxRows]
	}
	cells := make([]string, len(fields))
	for _, r := range shown {
		for i, f := range fields {
			v, ok := r[f]
			if !ok {
				cells[i] = ""
				continue
			}
			cells[i] = truncate(Cell(v), opts.MaxCellWidth)
		}
		writeRow(tw, cells)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "(%d of %d records)\n", len(shown), len(d))
	return err
}

// Cell renders one value for display. Text is shown raw, everything else in
// literal form.
func Cell(v value.Value) string {
	if s, ok := v.AsText(); ok {
		return strings.NewReplacer("\n", `\n`, "\t", `\t`).Replace(s)
	}
	return value.EncodeLiteral(v)
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// Report writes one block per field of report, in field order.
func Report(w io.Writer, report analyzer.Report) error {
	if len(report) == 0 {
		_, err := fmt.Fprintln(w, "(no fields)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range report.Fields() {
		fr := report[f]
		fmt.Fprintf(tw, "%s\tnon-null: %d\tnull: %d\tkinds: %s\n",
			f, fr.NonNullCount, fr.NullCount, strings.Join(fr.Kinds(), ", "))
		if n := fr.Number; n != nil {
			fmt.Fprintf(tw, "  number\tcount: %d\tmin: %g\tmax: %g\tmean: %g\n", n.Count, n.Min, n.Max, n.Mean)
		}
		if b := fr.Bool; b != nil {
			fmt.Fprintf(tw, "  bool\tcount: %d\ttrue: %d (%.1f%%)\tfalse: %d (%.1f%%)\n",
				b.Count, b.TrueCount, b.TruePercentage, b.FalseCount, b.FalsePercentage)
		}
		if t := fr.Text; t != nil {
			samples := make([]string, len(t.Samples))
			for i, s := range t.Samples {
				samples[i] = value.Quote(s)
			}
			fmt.Fprintf(tw, "  text\tcount: %d\tsamples: %s\n", t.Count, strings.Join(samples, ", "))
		}
		if l := fr.List; l != nil {
			writeSizes(tw, "list", l)
		}
		if m := fr.Map; m != nil {
			writeSizes(tw, "map", m)
		}
	}
	return tw.Flush()
}

func writeSizes(w io.Writer, kind string, s *analyzer.SizeStats) {
	fmt.Fprintf(w, "  %s\tcount: %d\tsize min: %d\tsize max: %d\tsize mean: %g\n",
		kind, s.Count, s.SizeMin, s.SizeMax, s.SizeMean)
}
