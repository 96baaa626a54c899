// Package analyzer computes per-field type distribution and summary
// statistics over a Dataset.
//
// Reports are bucketed by value kind: a field holding numbers in some
// records and text in others gets both a number and a text report. Int and
// Float share the number bucket. Null and absent values only count toward
// NullCount.
package analyzer

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"
	arrowmath "github.com/apache/arrow-go/v18/arrow/math"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/parallel"
	"github.com/paveg/datafilter/internal/value"
)

// DefaultSampleSize is the number of distinct text samples kept per field.
const DefaultSampleSize = 3

// Statistic names accepted by Stat.
const (
	StatMin  = "min"
	StatMax  = "max"
	StatMean = "mean"
)

// NumberStats summarises Int and Float values.
type NumberStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// BoolStats summarises Bool values. Percentages are in the range 0-100.
type BoolStats struct {
	Count           int     `json:"count"`
	TrueCount       int     `json:"true_count"`
	FalseCount      int     `json:"false_count"`
	TruePercentage  float64 `json:"true_percentage"`
	FalsePercentage float64 `json:"false_percentage"`
}

// TextStats summarises Text values with distinct samples in first-seen order.
type TextStats struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

// SizeStats summarises the element or key counts of List and Map values.
type SizeStats struct {
	Count    int     `json:"count"`
	SizeMin  int     `json:"size_min"`
	SizeMax  int     `json:"size_max"`
	SizeMean float64 `json:"size_mean"`
}

// FieldReport holds the statistics of one field. A bucket is nil when the
// field never held a value of that kind.
type FieldReport struct {
	Field        string       `json:"field"`
	NonNullCount int          `json:"non_null_count"`
	NullCount    int          `json:"null_count"`
	Number       *NumberStats `json:"number,omitempty"`
	Bool         *BoolStats   `json:"bool,omitempty"`
	Text         *TextStats   `json:"text,omitempty"`
	List         *SizeStats   `json:"list,omitempty"`
	Map          *SizeStats   `json:"map,omitempty"`
}

// Kinds returns the bucket names present in the report, sorted.
func (r *FieldReport) Kinds() []string {
	var kinds []string
	if r.Bool != nil {
		kinds = append(kinds, value.KindBool.String())
	}
	if r.List != nil {
		kinds = append(kinds, value.KindList.String())
	}
	if r.Map != nil {
		kinds = append(kinds, value.KindMap.String())
	}
	if r.Number != nil {
		kinds = append(kinds, "number")
	}
	if r.Text != nil {
		kinds = append(kinds, value.KindText.String())
	}
	return kinds
}

// Report maps field names to their reports.
type Report map[string]*FieldReport

// Fields returns the reported field names, sorted.
func (r Report) Fields() []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAllocator sets the allocator used for numeric columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(a *Analyzer) { a.mem = mem }
}

// WithSampleSize sets how many distinct text samples are kept per field.
func WithSampleSize(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.sampleSize = n
		}
	}
}

// WithWorkerPool sets the pool fields are analysed on. Datasets whose
// rows times fields fall below the pool threshold are analysed inline.
func WithWorkerPool(pool *parallel.WorkerPool) Option {
	return func(a *Analyzer) {
		if pool != nil {
			a.pool = pool
		}
	}
}

// Analyzer computes Reports. It holds no state between calls.
type Analyzer struct {
	mem        memory.Allocator
	sampleSize int
	pool       *parallel.WorkerPool
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		mem:        memory.NewGoAllocator(),
		sampleSize: DefaultSampleSize,
		pool:       parallel.NewWorkerPool(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze reports on every field of d using default options.
func Analyze(d dataset.Dataset) Report {
	return New().Analyze(d)
}

// Analyze reports on every field in the union of d. An empty dataset yields
// an empty report.
func (a *Analyzer) Analyze(d dataset.Dataset) Report {
	fields := d.Fields()
	// Fields are independent; the background context never cancels.
	reports, _ := parallel.Map(context.Background(), a.pool, fields, len(d)*len(fields),
		func(_ int, f string) *FieldReport { return a.analyzeField(d, f) })

	report := make(Report, len(fields))
	for i, f := range fields {
		report[f] = reports[i]
	}
	return report
}

// AnalyzeField reports on a single field.
func (a *Analyzer) AnalyzeField(d dataset.Dataset, field string) *FieldReport {
	return a.analyzeField(d, field)
}

func (a *Analyzer) analyzeField(d dataset.Dataset, field string) *FieldReport {
	fr := &FieldReport{Field: field}

	numbers := array.NewFloat64Builder(a.mem)
	defer numbers.Release()
	listSizes := array.NewInt64Builder(a.mem)
	defer listSizes.Release()
	mapSizes := array.NewInt64Builder(a.mem)
	defer mapSizes.Release()
	var (
		bools *BoolStats
		text  *TextStats
		seen  map[string]struct{}
	)

	for _, r := range d {
		v, ok := r[field]
		if !ok || v.IsNull() {
			fr.NullCount++
			continue
		}
		fr.NonNullCount++

		if v.Kind().IsNumber() {
			n, _ := v.Number()
			numbers.Append(n)
			continue
		}
		switch v.Kind() {
		case value.KindBool:
			if bools == nil {
				bools = &BoolStats{}
			}
			bools.Count++
			if b, _ := v.AsBool(); b {
				bools.TrueCount++
			} else {
				bools.FalseCount++
			}
		case value.KindText:
			if text == nil {
				text = &TextStats{Samples: []string{}}
				seen = make(map[string]struct{})
			}
			text.Count++
			s, _ := v.AsText()
			if _, dup := seen[s]; !dup && len(text.Samples) < a.sampleSize {
				seen[s] = struct{}{}
				text.Samples = append(text.Samples, s)
			}
		case value.KindList:
			listSizes.Append(int64(v.Len()))
		case value.KindMap:
			mapSizes.Append(int64(v.Len()))
		}
	}

	if numbers.Len() > 0 {
		arr := numbers.NewFloat64Array()
		fr.Number = numberStats(arr)
		arr.Release()
	}
	if bools != nil {
		bools.TruePercentage = percentage(bools.TrueCount, bools.Count)
		bools.FalsePercentage = percentage(bools.FalseCount, bools.Count)
		fr.Bool = bools
	}
	fr.Text = text
	fr.List = sizeStats(listSizes)
	fr.Map = sizeStats(mapSizes)
	return fr
}

// numberStats sums through the arrow/math kernels, which pick a SIMD
// implementation when the CPU has one.
func numberStats(arr *array.Float64) *NumberStats {
	lo, hi := extremes(arr.Float64Values())
	return &NumberStats{
		Count: arr.Len(),
		Min:   lo,
		Max:   hi,
		Mean:  arrowmath.Float64.Sum(arr) / float64(arr.Len()),
	}
}

func sizeStats(sizes *array.Int64Builder) *SizeStats {
	if sizes.Len() == 0 {
		return nil
	}
	arr := sizes.NewInt64Array()
	defer arr.Release()
	lo, hi := extremes(arr.Int64Values())
	return &SizeStats{
		Count:    arr.Len(),
		SizeMin:  int(lo),
		SizeMax:  int(hi),
		SizeMean: float64(arrowmath.Int64.Sum(arr)) / float64(arr.Len()),
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
