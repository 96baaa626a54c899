// Package sorting reorders Datasets under single- or multi-key comparators.
//
// Sorting is stable and total. Null and absent values sort after every
// present value regardless of direction. Values of different kinds in one
// field are placed by a fixed precedence: bool, number, text, list, map.
// A list sorts by its length and a map by its key count.
package sorting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
)

// Key is one sort criterion.
type Key struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// String renders the key in the form accepted by ParseKey.
func (k Key) String() string {
	if k.Descending {
		return "-" + k.Field
	}
	return k.Field
}

// ParseKey parses "age", "-age", "+age", "age:desc" or "age:asc".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	var k Key
	switch {
	case strings.HasPrefix(s, "-"):
		k = Key{Field: s[1:], Descending: true}
	case strings.HasPrefix(s, "+"):
		k = Key{Field: s[1:]}
	default:
		field, dir, found := strings.Cut(s, ":")
		k = Key{Field: field}
		if found {
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "desc", "descending":
				k.Descending = true
			case "asc", "ascending":
			default:
				return Key{}, errors.NewInvalidArgumentError("ParseKey", field, "unknown sort direction "+dir)
			}
		}
	}
	k.Field = strings.TrimSpace(k.Field)
	if err := validation.ValidateFieldName(k.Field, "ParseKey"); err != nil {
		return Key{}, err
	}
	return k, nil
}

// ParseKeys parses a comma-separated list of keys, most significant first.
func ParseKeys(s string) ([]Key, error) {
	var keys []Key
	for _, part := range strings.Split(s, ",") {
		k, err := ParseKey(part)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Result is the outcome of Sort. When Err is set, Dataset holds the input
// order unchanged and Applied is false.
type Result struct {
	Dataset dataset.Dataset
	Applied bool
	Err     error
}

// Sort orders a copy of d by keys, most significant first. It never panics
// and never returns a partially sorted dataset: any failure is reported in
// Result.Err alongside an unchanged copy of the input.
func Sort(d dataset.Dataset, keys ...Key) (res Result) {
	out := d.Clone()

	if len(keys) == 0 {
		return Result{Dataset: out, Err: errors.NewInvalidArgumentError("Sort", "", "at least one sort key is required")}
	}
	for _, k := range keys {
		if err := validation.ValidateFieldName(k.Field, "Sort"); err != nil {
			return Result{Dataset: out, Err: err}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Dataset: d.Clone(),
				Err:     errors.NewInternalError("Sort", fmt.Errorf("panic during sort: %v", r)),
			}
		}
	}()

	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			if c := compareField(out[i], out[j], k); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return Result{Dataset: out, Applied: true}
}

// compareField orders two records by one key. Missing values are last in
// both directions.
func compareField(a, b dataset.Record, k Key) int {
	va, okA := a[k.Field]
	vb, okB := b[k.Field]
	missingA := !okA || va.IsNull()
	missingB := !okB || vb.IsNull()
	switch {
	case missingA && missingB:
		return 0
	case missingA:
		return 1
	case missingB:
		return -1
	}

	c := Compare(va, vb)
	if k.Descending {
		return -c
	}
	return c
}

// Compare orders two non-null values: first by kind precedence, then
// natively within a kind. NaN sorts after every other number.
func Compare(a, b value.Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankBool:
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankNumber:
		x, _ := a.Number()
		y, _ := b.Number()
		return compareFloat(x, y)
	case rankText:
		x, _ := a.AsText()
		y, _ := b.AsText()
		return strings.Compare(x, y)
	default:
		return a.Len() - b.Len()
	}
}

const (
	rankBool = iota
	rankNumber
	rankText
	rankList
	rankMap
	rankNull
)

func rank(v value.Value) int {
	switch v.Kind() {
	case value.KindBool:
		return rankBool
	case value.KindInt, value.KindFloat:
		return rankNumber
	case value.KindText:
		return rankText
	case value.KindList:
		return rankList
	case value.KindMap:
		return rankMap
	}
	return rankNull
}

func compareFloat(x, y float64) int {
	nx, ny := math.IsNaN(x), math.IsNaN(y)
	switch {
	case nx && ny:
		return 0
	case nx:
		return 1
	case ny:
		return -1
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
