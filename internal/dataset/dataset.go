// Package dataset provides the loosely-schemed record collection shared by
// the codecs, analyzer, filter, sort and history packages.
//
// Records are treated as copy-on-write: transforms build new Records instead
// of mutating existing ones, which keeps history snapshots independent.
package dataset

import (
	"sort"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/datafilter/internal/value"
)

// Record maps field names to values. Fields need not be present in every
// record of a Dataset.
type Record map[string]value.Value

// Get returns the value of field and whether the field is present.
func (r Record) Get(field string) (value.Value, bool) {
	v, ok := r[field]
	return v, ok
}

// Has reports whether field is present and not Null.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && !v.IsNull()
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v.Clone()
	}
	return cp
}

// With returns a copy of the record with field set to v.
func (r Record) With(field string, v value.Value) Record {
	cp := make(Record, len(r)+1)
	for k, e := range r {
		cp[k] = e
	}
	cp[field] = v
	return cp
}

// Equal reports whether both records hold the same fields with equal values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// FromNative builds a record from a decoded map.
func FromNative(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = value.Infer(v)
	}
	return r
}

// ToNative converts the record to a plain map.
func (r Record) ToNative() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = value.ToNative(v)
	}
	return out
}

// Dataset is an ordered sequence of records.
type Dataset []Record

// Len returns the number of records.
func (d Dataset) Len() int { return len(d) }

// Fields returns the union of field names across all records, sorted.
func (d Dataset) Fields() []string {
	seen := make(map[string]struct{})
	for _, r := range d {
		for f := range r {
			seen[f] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a deep copy of the dataset. A nil dataset clones to an empty one.
func (d Dataset) Clone() Dataset {
	cp := make(Dataset, len(d))
	for i, r := range d {
		cp[i] = r.Clone()
	}
	return cp
}

// Equal reports record-by-record structural equality.
func (d Dataset) Equal(other Dataset) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if !d[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Head returns at most n leading records without copying them.
func (d Dataset) Head(n int) Dataset {
	if n < 0 || n >= len(d) {
		return d
	}
	return d[:n]
}

// Fingerprint hashes the dataset contents. Equal datasets share a fingerprint;
// record order and value tags are significant.
func (d Dataset) Fingerprint() uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 256)
	for _, r := range d {
		for _, f := range r.Fields() {
			buf = buf[:0]
			buf = append(buf, f...)
			buf = append(buf, 0)
			buf = append(buf, byte(r[f].Kind()))
			buf = value.AppendLiteral(buf, r[f])
			buf = append(buf, 0)
			_, _ = h.Write(buf)
		}
		_, _ = h.Write([]byte{0xff})
	}
	return h.Sum64()
}

// ToNative converts the dataset to a slice of plain maps.
func (d Dataset) ToNative() []map[string]any {
	out := make([]map[string]any, len(d))
	for i, r := range d {
		out[i] = r.ToNative()
	}
	return out
}
