package dataset

import (
	"strings"

	"github.com/paveg/datafilter/internal/value"
)

// FieldTypeSignature describes the kinds observed for one field across a
// dataset. Base holds the top-level kinds and Elements the kinds seen inside
// list values. Both are in lexicographic order. Null and absent values
// contribute to neither.
type FieldTypeSignature struct {
	Field    string       `json:"field"`
	Base     []value.Kind `json:"base"`
	Elements []value.Kind `json:"elements,omitempty"`
}

// Signature aggregates the kinds of field across every record of d.
func Signature(d Dataset, field string) FieldTypeSignature {
	base := make(map[value.Kind]struct{})
	elements := make(map[value.Kind]struct{})
	for _, r := range d {
		v, ok := r[field]
		if !ok || v.IsNull() {
			continue
		}
		base[v.Kind()] = struct{}{}
		for _, k := range value.ElementKinds(v) {
			elements[k] = struct{}{}
		}
	}
	return FieldTypeSignature{
		Field:    field,
		Base:     sortedKinds(base),
		Elements: sortedKinds(elements),
	}
}

// Signatures returns the signature of every field in the dataset's union.
func Signatures(d Dataset) []FieldTypeSignature {
	fields := d.Fields()
	out := make([]FieldTypeSignature, len(fields))
	for i, f := range fields {
		out[i] = Signature(d, f)
	}
	return out
}

// String renders the signature as "int|list[int,text]", or "null" when no
// non-null value was observed.
func (s FieldTypeSignature) String() string {
	if len(s.Base) == 0 {
		return value.KindNull.String()
	}
	parts := make([]string, len(s.Base))
	for i, k := range s.Base {
		parts[i] = k.String()
		if k == value.KindList && len(s.Elements) > 0 {
			parts[i] += "[" + joinKinds(s.Elements, ",") + "]"
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether kind is among the base kinds.
func (s FieldTypeSignature) Has(kind value.Kind) bool {
	for _, k := range s.Base {
		if k == kind {
			return true
		}
	}
	return false
}

func sortedKinds(set map[value.Kind]struct{}) []value.Kind {
	if len(set) == 0 {
		return nil
	}
	kinds := make([]value.Kind, 0, len(set))
	for k := range set {
		kinds = append(kinds, k)
	}
	value.SortKinds(kinds)
	return kinds
}

func joinKinds(kinds []value.Kind, sep string) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, sep)
}
