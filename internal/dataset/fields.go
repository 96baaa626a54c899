package dataset

import (
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
)

// AddField returns a copy of d where every record lacking field gets def.
// Records that already hold the field keep their value.
func AddField(d Dataset, field string, def value.Value) (Dataset, error) {
	if err := validation.ValidateFieldName(field, "AddField"); err != nil {
		return nil, err
	}
	out := make(Dataset, len(d))
	for i, r := range d {
		if _, ok := r[field]; ok {
			out[i] = r.Clone()
			continue
		}
		out[i] = r.With(field, def.Clone())
	}
	return out, nil
}

// RemoveField returns a copy of d without field.
func RemoveField(d Dataset, field string) (Dataset, error) {
	if err := validation.ValidateFieldName(field, "RemoveField"); err != nil {
		return nil, err
	}
	out := make(Dataset, len(d))
	for i, r := range d {
		cp := r.Clone()
		delete(cp, field)
		out[i] = cp
	}
	return out, nil
}

// RenameField returns a copy of d with oldName moved to newName. A record
// that already holds newName has it overwritten by the renamed value.
func RenameField(d Dataset, oldName, newName string) (Dataset, error) {
	v := validation.NewCompoundValidator(
		validation.NewFieldNameValidator(oldName, "RenameField"),
		validation.NewFieldNameValidator(newName, "RenameField"),
	)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if oldName == newName {
		return nil, errors.NewInvalidArgumentError("RenameField", oldName, "new name equals old name")
	}
	out := make(Dataset, len(d))
	for i, r := range d {
		cp := r.Clone()
		if v, ok := cp[oldName]; ok {
			delete(cp, oldName)
			cp[newName] = v
		}
		out[i] = cp
	}
	return out, nil
}

// FieldPresence summarises how a field is populated across a dataset.
type FieldPresence struct {
	PresentInAll bool `json:"present_in_all"`
	PresentCount int  `json:"present_count"`
	NullCount    int  `json:"null_count"`
	TotalRows    int  `json:"total_rows"`
}

// Presence reports, for every field in the union, how many records carry it
// and how many of those hold Null.
func Presence(d Dataset) map[string]FieldPresence {
	out := make(map[string]FieldPresence)
	for _, f := range d.Fields() {
		p := FieldPresence{TotalRows: len(d)}
		for _, r := range d {
			v, ok := r[f]
			if !ok {
				continue
			}
			p.PresentCount++
			if v.IsNull() {
				p.NullCount++
			}
		}
		p.PresentInAll = p.PresentCount == len(d)
		out[f] = p
	}
	return out
}
