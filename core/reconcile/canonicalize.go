package reconcile

import (
	"errors"
)

// Canonicalize converts one raw warehouse row into a canonical record.
// It is pure: the row is not modified and nothing is logged.
// Any failure is returned as a *MappingError naming the offending column.
func (m *Mapping) Canonicalize(row RawRow) (Record, error) {
	rec := Record{Platform: m.Platform, LimsQC: QCUnknown}

	for _, fm := range m.Fields {
		v := row[fm.Raw]
		if fm.Transform != nil {
			out, err := fm.Transform(v)
			if err != nil {
				return Record{}, m.Invalid(fm.Raw, err.Error())
			}
			v = out
		}
		if v == nil && fm.Required {
			return Record{}, m.Missing(fm.Raw)
		}
		if err := rec.Set(fm.Field, v); err != nil {
			return Record{}, m.Invalid(fm.Raw, err.Error())
		}
	}

	if m.NameRoot == nil {
		return Record{}, m.Invalid("name_root", "no name root rule")
	}
	nameRoot, err := m.NameRoot(row)
	if err != nil {
		var me *MappingError
		if errors.As(err, &me) {
			return Record{}, me
		}
		return Record{}, m.Invalid("name_root", err.Error())
	}
	rec.NameRoot = nameRoot

	if rec.RunComplete.IsZero() {
		return Record{}, m.Missing(string(FieldRunComplete))
	}
	if rec.TaxonID == 0 {
		return Record{}, m.Missing(string(FieldTaxonID))
	}
	return rec, nil
}

// DropClass is the fixed category of a drop. Reasons may quote raw values;
// classes never do.
type DropClass string

const (
	DropIncomplete DropClass = "incomplete"
	DropMissing    DropClass = "missing"
	DropInvalid    DropClass = "invalid"
)

// Drop is a raw row rejected before identity resolution.
type Drop struct {
	Seq    int       `json:"seq" yaml:"seq"`
	Class  DropClass `json:"class" yaml:"class"`
	Reason string    `json:"reason" yaml:"reason"`
	Field  string    `json:"field,omitempty" yaml:"field,omitempty"`
}

// CanonicalizeAll filters rows through the completeness predicate and the
// mapping. Rows are numbered by their position in the input, starting at 0.
func CanonicalizeAll(a Adapter, rows []RawRow) ([]Record, []Drop) {
	m := a.Mapping()
	records := make([]Record, 0, len(rows))
	var drops []Drop

	for i, row := range rows {
		if reason, ok := a.Complete(row); !ok {
			drops = append(drops, Drop{Seq: i, Class: DropIncomplete, Reason: reason})
			continue
		}
		rec, err := m.Canonicalize(row)
		if err != nil {
			d := Drop{Seq: i, Class: DropInvalid, Reason: err.Error()}
			var me *MappingError
			if errors.As(err, &me) {
				d.Field = me.Field
				d.Reason = me.Reason
				if me.Class != "" {
					d.Class = me.Class
				}
			}
			drops = append(drops, d)
			continue
		}
		rec.Seq = i
		records = append(records, rec)
	}
	return records, drops
}
