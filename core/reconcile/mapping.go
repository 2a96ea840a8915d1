package reconcile

import (
	"fmt"
	"strings"
	"time"

	"mlwh-sync/core/utils"
)

// Transform converts a scanned warehouse value into the value stored on a
// canonical field. A nil result means the field is null.
type Transform func(v any) (any, error)

// FieldMap maps one warehouse column onto one canonical field.
type FieldMap struct {
	// Raw is the column alias in the extracted row.
	Raw string
	// Field is the canonical field the value lands on.
	Field Field
	// Transform converts the raw value. Nil passes the value through.
	Transform Transform
	// Required drops the row when the transformed value is null.
	Required bool
}

// Mapping is the declarative description of how one platform's rows become
// canonical records.
type Mapping struct {
	Platform Platform
	Fields   []FieldMap
	// NameRoot builds the identity component of the key from the raw row.
	// It returns a *MappingError when a required component is missing.
	NameRoot func(row RawRow) (string, error)
}

// Missing builds the MappingError used when a required column is null.
func (m *Mapping) Missing(column string) *MappingError {
	return &MappingError{Platform: m.Platform, Field: column, Class: DropMissing, Reason: "required value missing"}
}

// Invalid builds a MappingError for a column with an unusable value.
func (m *Mapping) Invalid(column, reason string) *MappingError {
	return &MappingError{Platform: m.Platform, Field: column, Class: DropInvalid, Reason: reason}
}

// Chain applies transforms left to right, stopping at the first null.
func Chain(ts ...Transform) Transform {
	return func(v any) (any, error) {
		var err error
		for _, t := range ts {
			if v == nil {
				return nil, nil
			}
			if v, err = t(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// TString renders a value as a trimmed string. Empty strings become null.
func TString(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, err := utils.ToString(v)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return s, nil
}

// TInt64 converts numeric values and numeric strings to int64. Blank strings
// become null.
func TInt64(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte, string:
		if s, _ := TString(x); s == nil {
			return nil, nil
		}
	}
	n, err := utils.ToInt64(v)
	if err != nil {
		return nil, err
	}
	return n, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TTime converts timestamps to UTC with second precision. Zero times become
// null.
func TTime(v any) (any, error) {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = x
	case []byte, string:
		s, _ := TString(x)
		if s == nil {
			return nil, nil
		}
		parsed, err := parseTime(s.(string))
		if err != nil {
			return nil, err
		}
		t = parsed
	default:
		return nil, fmt.Errorf("cannot convert %T to time", v)
	}
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC().Truncate(time.Second), nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unrecognised layout", s)
}

// TQC maps the warehouse's tri-state QC value onto QC. Absent is unknown,
// 0 is fail and 1 is pass; the strings "pass" and "fail" are accepted too.
func TQC(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return QCUnknown, nil
	case bool:
		if x {
			return QCPass, nil
		}
		return QCFail, nil
	case int64, int, int32, float64:
		n, err := TInt64(x)
		if err != nil {
			return nil, err
		}
		return qcFromInt(n.(int64))
	case []byte, string:
		s, _ := TString(x)
		if s == nil {
			return QCUnknown, nil
		}
		switch strings.ToLower(s.(string)) {
		case "1", "pass", "passed":
			return QCPass, nil
		case "0", "fail", "failed":
			return QCFail, nil
		case "unknown", "none", "null":
			return QCUnknown, nil
		}
		return nil, fmt.Errorf("unrecognised qc value %q", s)
	default:
		return nil, fmt.Errorf("cannot convert %T to qc", v)
	}
}

func qcFromInt(n int64) (any, error) {
	switch n {
	case 0:
		return QCFail, nil
	case 1:
		return QCPass, nil
	}
	return nil, fmt.Errorf("unrecognised qc value %d", n)
}

// TTrimSuffix strips a suffix from a string value.
func TTrimSuffix(suffix string) Transform {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		s = strings.TrimSuffix(s, suffix)
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
}

// TLookup replaces a string value that appears in table. Values not in the
// table pass through unchanged.
func TLookup(table map[string]string) Transform {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		if out, found := table[s]; found {
			return out, nil
		}
		return s, nil
	}
}

// RawString returns a column rendered as a non-empty string.
func RawString(row RawRow, column string) (string, bool) {
	v, err := TString(row[column])
	if err != nil || v == nil {
		return "", false
	}
	return v.(string), true
}
