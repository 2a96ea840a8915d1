package reconcile

import (
	"context"
)

// Store is the target quality-tracking store, addressed only by Key.
//
// Create must be idempotent: creating a key that already exists is a no-op.
// Update writes only the fields named by the patch.
type Store interface {
	Lookup(ctx context.Context, keys []Key) (map[Key]Record, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, p Patch) error
}

// BatchWriter is implemented by stores that can write many items in one call.
// The applier discovers it by type assertion and falls back to single-item
// writes when a batch call fails.
type BatchWriter interface {
	CreateBatch(ctx context.Context, recs []Record) error
	UpdateBatch(ctx context.Context, patches []Patch) error
}

// Patch is a minimal field-level update for one stored record.
type Patch struct {
	Key    Key     `json:"key" yaml:"key"`
	Fields []Field `json:"fields" yaml:"fields"`
	// Values carries the new value of every field in Fields.
	Values Record `json:"-" yaml:"-"`
}

// Attributes renders the patch as store attribute names to values. The
// composite data_location expands into data_root and data_path. Null fields
// map to nil.
func (p Patch) Attributes() map[string]any {
	attrs := make(map[string]any, len(p.Fields)+1)
	for _, f := range p.Fields {
		if f == FieldDataLocation {
			attrs[string(FieldDataRoot)] = p.Values.Get(FieldDataRoot)
			attrs[string(FieldDataPath)] = p.Values.Get(FieldDataPath)
			continue
		}
		v := p.Values.Get(f)
		if q, ok := v.(QC); ok {
			v = string(q)
		}
		attrs[string(f)] = v
	}
	return attrs
}

// Apply copies the patched fields onto rec.
func (p Patch) Apply(rec *Record) {
	for _, f := range p.Fields {
		_ = rec.Set(f, p.Values.Get(f))
	}
}
