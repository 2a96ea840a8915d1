package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Class is the diff classification of one resolved record.
type Class string

const (
	ClassNew       Class = "new"
	ClassUnchanged Class = "unchanged"
	ClassChanged   Class = "changed"
	ClassRegressed Class = "regressed"
)

// DiffResult is the classified outcome of one platform's diff stage.
type DiffResult struct {
	New       []Record             `json:"new" yaml:"new"`
	Unchanged []Key                `json:"unchanged" yaml:"unchanged"`
	Changed   []Patch              `json:"changed" yaml:"changed"`
	Regressed []RegressionConflict `json:"regressed" yaml:"regressed"`

	// regressedPatches holds the patch each regression would have applied,
	// indexed like Regressed.
	regressedPatches []Patch
}

// RegressedPatch returns the update a regression would apply if forced.
func (d *DiffResult) RegressedPatch(i int) Patch {
	return d.regressedPatches[i]
}

// Compare classifies incoming against its stored counterpart. stored is nil
// when the key is not in the target store. The returned fields are the
// tracked fields that differ, in TrackedFields order.
func Compare(incoming Record, stored *Record) (Class, []Field) {
	if stored == nil {
		return ClassNew, nil
	}

	var changed []Field
	qcDependent := false
	for _, f := range TrackedFields {
		in := incoming.Get(f)
		if f == FieldQCDate && in == nil {
			// A null incoming qc_date never clears a stored one.
			continue
		}
		if valuesEqual(in, stored.Get(f)) {
			continue
		}
		changed = append(changed, f)
		if QCDependent(f) {
			qcDependent = true
		}
	}

	if len(changed) == 0 {
		return ClassUnchanged, nil
	}
	if qcDependent && incoming.QCDate != nil && stored.QCDate != nil && incoming.QCDate.Before(*stored.QCDate) {
		return ClassRegressed, changed
	}
	return ClassChanged, changed
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Truncate(time.Second).Equal(tb.Truncate(time.Second))
	}
	return a == b
}

// Differ looks records up in the target store and classifies them.
type Differ struct {
	Store Store
	// BatchSize is the number of keys per lookup call.
	BatchSize int
	// Concurrency bounds the number of lookups in flight.
	Concurrency int
	Retry       RetryPolicy
	Logger      *zap.Logger
}

// Diff classifies records, which must already be deduplicated. A lookup
// failure aborts the whole stage.
func (d *Differ) Diff(ctx context.Context, records []Record) (*DiffResult, error) {
	stored, err := d.lookup(ctx, records)
	if err != nil {
		return nil, err
	}

	log := d.logger()
	res := &DiffResult{}
	for _, rec := range records {
		var prev *Record
		if s, ok := stored[rec.Key()]; ok {
			prev = &s
		}
		class, fields := Compare(rec, prev)
		switch class {
		case ClassNew:
			res.New = append(res.New, rec)
		case ClassUnchanged:
			res.Unchanged = append(res.Unchanged, rec.Key())
		case ClassChanged:
			res.Changed = append(res.Changed, Patch{Key: rec.Key(), Fields: fields, Values: rec})
		case ClassRegressed:
			conflict := RegressionConflict{
				Key:            rec.Key(),
				StoredQCDate:   *prev.QCDate,
				IncomingQCDate: *rec.QCDate,
				Fields:         fields,
			}
			log.Warn("QC regression",
				zap.String("platform", string(rec.Platform)),
				zap.String("key", rec.NameRoot),
				zap.Time("stored_qc_date", conflict.StoredQCDate),
				zap.Time("incoming_qc_date", conflict.IncomingQCDate),
			)
			res.Regressed = append(res.Regressed, conflict)
			res.regressedPatches = append(res.regressedPatches, Patch{Key: rec.Key(), Fields: fields, Values: rec})
		}
	}
	return res, nil
}

func (d *Differ) lookup(ctx context.Context, records []Record) (map[Key]Record, error) {
	keys := make([]Key, len(records))
	for i, rec := range records {
		keys[i] = rec.Key()
	}

	size := d.BatchSize
	if size <= 0 {
		size = 200
	}
	limit := d.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu     sync.Mutex
		stored = make(map[Key]Record, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, chunk := range chunkKeys(keys, size) {
		g.Go(func() error {
			var found map[Key]Record
			err := d.Retry.Do(gctx, func(ctx context.Context) error {
				var err error
				found, err = d.Store.Lookup(ctx, chunk)
				return err
			})
			if err != nil {
				return fmt.Errorf("lookup %d keys: %w", len(chunk), err)
			}
			mu.Lock()
			for k, v := range found {
				stored[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (d *Differ) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func chunkKeys(keys []Key, size int) [][]Key {
	var chunks [][]Key
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}
