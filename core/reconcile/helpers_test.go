package reconcile

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"gorm.io/gorm"
)

// fakeStore is an in-memory Store that records every call.
type fakeStore struct {
	mu      sync.Mutex
	data    map[Key]Record
	creates []Key
	updates []Patch
	lookups int

	// failCreate / failUpdate return a permanent error for the given keys.
	failCreate map[Key]bool
	failUpdate map[Key]bool
	// transientLeft fails this many calls with a transient error first.
	transientLeft int
	lookupErr     error
}

func newFakeStore(recs ...Record) *fakeStore {
	s := &fakeStore{
		data:       make(map[Key]Record),
		failCreate: make(map[Key]bool),
		failUpdate: make(map[Key]bool),
	}
	for _, r := range recs {
		s.data[r.Key()] = r
	}
	return s
}

func (s *fakeStore) transient() error {
	if s.transientLeft > 0 {
		s.transientLeft--
		return Transient(errors.New("service unavailable"))
	}
	return nil
}

func (s *fakeStore) Lookup(_ context.Context, keys []Key) (map[Key]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if err := s.transient(); err != nil {
		return nil, err
	}
	out := make(map[Key]Record)
	for _, k := range keys {
		if r, ok := s.data[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transient(); err != nil {
		return err
	}
	if s.failCreate[rec.Key()] {
		return fmt.Errorf("rejected %s", rec.Key())
	}
	s.creates = append(s.creates, rec.Key())
	if _, ok := s.data[rec.Key()]; !ok {
		rec.Seq = 0
		s.data[rec.Key()] = rec
	}
	return nil
}

func (s *fakeStore) Update(_ context.Context, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transient(); err != nil {
		return err
	}
	if s.failUpdate[p.Key] {
		return fmt.Errorf("rejected %s", p.Key)
	}
	rec, ok := s.data[p.Key]
	if !ok {
		return fmt.Errorf("no record %s", p.Key)
	}
	p.Apply(&rec)
	s.data[p.Key] = rec
	s.updates = append(s.updates, p)
	return nil
}

// batchStore adds BatchWriter on top of fakeStore. A batch containing a
// failing key fails as a whole.
type batchStore struct {
	*fakeStore
	createBatches [][]Key
	updateBatches [][]Key
}

func (s *batchStore) CreateBatch(ctx context.Context, recs []Record) error {
	keys := make([]Key, len(recs))
	for i, r := range recs {
		keys[i] = r.Key()
		if s.failCreate[r.Key()] {
			return fmt.Errorf("batch rejected by %s", r.Key())
		}
	}
	for _, r := range recs {
		if err := s.Create(ctx, r); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.createBatches = append(s.createBatches, keys)
	s.mu.Unlock()
	return nil
}

func (s *batchStore) UpdateBatch(ctx context.Context, patches []Patch) error {
	keys := make([]Key, len(patches))
	for i, p := range patches {
		keys[i] = p.Key
		if s.failUpdate[p.Key] {
			return fmt.Errorf("batch rejected by %s", p.Key)
		}
	}
	for _, p := range patches {
		if err := s.Update(ctx, p); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.updateBatches = append(s.updateBatches, keys)
	s.mu.Unlock()
	return nil
}

// sliceAdapter serves fixed rows for one platform.
type sliceAdapter struct {
	platform   Platform
	rows       []RawRow
	extractErr error
}

func (a *sliceAdapter) Platform() Platform { return a.platform }

func (a *sliceAdapter) Extract(_ context.Context, _ *gorm.DB, _ []string) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		if a.extractErr != nil {
			yield(nil, &ExtractionError{Platform: a.platform, Err: a.extractErr})
			return
		}
		for _, r := range a.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (a *sliceAdapter) Mapping() *Mapping { return testMapping(a.platform) }

func (a *sliceAdapter) Complete(row RawRow) (string, bool) {
	if row["run_complete"] == nil {
		return "run not complete", false
	}
	return "", true
}

// testMapping is a minimal mapping keyed directly by name_root.
func testMapping(p Platform) *Mapping {
	m := &Mapping{
		Platform: p,
		Fields: []FieldMap{
			{Raw: "study_id", Field: FieldStudyID, Transform: TString},
			{Raw: "sample_name", Field: FieldSampleName, Transform: TString},
			{Raw: "taxon_id", Field: FieldTaxonID, Transform: TInt64, Required: true},
			{Raw: "run_id", Field: FieldRunID, Transform: TString},
			{Raw: "qc", Field: FieldLimsQC, Transform: TQC},
			{Raw: "qc_date", Field: FieldQCDate, Transform: TTime},
			{Raw: "library_id", Field: FieldLibraryID, Transform: TString},
			{Raw: "run_complete", Field: FieldRunComplete, Transform: TTime, Required: true},
		},
	}
	m.NameRoot = func(row RawRow) (string, error) {
		s, ok := RawString(row, "name_root")
		if !ok {
			return "", m.Missing("name_root")
		}
		return s, nil
	}
	return m
}

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
	t2 = t0.Add(48 * time.Hour)
)

func ptr[T any](v T) *T { return &v }

// record builds a complete Illumina record for tests.
func record(nameRoot string, qc QC, qcDate *time.Time) Record {
	return Record{
		Platform:    PlatformShortRead,
		StudyID:     "5901",
		SampleName:  "DTOL12345",
		TaxonID:     9606,
		RunID:       "36691",
		NameRoot:    nameRoot,
		LimsQC:      qc,
		QCDate:      qcDate,
		RunComplete: t0,
	}
}

// row builds a raw row matching testMapping.
func row(nameRoot string, qc any, qcDate any) RawRow {
	return RawRow{
		"name_root":    nameRoot,
		"study_id":     "5901",
		"sample_name":  "DTOL12345",
		"taxon_id":     int64(9606),
		"run_id":       "36691",
		"qc":           qc,
		"qc_date":      qcDate,
		"run_complete": t0,
	}
}
