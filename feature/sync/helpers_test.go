package sync

import (
	"context"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"mlwh-sync/core/config"
	"mlwh-sync/core/qcstore"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/target"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeAdapter serves fixed rows keyed directly by name_root.
type fakeAdapter struct {
	platform reconcile.Platform
	rows     []reconcile.RawRow
	// gate, when set, blocks extraction until closed.
	gate chan struct{}
	// calls counts extractions.
	calls *int32
}

func (a *fakeAdapter) Platform() reconcile.Platform { return a.platform }

func (a *fakeAdapter) Extract(_ context.Context, _ *gorm.DB, _ []string) iter.Seq2[reconcile.RawRow, error] {
	return func(yield func(reconcile.RawRow, error) bool) {
		if a.calls != nil {
			atomic.AddInt32(a.calls, 1)
		}
		if a.gate != nil {
			<-a.gate
		}
		for _, r := range a.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (a *fakeAdapter) Mapping() *reconcile.Mapping {
	m := &reconcile.Mapping{
		Platform: a.platform,
		Fields: []reconcile.FieldMap{
			{Raw: "study_id", Field: reconcile.FieldStudyID, Transform: reconcile.TString},
			{Raw: "sample_name", Field: reconcile.FieldSampleName, Transform: reconcile.TString},
			{Raw: "taxon_id", Field: reconcile.FieldTaxonID, Transform: reconcile.TInt64, Required: true},
			{Raw: "run_id", Field: reconcile.FieldRunID, Transform: reconcile.TString},
			{Raw: "qc", Field: reconcile.FieldLimsQC, Transform: reconcile.TQC},
			{Raw: "qc_date", Field: reconcile.FieldQCDate, Transform: reconcile.TTime},
			{Raw: "run_complete", Field: reconcile.FieldRunComplete, Transform: reconcile.TTime, Required: true},
		},
	}
	m.NameRoot = func(row reconcile.RawRow) (string, error) {
		s, ok := reconcile.RawString(row, "name_root")
		if !ok {
			return "", m.Missing("name_root")
		}
		return s, nil
	}
	return m
}

func (a *fakeAdapter) Complete(reconcile.RawRow) (string, bool) { return "", true }

func row(nameRoot string, qc any) reconcile.RawRow {
	return reconcile.RawRow{
		"name_root":    nameRoot,
		"study_id":     "5901",
		"sample_name":  "DTOL12345",
		"taxon_id":     int64(9606),
		"run_id":       "36691",
		"qc":           qc,
		"qc_date":      t0,
		"run_complete": t0,
	}
}

// newTestService wires a service over a memory store and fixed adapters.
func newTestService(t *testing.T, mem *qcstore.Memory, adapters ...*fakeAdapter) *Service {
	t.Helper()
	return NewService(Deps{
		Target:   &target.Target{Driver: target.DriverMemory, Store: mem},
		Defaults: config.SyncConfig{Retry: reconcile.RetryPolicy{MaxRetries: 1, Base: time.Millisecond, Max: time.Millisecond}},
		Adapters: func(names []string) ([]reconcile.Adapter, error) {
			var out []reconcile.Adapter
			for _, a := range adapters {
				if len(names) == 0 {
					out = append(out, a)
					continue
				}
				for _, n := range names {
					p, err := reconcile.ParsePlatform(n)
					if err != nil {
						return nil, err
					}
					if p == a.platform {
						out = append(out, a)
					}
				}
			}
			return out, nil
		},
		Logger: zap.NewNop(),
	})
}
