package qcstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mlwh-sync/core/reconcile"
)

// Memory is an in-process target store. It is used for dry runs without a
// reachable store and by tests.
type Memory struct {
	mu   sync.RWMutex
	data map[reconcile.Key]reconcile.Record
}

// NewMemory returns a store seeded with recs.
func NewMemory(recs ...reconcile.Record) *Memory {
	m := &Memory{data: make(map[reconcile.Key]reconcile.Record, len(recs))}
	for _, r := range recs {
		r.Seq = 0
		m.data[r.Key()] = r
	}
	return m
}

// Lookup returns the records present for keys.
func (m *Memory) Lookup(_ context.Context, keys []reconcile.Key) (map[reconcile.Key]reconcile.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[reconcile.Key]reconcile.Record, len(keys))
	for _, k := range keys {
		if r, ok := m.data[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}

// Create stores rec unless its key is already present.
func (m *Memory) Create(_ context.Context, rec reconcile.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[rec.Key()]; !ok {
		rec.Seq = 0
		m.data[rec.Key()] = rec
	}
	return nil
}

// Update applies p to the stored record.
func (m *Memory) Update(_ context.Context, p reconcile.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[p.Key]
	if !ok {
		return fmt.Errorf("update %s: %w", p.Key, ErrNotFound)
	}
	p.Apply(&rec)
	m.data[p.Key] = rec
	return nil
}

// Records returns every stored record sorted by key.
func (m *Memory) Records() []reconcile.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]reconcile.Record, 0, len(m.data))
	for _, r := range m.data {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}
