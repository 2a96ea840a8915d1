package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(nameRoot string) Key {
	return Key{Platform: PlatformShortRead, NameRoot: nameRoot}
}

func TestApplier_CreatesAndUpdates(t *testing.T) {
	store := newFakeStore(record("b", QCPass, &t1))
	a := &Applier{Store: store, Retry: fastRetry}

	upd := record("b", QCFail, &t2)
	res := a.Apply(context.Background(),
		[]Record{record("a", QCPass, &t1)},
		[]Patch{{Key: keyOf("b"), Fields: []Field{FieldLimsQC, FieldQCDate}, Values: upd}},
	)

	assert.Equal(t, []Key{keyOf("a")}, res.Created)
	assert.Equal(t, []Key{keyOf("b")}, res.Updated)
	assert.Empty(t, res.Failed)

	stored := store.data[keyOf("b")]
	assert.Equal(t, QCFail, stored.LimsQC)
	assert.True(t, stored.QCDate.Equal(t2))
}

func TestApplier_IsolatesFailures(t *testing.T) {
	store := newFakeStore()
	store.failCreate[keyOf("bad")] = true
	a := &Applier{Store: store, Retry: fastRetry}

	res := a.Apply(context.Background(), []Record{
		record("good1", QCPass, &t1),
		record("bad", QCPass, &t1),
		record("good2", QCPass, &t1),
	}, nil)

	assert.Equal(t, []Key{keyOf("good1"), keyOf("good2")}, res.Created)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, keyOf("bad"), res.Failed[0].Key)
	assert.Equal(t, "create", res.Failed[0].Op)
	assert.Contains(t, res.Failed[0].Detail, "rejected")
}

func TestApplier_RetriesTransientWrites(t *testing.T) {
	store := newFakeStore()
	store.transientLeft = 2
	a := &Applier{Store: store, Retry: fastRetry}

	res := a.Apply(context.Background(), []Record{record("a", QCPass, &t1)}, nil)
	assert.Equal(t, []Key{keyOf("a")}, res.Created)
	assert.Empty(t, res.Failed)
}

func TestApplier_UsesBatchWriter(t *testing.T) {
	store := &batchStore{fakeStore: newFakeStore()}
	a := &Applier{Store: store, BatchSize: 2, Concurrency: 1, Retry: fastRetry}

	var recs []Record
	for i := 0; i < 5; i++ {
		recs = append(recs, record(fmt.Sprintf("r%d", i), QCPass, &t1))
	}
	res := a.Apply(context.Background(), recs, nil)

	assert.Len(t, res.Created, 5)
	assert.Len(t, store.createBatches, 3)
	assert.Len(t, store.createBatches[0], 2)
	assert.Len(t, store.createBatches[2], 1)
}

func TestApplier_BatchFailureFallsBackPerItem(t *testing.T) {
	store := &batchStore{fakeStore: newFakeStore(record("u1", QCPass, &t1), record("u2", QCPass, &t1))}
	store.failUpdate[keyOf("u2")] = true
	a := &Applier{Store: store, Retry: fastRetry}

	patch := func(k string) Patch {
		v := record(k, QCFail, &t2)
		return Patch{Key: keyOf(k), Fields: []Field{FieldLimsQC, FieldQCDate}, Values: v}
	}
	res := a.Apply(context.Background(), nil, []Patch{patch("u1"), patch("u2")})

	assert.Empty(t, store.updateBatches)
	assert.Equal(t, []Key{keyOf("u1")}, res.Updated)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, keyOf("u2"), res.Failed[0].Key)
	assert.Equal(t, "update", res.Failed[0].Op)
}

func TestApplier_IdempotentCreate(t *testing.T) {
	store := newFakeStore(record("a", QCPass, &t1))
	a := &Applier{Store: store, Retry: fastRetry}

	res := a.Apply(context.Background(), []Record{record("a", QCFail, &t2)}, nil)
	assert.Equal(t, []Key{keyOf("a")}, res.Created)
	assert.Equal(t, QCPass, store.data[keyOf("a")].LimsQC, "existing record is left alone")
}

func TestKeyLocks_SerializesPerKey(t *testing.T) {
	locks := NewKeyLocks()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(keyOf("same"), keyOf("other"))
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.Len())
}

func TestKeyLocks_DuplicateKeys(t *testing.T) {
	locks := NewKeyLocks()
	unlock := locks.Lock(keyOf("a"), keyOf("a"))
	assert.Equal(t, 1, locks.Len())
	unlock()
	assert.Equal(t, 0, locks.Len())
}
