package reconcile

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	opCreate = "create"
	opUpdate = "update"
)

// ApplyResult lists the outcome of every write the applier attempted.
type ApplyResult struct {
	Created []Key        `json:"created" yaml:"created"`
	Updated []Key        `json:"updated" yaml:"updated"`
	Failed  []ApplyError `json:"failed" yaml:"failed"`
}

// Applier writes creates and updates to the target store in batches.
type Applier struct {
	Store Store
	// BatchSize is the number of items per write call.
	BatchSize int
	// Concurrency bounds the number of batches in flight.
	Concurrency int
	Retry       RetryPolicy
	// Locks serializes writes per key. It may be shared between appliers.
	Locks  *KeyLocks
	Logger *zap.Logger
}

type applyJob struct {
	creates []Record
	updates []Patch
}

func (j applyJob) keys() []Key {
	keys := make([]Key, 0, len(j.creates)+len(j.updates))
	for _, r := range j.creates {
		keys = append(keys, r.Key())
	}
	for _, p := range j.updates {
		keys = append(keys, p.Key)
	}
	return keys
}

// Apply sends creates and updates to the store. Failures are isolated to the
// item that failed and never abort the remaining writes.
func (a *Applier) Apply(ctx context.Context, creates []Record, updates []Patch) *ApplyResult {
	size := a.BatchSize
	if size <= 0 {
		size = 100
	}
	limit := a.Concurrency
	if limit <= 0 {
		limit = 4
	}
	locks := a.Locks
	if locks == nil {
		locks = NewKeyLocks()
	}

	var jobs []applyJob
	for start := 0; start < len(creates); start += size {
		jobs = append(jobs, applyJob{creates: creates[start:min(start+size, len(creates))]})
	}
	for start := 0; start < len(updates); start += size {
		jobs = append(jobs, applyJob{updates: updates[start:min(start+size, len(updates))]})
	}

	var (
		mu  sync.Mutex
		res = &ApplyResult{}
	)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, job := range jobs {
		g.Go(func() error {
			unlock := locks.Lock(job.keys()...)
			defer unlock()

			out := a.run(ctx, job)
			mu.Lock()
			res.Created = append(res.Created, out.Created...)
			res.Updated = append(res.Updated, out.Updated...)
			res.Failed = append(res.Failed, out.Failed...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sortKeys(res.Created)
	sortKeys(res.Updated)
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Key.Less(res.Failed[j].Key) })
	return res
}

func (a *Applier) run(ctx context.Context, job applyJob) *ApplyResult {
	out := &ApplyResult{}
	log := a.logger()

	if bw, ok := a.Store.(BatchWriter); ok {
		if len(job.creates) > 0 {
			err := a.Retry.Do(ctx, func(ctx context.Context) error { return bw.CreateBatch(ctx, job.creates) })
			if err == nil {
				for _, r := range job.creates {
					out.Created = append(out.Created, r.Key())
				}
				job.creates = nil
			} else {
				log.Warn("batch create failed, retrying per item", zap.Int("items", len(job.creates)), zap.Error(err))
			}
		}
		if len(job.updates) > 0 {
			err := a.Retry.Do(ctx, func(ctx context.Context) error { return bw.UpdateBatch(ctx, job.updates) })
			if err == nil {
				for _, p := range job.updates {
					out.Updated = append(out.Updated, p.Key)
				}
				job.updates = nil
			} else {
				log.Warn("batch update failed, retrying per item", zap.Int("items", len(job.updates)), zap.Error(err))
			}
		}
	}

	for _, rec := range job.creates {
		err := a.Retry.Do(ctx, func(ctx context.Context) error { return a.Store.Create(ctx, rec) })
		if err != nil {
			a.fail(out, rec.Key(), opCreate, err)
			continue
		}
		out.Created = append(out.Created, rec.Key())
	}
	for _, p := range job.updates {
		err := a.Retry.Do(ctx, func(ctx context.Context) error { return a.Store.Update(ctx, p) })
		if err != nil {
			a.fail(out, p.Key, opUpdate, err)
			continue
		}
		out.Updated = append(out.Updated, p.Key)
	}
	return out
}

func (a *Applier) fail(out *ApplyResult, key Key, op string, err error) {
	a.logger().Error("write failed",
		zap.String("platform", string(key.Platform)),
		zap.String("key", key.NameRoot),
		zap.String("op", op),
		zap.Error(err),
	)
	out.Failed = append(out.Failed, *newApplyError(key, op, err))
}

func (a *Applier) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
