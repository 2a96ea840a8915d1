package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options controls a sync run.
type Options struct {
	// Studies restricts extraction. Empty selects every study.
	Studies []string
	// DryRun classifies without writing.
	DryRun bool
	// ForceRegressed applies regressed records as updates. They are still
	// listed as regressions in the summary.
	ForceRegressed bool

	LookupBatchSize   int
	LookupConcurrency int
	BatchSize         int
	Concurrency       int
	Retry             RetryPolicy
}

// Observer receives each platform summary once the platform finishes.
type Observer interface {
	ObservePlatform(s *PlatformSummary, elapsed time.Duration)
}

// Pipeline runs Extract, Canonicalize, Resolve, Diff and Apply for a set of
// platforms against one warehouse and one target store.
type Pipeline struct {
	Warehouse *gorm.DB
	Store     Store
	Adapters  []Adapter
	Logger    *zap.Logger
	Observer  Observer
	// Locks is shared by every applier this pipeline starts.
	Locks *KeyLocks
}

// resolved is one platform's output from the pure stages.
type resolved struct {
	adapter Adapter
	summary *PlatformSummary
	records []Record
	started time.Time
	failed  bool
}

// Run executes one sync run. A failing platform never stops the others; its
// error is recorded in the summary. The returned error is non-nil only when
// the run could not start.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	if len(p.Adapters) == 0 {
		return nil, ErrNoAdapters
	}
	log := p.logger()
	locks := p.Locks
	if locks == nil {
		locks = NewKeyLocks()
	}

	summary := &RunSummary{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		DryRun:  opts.DryRun,
		Studies: opts.Studies,
	}
	log = log.With(zap.String("run_id", summary.RunID))

	// Extraction and the pure stages run concurrently per platform.
	stages := make([]*resolved, len(p.Adapters))
	var wg sync.WaitGroup
	for i, a := range p.Adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stages[i] = p.prepare(ctx, log, a, opts)
		}()
	}
	wg.Wait()

	// Diff and apply start only once every platform is resolved.
	for _, st := range stages {
		if st.failed {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.sync(ctx, log, st, opts, locks)
		}()
	}
	wg.Wait()

	for _, st := range stages {
		summary.Platforms = append(summary.Platforms, st.summary)
		if p.Observer != nil {
			p.Observer.ObservePlatform(st.summary, time.Since(st.started))
		}
	}
	summary.Finished = time.Now().UTC()

	totals := summary.Totals()
	log.Info("sync run finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("extracted", totals.Extracted),
		zap.Int("new", totals.New),
		zap.Int("changed", totals.Changed),
		zap.Int("unchanged", totals.Unchanged),
		zap.Int("regressed", totals.Regressed),
		zap.Int("created", totals.Created),
		zap.Int("updated", totals.Updated),
		zap.Int("failed", totals.Failed),
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)
	return summary, nil
}

// prepare extracts, canonicalizes and resolves one platform.
func (p *Pipeline) prepare(ctx context.Context, log *zap.Logger, a Adapter, opts Options) *resolved {
	platform := a.Platform()
	st := &resolved{
		adapter: a,
		summary: &PlatformSummary{Platform: platform},
		started: time.Now(),
	}
	log = log.With(zap.String("platform", string(platform)))

	rows, err := Collect(a.Extract(ctx, p.Warehouse, opts.Studies))
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		st.summary.abort(StageExtract, err)
		st.failed = true
		return st
	}
	st.summary.Extracted = len(rows)

	records, drops := CanonicalizeAll(a, rows)
	for _, d := range drops {
		log.Debug("row dropped", zap.Int("seq", d.Seq), zap.String("field", d.Field), zap.String("reason", d.Reason))
	}
	st.summary.addDrops(drops)

	records, collisions := Resolve(records)
	for _, c := range collisions {
		log.Warn("identity collision",
			zap.String("key", c.Key.NameRoot),
			zap.Int("kept_seq", c.Kept),
			zap.Int("dropped_seq", c.Dropped),
			zap.String("reason", c.Reason),
		)
	}
	st.summary.Deduplicated = len(collisions)
	st.summary.Collisions = collisions
	st.records = records
	return st
}

// sync diffs one resolved platform and applies its writes.
func (p *Pipeline) sync(ctx context.Context, log *zap.Logger, st *resolved, opts Options, locks *KeyLocks) {
	ps := st.summary
	log = log.With(zap.String("platform", string(ps.Platform)))

	differ := &Differ{
		Store:       p.Store,
		BatchSize:   opts.LookupBatchSize,
		Concurrency: opts.LookupConcurrency,
		Retry:       opts.Retry,
		Logger:      log,
	}
	diff, err := differ.Diff(ctx, st.records)
	if err != nil {
		log.Error("diff failed", zap.Error(err))
		ps.abort(StageDiff, err)
		return
	}
	ps.New = len(diff.New)
	ps.Unchanged = len(diff.Unchanged)
	ps.Changed = len(diff.Changed)
	ps.Regressed = len(diff.Regressed)
	ps.Regressions = diff.Regressed

	updates := diff.Changed
	if opts.ForceRegressed {
		for i := range diff.Regressed {
			ps.Regressions[i].Forced = true
			updates = append(updates, diff.RegressedPatch(i))
		}
	}

	if opts.DryRun {
		ps.Plan = diff
		return
	}

	applier := &Applier{
		Store:       p.Store,
		BatchSize:   opts.BatchSize,
		Concurrency: opts.Concurrency,
		Retry:       opts.Retry,
		Locks:       locks,
		Logger:      log,
	}
	res := applier.Apply(ctx, diff.New, updates)
	ps.Created = len(res.Created)
	ps.Updated = len(res.Updated)
	ps.Failed = len(res.Failed)
	ps.Failures = res.Failed
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
