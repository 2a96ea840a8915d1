package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"mlwh-sync/core/config"
	"mlwh-sync/core/metrics"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/storage"
	"mlwh-sync/core/target"
	"mlwh-sync/feature/platforms"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrArchiveDisabled is returned by report queries when archiving is off.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// Request describes one run. Empty fields fall back to the configured
// defaults.
type Request struct {
	Platforms      []string `json:"platforms,omitempty"`
	Studies        []string `json:"studies,omitempty"`
	DryRun         bool     `json:"dry_run"`
	ForceRegressed bool     `json:"force_regressed"`
}

// key identifies requests that may share one run.
func (r Request) key() string {
	p := slices.Clone(r.Platforms)
	s := slices.Clone(r.Studies)
	slices.Sort(p)
	slices.Sort(s)
	return fmt.Sprintf("p=%s;s=%s;dry=%t;force=%t", strings.Join(p, ","), strings.Join(s, ","), r.DryRun, r.ForceRegressed)
}

// AdapterSelector returns the adapters for the named platforms.
type AdapterSelector func(names []string) ([]reconcile.Adapter, error)

// SelectPlatforms is the default selector over every registered platform.
func SelectPlatforms(names []string) ([]reconcile.Adapter, error) {
	as, err := platforms.Select(names)
	if err != nil {
		return nil, err
	}
	return platforms.Reconcilers(as), nil
}

// Deps wires a Service.
type Deps struct {
	Warehouse *gorm.DB
	Target    *target.Target
	Defaults  config.SyncConfig
	// Archive is optional. Reports are not stored when it is nil.
	Archive *storage.Archive
	// Metrics is optional.
	Metrics  *metrics.Recorder
	Adapters AdapterSelector
	Logger   *zap.Logger
}

// Service runs syncs, coalescing identical concurrent requests.
type Service struct {
	deps  Deps
	locks *reconcile.KeyLocks
	group singleflight.Group
	last  atomic.Pointer[reconcile.RunSummary]
}

// NewService creates a sync service.
func NewService(deps Deps) *Service {
	if deps.Adapters == nil {
		deps.Adapters = SelectPlatforms
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{deps: deps, locks: reconcile.NewKeyLocks()}
}

// Run executes a sync bound to ctx. Concurrent calls with the same request
// share one run and shared reports true for all but the caller that started
// it.
func (s *Service) Run(ctx context.Context, req Request) (*reconcile.RunSummary, bool, error) {
	return s.do(ctx, req)
}

// RunDetached is Run for callers that may disconnect, such as HTTP clients.
// The run ignores ctx cancellation so joined callers still get the result.
func (s *Service) RunDetached(ctx context.Context, req Request) (*reconcile.RunSummary, bool, error) {
	return s.do(context.WithoutCancel(ctx), req)
}

func (s *Service) do(ctx context.Context, req Request) (*reconcile.RunSummary, bool, error) {
	if len(req.Platforms) == 0 {
		req.Platforms = s.deps.Defaults.Platforms
	}
	if len(req.Studies) == 0 {
		req.Studies = s.deps.Defaults.Studies
	}
	req.DryRun = req.DryRun || s.deps.Defaults.DryRun
	req.ForceRegressed = req.ForceRegressed || s.deps.Defaults.ForceRegressed

	v, err, shared := s.group.Do(req.key(), func() (any, error) {
		return s.run(ctx, req)
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*reconcile.RunSummary), shared, nil
}

func (s *Service) run(ctx context.Context, req Request) (*reconcile.RunSummary, error) {
	log := s.deps.Logger
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adapters, err := s.deps.Adapters(req.Platforms)
	if err != nil {
		return nil, err
	}
	studies, err := s.deps.Target.ResolveStudies(ctx, req.Studies)
	if err != nil {
		return nil, err
	}

	opts := s.deps.Defaults.Options()
	opts.Studies = studies
	opts.DryRun = req.DryRun
	opts.ForceRegressed = req.ForceRegressed

	p := &reconcile.Pipeline{
		Warehouse: s.deps.Warehouse,
		Store:     s.deps.Target.Store,
		Adapters:  adapters,
		Logger:    log,
		Locks:     s.locks,
	}
	if s.deps.Metrics != nil {
		p.Observer = s.deps.Metrics
	}

	summary, err := p.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.last.Store(summary)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveRun(summary)
	}

	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Put(ctx, summary.RunID, summary.Started, summary)
		if err != nil {
			log.Warn("report archive failed", zap.String("run_id", summary.RunID), zap.Error(err))
		} else {
			log.Info("report archived", zap.String("run_id", summary.RunID), zap.String("key", key))
		}
	}
	return summary, nil
}

// Last returns the summary of the most recent run, or nil.
func (s *Service) Last() *reconcile.RunSummary {
	return s.last.Load()
}

// Reports lists archived reports, newest first.
func (s *Service) Reports(ctx context.Context, limit int) ([]storage.ReportInfo, error) {
	if s.deps.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.deps.Archive.List(ctx, limit)
}

// Report loads one archived report.
func (s *Service) Report(ctx context.Context, runID string) (*reconcile.RunSummary, error) {
	if s.deps.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	var sum reconcile.RunSummary
	if err := s.deps.Archive.Get(ctx, runID, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Schedule runs the default request every interval until ctx is done.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, _, err := s.Run(ctx, Request{})
			switch {
			case errors.Is(err, target.ErrNoStudies):
				s.deps.Logger.Info("scheduled sync skipped", zap.Error(err))
			case err != nil:
				s.deps.Logger.Error("scheduled sync failed", zap.Error(err))
			case summary.Err() != nil:
				s.deps.Logger.Warn("scheduled sync finished with errors", zap.Error(summary.Err()))
			}
		}
	}
}
