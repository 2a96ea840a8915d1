package metrics

import (
	"time"

	"mlwh-sync/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mlwh_sync"

// Recorder exports per-platform sync counters. It implements
// reconcile.Observer.
type Recorder struct {
	records        *prometheus.CounterVec
	drops          *prometheus.CounterVec
	writes         *prometheus.CounterVec
	platformErrors *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	lastSuccess    *prometheus.GaugeVec
	runs           *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records seen per platform and classification stage.",
		}, []string{"platform", "class"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Rows dropped during canonicalization, by column and reason class.",
		}, []string{"platform", "field", "class"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Target store writes by operation and outcome.",
		}, []string{"platform", "op", "outcome"}),
		platformErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_errors_total",
			Help:      "Platforms aborted before writing, by stage.",
		}, []string{"platform", "stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "platform_duration_seconds",
			Help:      "Wall time per platform within a run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"platform"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last platform run without errors.",
		}, []string{"platform"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed sync runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.records, r.drops, r.writes, r.platformErrors, r.duration, r.lastSuccess, r.runs)
	return r
}

// ObservePlatform records one finished platform.
func (r *Recorder) ObservePlatform(s *reconcile.PlatformSummary, elapsed time.Duration) {
	p := string(s.Platform)
	r.duration.WithLabelValues(p).Observe(elapsed.Seconds())

	if s.Error != "" {
		r.platformErrors.WithLabelValues(p, s.Stage).Inc()
		return
	}

	for class, n := range map[string]int{
		"extracted":    s.Extracted,
		"deduplicated": s.Deduplicated,
		"new":          s.New,
		"unchanged":    s.Unchanged,
		"changed":      s.Changed,
		"regressed":    s.Regressed,
	} {
		r.records.WithLabelValues(p, class).Add(float64(n))
	}
	for cause, n := range s.DropCauses {
		r.drops.WithLabelValues(p, cause.Field, string(cause.Class)).Add(float64(n))
	}

	created, updated := s.Created, s.Updated
	failedCreate, failedUpdate := 0, 0
	for _, f := range s.Failures {
		if f.Op == "create" {
			failedCreate++
		} else {
			failedUpdate++
		}
	}
	r.writes.WithLabelValues(p, "create", "ok").Add(float64(created))
	r.writes.WithLabelValues(p, "update", "ok").Add(float64(updated))
	r.writes.WithLabelValues(p, "create", "failed").Add(float64(failedCreate))
	r.writes.WithLabelValues(p, "update", "failed").Add(float64(failedUpdate))

	if s.Failed == 0 {
		r.lastSuccess.WithLabelValues(p).Set(float64(time.Now().Unix()))
	}
}

// ObserveRun counts a whole run by outcome.
func (r *Recorder) ObserveRun(sum *reconcile.RunSummary) {
	outcome := "ok"
	switch {
	case sum.DryRun:
		outcome = "dry_run"
	case sum.Err() != nil:
		outcome = "failed"
	}
	r.runs.WithLabelValues(outcome).Inc()
}
