// Package metrics exports sync run statistics to Prometheus.
//
// Recorder is passed to the engine as its reconcile.Observer and receives
// every platform summary as the platform finishes. All series carry a
// platform label and live under the mlwh_sync namespace.
package metrics
