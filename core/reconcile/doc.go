// Package reconcile keeps the quality-tracking store in step with the
// sequencing warehouse.
//
// A run moves every platform through the same stages:
//
//  1. Extract: the platform Adapter runs one read-only snapshot query and
//     yields raw rows lazily.
//  2. Canonicalize: a declarative Mapping turns each complete row into a
//     Record. Incomplete or malformed rows are dropped with a reason.
//  3. Resolve: records sharing a (platform_type, name_root) key collapse to
//     one winner; losers are reported as IdentityCollision.
//  4. Diff: records are looked up in the Store in batches and classified as
//     new, unchanged, changed or regressed.
//  5. Apply: creates and minimal patches are written in batches with
//     bounded concurrency, per-key locking and retry of transient failures.
//
// Platforms run concurrently and fail independently. The diff stage waits
// until every platform has been resolved.
//
// # QC monotonicity
//
// A stored qc_date is never replaced by an older one and never cleared by a
// null. Records that would move QC state backwards are classified as
// regressed and skipped unless Options.ForceRegressed is set.
//
// # Usage Example
//
//	p := &reconcile.Pipeline{
//	    Warehouse: db,
//	    Store:     store,
//	    Adapters:  []reconcile.Adapter{illumina.NewAdapter(), pacbio.NewAdapter()},
//	    Logger:    log,
//	}
//	summary, err := p.Run(ctx, reconcile.Options{Studies: []string{"5901"}})
//	if err != nil {
//	    return err
//	}
//	return summary.Err()
package reconcile
