// Package sync exposes sync runs over HTTP and schedules them.
//
// Service builds a reconcile.Pipeline per request from the selected
// platform adapters and the opened target store. Identical concurrent
// requests are coalesced with singleflight so a burst of triggers starts a
// single run. The last summary is kept in memory, and every summary is
// archived to object storage when an archive is configured.
//
// # Routes
//
//	POST /sync               ?platform=&study=&dry_run=&force_regressed=
//	GET  /sync/last
//	GET  /sync/reports       ?limit=
//	GET  /sync/reports/:id
package sync
