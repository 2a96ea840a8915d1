// Package tolqc is a client for the ToLQC JSON API.
//
// Client implements reconcile.Store and reconcile.BatchWriter against the
// seq-data endpoints. Requests carry the configured token in the Token
// header. Keys and records are sent in pages of Config.PageSize.
//
// Network failures, 429 and 5xx responses are marked transient so the
// engine retries them. Any other 4xx is permanent.
package tolqc
