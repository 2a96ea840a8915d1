// Package qcstore implements the target store on top of GORM.
//
// Store persists records in a seq_data table with a unique
// (platform_type, name_root) index. Creates use ON CONFLICT DO NOTHING so a
// repeated create is a no-op, and updates touch only the patched columns.
// Store also implements reconcile.BatchWriter.
//
// Memory is a map-backed store with the same semantics, for dry runs and
// tests.
package qcstore
