// Package integrity checks the dependencies of a sync run.
//
// # Checks Provided
//
//   - Warehouse: every table and column the platform queries read exists.
//   - Target: the target store answers a lookup.
//   - Archive: the report bucket exists (supports fix, which creates it).
//
// A dependency that is not configured is skipped.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks, 503 when one fails.
//   - GET /integrity/warehouse : Runs the schema check.
//   - GET /integrity/target : Pings the target store.
//   - GET /integrity/archive : Checks the bucket (supports ?fix=true).
package integrity
