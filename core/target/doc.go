// Package target opens the configured target store backend.
//
//	driver: api|sql|postgres|memory (default api)
//
// The api backend is the ToLQC HTTP API and can also list auto-sync
// studies. The sql backend uses GORM against MySQL or SQLite, postgres uses
// pgx, and memory keeps everything in process.
package target
