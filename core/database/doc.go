// Package database handles database connections and schema inspection.
//
// It wraps GORM to open the sequencing warehouse (MySQL, read only) and the
// SQL flavour of the target store (MySQL or sqlite).
//
// # Connect
//
// Connect opens a pool for the configured driver, applies pool limits and
// pings with the configured timeout. Timestamps are parsed in UTC.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns for either dialect. CheckTables
// compares the live schema with the columns a platform query expects, which
// backs the warehouse integrity check.
//
// # Usage
//
//	db, err := database.Connect(cfg.Warehouse)
//	if err != nil {
//	    return err
//	}
//
//	reports := database.CheckTables(db, illumina.NewAdapter().Tables())
package database
