package target

import (
	"mlwh-sync/core/database"
	"mlwh-sync/core/pgstore"
	"mlwh-sync/core/tolqc"
)

// Driver names a target store backend.
type Driver string

const (
	DriverAPI      Driver = "api"
	DriverSQL      Driver = "sql"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

// Config selects and configures the target store.
type Config struct {
	// Driver is one of api, sql, postgres or memory.
	Driver string `mapstructure:"driver" default:"api"`
	// API configures the ToLQC HTTP backend.
	API tolqc.Config `mapstructure:"api"`
	// SQL configures the GORM backend.
	SQL database.Config `mapstructure:"sql"`
	// Postgres configures the pgx backend.
	Postgres pgstore.Config `mapstructure:"postgres"`
}
