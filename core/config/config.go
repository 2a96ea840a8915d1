package config

import (
	"reflect"
	"strings"

	"mlwh-sync/core/database"
	"mlwh-sync/core/logger"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/server"
	"mlwh-sync/core/storage"
	"mlwh-sync/core/target"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Warehouse is the read-only MLWH connection.
	Warehouse database.Config `mapstructure:"warehouse"`
	// Target selects and configures the quality-tracking store.
	Target target.Config `mapstructure:"target"`
	// Storage holds configuration for the report archive.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Sync holds the defaults for every run.
	Sync SyncConfig `mapstructure:"sync"`
}

// SyncConfig holds run defaults. Command-line flags and query parameters
// override them per run.
type SyncConfig struct {
	// Studies restricts extraction to these study ids. Empty means discover
	// or sync all.
	Studies []string `mapstructure:"studies" default:""`
	// Platforms restricts the run to these platforms. Empty means all.
	Platforms []string `mapstructure:"platforms" default:""`
	// DryRun classifies without writing.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// ForceRegressed applies regressed records.
	ForceRegressed bool `mapstructure:"force_regressed" default:"false"`
	// LookupBatchSize is the number of keys per target lookup.
	LookupBatchSize int `mapstructure:"lookup_batch_size" default:"200"`
	// LookupConcurrency bounds lookups in flight.
	LookupConcurrency int `mapstructure:"lookup_concurrency" default:"4"`
	// BatchSize is the number of writes per store call.
	BatchSize int `mapstructure:"batch_size" default:"100"`
	// Concurrency bounds write batches in flight.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// Retry is the backoff for transient store failures.
	Retry reconcile.RetryPolicy `mapstructure:"retry"`
}

// Options converts the defaults into engine options.
func (s SyncConfig) Options() reconcile.Options {
	return reconcile.Options{
		Studies:           s.Studies,
		DryRun:            s.DryRun,
		ForceRegressed:    s.ForceRegressed,
		LookupBatchSize:   s.LookupBatchSize,
		LookupConcurrency: s.LookupConcurrency,
		BatchSize:         s.BatchSize,
		Concurrency:       s.Concurrency,
		Retry:             s.Retry,
	}
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. WAREHOUSE_HOST -> warehouse.host)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
