package server

import "time"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `mapstructure:"shutdown_seconds" default:"30"`
	// SyncInterval schedules periodic runs when set, e.g. "1h".
	SyncInterval string `mapstructure:"sync_interval" default:""`
}

// Interval parses SyncInterval. Zero means no scheduled runs.
func (c Config) Interval() (time.Duration, error) {
	if c.SyncInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(c.SyncInterval)
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ShutdownSeconds) * time.Second
}
