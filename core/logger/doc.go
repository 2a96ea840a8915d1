// Package logger provides a structured logging facility based on Zap.
//
// Debug level selects zap's development config, anything else the
// production config. Format chooses json or console encoding. When File is
// set, entries are also written as JSON to a file rotated by lumberjack.
//
// WithRayID attaches the request id set by the rayid middleware so that all
// entries of one HTTP request can be correlated.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("sync finished", zap.String("run_id", id))
package logger
