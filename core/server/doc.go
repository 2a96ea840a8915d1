// Package server holds the HTTP server configuration.
//
// The Config struct defines the HTTP port, the API key protecting every
// route, the graceful shutdown bound and an optional interval for scheduled
// sync runs while serving.
package server
