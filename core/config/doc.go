// Package config loads application configuration with Viper.
//
// Values come from a .env file (overloading the environment) and from
// environment variables, where nested keys use underscores:
// WAREHOUSE_HOST sets warehouse.host and TARGET_API_TOKEN sets
// target.api.token. Defaults are declared on each field with a `default`
// struct tag and registered by walking the struct with reflection.
//
// # Sections
//
//   - server: HTTP port, API key, scheduled sync interval
//   - warehouse: MLWH MySQL connection
//   - target: store driver and its api, sql or postgres settings
//   - storage: report archive bucket
//   - log: level, format, optional rotating file
//   - sync: run defaults (studies, batch sizes, retry policy)
package config
