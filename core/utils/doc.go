// Package utils provides scalar conversions for values scanned from SQL
// drivers and read from query strings. MySQL drivers hand back []byte,
// int64 or float64 depending on column type and scan target, so callers
// convert through these helpers instead of asserting types directly.
package utils
