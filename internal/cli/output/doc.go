// Package output formats dsh command results.
//
//   - formatter.go: Format values and the Formatter factory
//   - raw.go: one line per value, used for raw tokens
//   - table.go: aligned columns for slices of structs
//   - json.go, yaml.go: machine-readable output
//   - progress.go: a counting progress bar for token batches
package output
