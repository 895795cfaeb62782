// Package history persists completed conversion batches to SQLite so past
// runs can be inspected from the command line. Each batch row carries the
// requested format, quality, and outcome; per-file rows record individual
// dispositions.
package history
