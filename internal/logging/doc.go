// Package logging builds the slog loggers used across quaver.
//
// Two handler flavours are supported: a compact console format for
// interactive use and JSON for log files. Attr helpers keep call sites
// terse and make the attribute vocabulary greppable.
package logging
