// Package quality persists the per-format quality selection as a small TOML
// document. Loading fails soft: a missing or corrupt document yields the
// catalog defaults, since the selection is advisory.
package quality
