// Package format holds the catalog of supported output formats: labels,
// container extensions, quality options, and the output path rules shared by
// the converter and the configuration flow.
package format
