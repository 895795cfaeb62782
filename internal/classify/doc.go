// Package classify decides whether a source codec is lossy or lossless and
// gates the re-encode warning shown before converting a lossy source.
package classify
