// Package ffmpeg wraps the ffmpeg encoder for single-file audio conversions.
//
// Each conversion runs as one encode job with an explicit lifecycle:
// Pending -> Running -> Completed | Failed | Cancelled. The encoder is told
// to append machine-readable progress to a side-channel file rather than a
// pipe, so a separate poller can read it without blocking on the encoder's
// own streams.
package ffmpeg
