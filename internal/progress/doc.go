// Package progress reads the encoder's side-channel progress file and drives
// the external progress display while watching for user cancellation.
//
// The encoder appends key=value lines to the file; the poller only cares
// about the most recent elapsed-time record. Reads race with the encoder's
// writes, so an empty or partially-written file is "no new sample yet", never
// an error.
package progress
