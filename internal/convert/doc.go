// Package convert runs conversion batches end to end: it probes sources,
// confirms lossy re-encodes, drives the encoder and the progress dialog for
// each file, and settles the batch outcome with notifications and history.
package convert
