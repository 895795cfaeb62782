// Package notifications posts desktop notifications about finished or
// aborted batches through notify-send. A noop implementation covers
// headless sessions and tests.
package notifications
