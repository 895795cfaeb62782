// Package kdialog drives the desktop dialog surface: the shared progress
// bar, lossy re-encode confirmations, configuration menus, and error boxes.
//
// The progress bar is a kdialog process addressed over D-Bus through qdbus.
// qdbus exiting non-zero on an update is the contract for "the user closed
// the dialog", which callers treat as cancellation.
package kdialog
