// Package servicemenu keeps the Dolphin service menu's action labels in sync
// with the saved quality selection by patching Name= lines in the installed
// .desktop file.
package servicemenu
