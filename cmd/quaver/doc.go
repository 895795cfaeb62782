// Command quaver is the Dolphin service menu backend for batch audio
// conversion: it converts selected files with ffmpeg, shows progress through
// kdialog, and manages the per-format quality selection.
package main
