// Package services hosts clients for the external tools quaver drives
// (ffmpeg, kdialog/qdbus) plus the shared error taxonomy used to classify
// their failures.
package services
