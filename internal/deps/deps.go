// Package deps checks the availability of the external tools the converter
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"quaver/internal/config"
)

var lookPath = exec.LookPath

// Requirement defines one external tool dependency.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// qdbusCandidates mirrors the dialog client's detection order.
var qdbusCandidates = []string{"qdbus-qt5", "qdbus", "qdbus6"}

// ForConfig lists the tools the configured setup depends on. ffmpeg and
// ffprobe are hard requirements; the desktop tools degrade gracefully when
// absent.
func ForConfig(cfg *config.Config) []Requirement {
	qdbus := strings.TrimSpace(cfg.Tools.Qdbus)
	if qdbus == "" {
		qdbus = detectQdbus()
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Audio encoding"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Duration and codec probing"},
		{Name: "KDialog", Command: cfg.Tools.Kdialog, Description: "Progress and warning dialogs", Optional: true},
		{Name: "qdbus", Command: qdbus, Description: "Progress bar updates and cancel detection", Optional: true},
		{Name: "notify-send", Command: cfg.Tools.NotifySend, Description: "Desktop notifications", Optional: true},
	}
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := lookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the non-optional tools absent from the system.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}

func detectQdbus() string {
	for _, candidate := range qdbusCandidates {
		if _, err := lookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// InstallHint renders the ffmpeg install guidance shown when encoding tools
// are missing.
func InstallHint() string {
	return "<b>ffmpeg not found.</b><br><br>" +
		"Install via your package manager:<br>" +
		"• <tt>sudo apt install ffmpeg</tt> - Debian / Ubuntu / Mint<br>" +
		"• <tt>sudo dnf install ffmpeg</tt> - Fedora<br>" +
		"• <tt>sudo pacman -S ffmpeg</tt> - Arch / Manjaro<br>" +
		"• <tt>sudo zypper install ffmpeg</tt> - openSUSE"
}
