package servicemenu

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"quaver/internal/fileutil"
	"quaver/internal/format"
	"quaver/internal/quality"
)

// DesktopFileName is the installed service menu file.
const DesktopFileName = "dolphin-audio-converter.desktop"

var actionHeader = regexp.MustCompile(`^\[Desktop Action (\w+)\]`)

// Patcher rewrites convert-action labels inside an installed .desktop file.
type Patcher struct {
	candidates []string
}

// NewPatcher searches the standard KDE service menu locations under dataDir,
// the user's XDG data home. The kio location is preferred; the kservices5
// location covers Plasma 5 installs.
func NewPatcher(dataDir string) *Patcher {
	return &Patcher{
		candidates: []string{
			filepath.Join(dataDir, "kio", "servicemenus", DesktopFileName),
			filepath.Join(dataDir, "kservices5", "ServiceMenus", DesktopFileName),
		},
	}
}

// NewPatcherForFile targets one explicit .desktop path.
func NewPatcherForFile(path string) *Patcher {
	return &Patcher{candidates: []string{path}}
}

// Locate returns the first installed .desktop file, or "" when none exists.
func (p *Patcher) Locate() string {
	for _, candidate := range p.candidates {
		if fileutil.Exists(candidate) {
			return candidate
		}
	}
	return ""
}

// ActionName returns the .desktop action identifier for a format key,
// convertToMp3 for mp3 and so on.
func ActionName(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	return "convertTo" + strings.ToUpper(key[:1]) + key[1:]
}

// Labels maps action identifiers to the menu labels the current selection
// calls for.
func Labels(cfg quality.Config) map[string]string {
	labels := make(map[string]string, len(format.All()))
	for _, def := range format.All() {
		token := cfg.Resolve(def.Key)
		labels[ActionName(def.Key)] = fmt.Sprintf("Convert to %s%s", def.Label, format.QualitySuffix(token))
	}
	return labels
}

// Apply rewrites the installed file's action labels to match cfg. Only Name=
// lines inside recognized [Desktop Action ...] sections change; every other
// byte is preserved. A missing .desktop file is not an error: the menu may
// simply not be installed yet.
func (p *Patcher) Apply(cfg quality.Config) error {
	path := p.Locate()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read service menu: %w", err)
	}

	patched, changed := patch(string(data), Labels(cfg))
	if !changed {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat service menu: %w", err)
	}
	if err := fileutil.WriteAtomic(path, []byte(patched), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write service menu: %w", err)
	}
	return nil
}

func patch(content string, labels map[string]string) (string, bool) {
	lines := strings.Split(content, "\n")
	currentAction := ""
	changed := false
	for i, line := range lines {
		if strings.HasPrefix(line, "[") {
			currentAction = ""
			if m := actionHeader.FindStringSubmatch(line); m != nil {
				currentAction = m[1]
			}
			continue
		}
		label, tracked := labels[currentAction]
		if !tracked || !strings.HasPrefix(line, "Name=") {
			continue
		}
		replacement := "Name=" + label
		if lines[i] != replacement {
			lines[i] = replacement
			changed = true
		}
	}
	return strings.Join(lines, "\n"), changed
}
