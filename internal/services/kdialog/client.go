package kdialog

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

// qdbusCandidates is the detection order for the qdbus binary across Qt
// generations.
var qdbusCandidates = []string{"qdbus-qt5", "qdbus", "qdbus6"}

// MenuEntry is one selectable row in a kdialog menu.
type MenuEntry struct {
	Key   string
	Label string
}

// ProgressHandle addresses one open progress dialog.
type ProgressHandle interface {
	// Set pushes a new percentage and label. The returned bool reports
	// whether the dialog is still open; false means the user dismissed it.
	Set(ctx context.Context, percent int, label string) bool
	Close(ctx context.Context)
}

// Dialogs is the dialog surface the conversion and configuration flows use.
type Dialogs interface {
	OpenProgress(ctx context.Context, title, label string) (ProgressHandle, error)
	// WarnContinueCancel shows a warning with Convert/Cancel buttons and
	// reports whether the user chose to continue.
	WarnContinueCancel(ctx context.Context, title, text string) bool
	// Menu shows a selection menu and returns the chosen key; ok is false
	// when the user dismissed the menu.
	Menu(ctx context.Context, title, prompt string, entries []MenuEntry) (key string, ok bool)
	Error(ctx context.Context, text string)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the kdialog binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithQdbusBinary pins the qdbus binary instead of probing candidates.
func WithQdbusBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.qdbus = binary
		}
	}
}

// CLI wraps the kdialog and qdbus command-line tools.
type CLI struct {
	binary string
	qdbus  string
}

// NewCLI constructs a client, probing for a usable qdbus binary.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "kdialog"}
	for _, opt := range opts {
		opt(cli)
	}
	if cli.qdbus == "" {
		for _, candidate := range qdbusCandidates {
			if _, err := lookPath(candidate); err == nil {
				cli.qdbus = candidate
				break
			}
		}
	}
	return cli
}

// OpenProgress opens a 0-100 progress bar dialog and returns its D-Bus
// handle. kdialog prints the service and object path as two tokens; older
// versions print only the service, in which case the root path applies.
func (c *CLI) OpenProgress(ctx context.Context, title, label string) (ProgressHandle, error) {
	cmd := commandContext(ctx, c.binary, "--title", title, "--progressbar", label, "100")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("open progress dialog: %w", err)
	}
	parts := strings.Fields(strings.TrimSpace(string(output)))
	switch {
	case len(parts) >= 2:
		return &dbusProgress{qdbus: c.qdbus, service: parts[0], path: parts[1]}, nil
	case len(parts) == 1:
		return &dbusProgress{qdbus: c.qdbus, service: parts[0], path: "/"}, nil
	}
	return nil, fmt.Errorf("open progress dialog: unexpected kdialog output %q", strings.TrimSpace(string(output)))
}

// WarnContinueCancel shows a --warningyesno dialog. kdialog exits zero when
// the user picks the affirmative button.
func (c *CLI) WarnContinueCancel(ctx context.Context, title, text string) bool {
	cmd := commandContext(ctx, c.binary,
		"--title", title,
		"--warningyesno", text,
		"--yes-label", "Convert",
		"--no-label", "Cancel",
	)
	return cmd.Run() == nil
}

// Menu shows a --menu dialog; the chosen key arrives on stdout.
func (c *CLI) Menu(ctx context.Context, title, prompt string, entries []MenuEntry) (string, bool) {
	args := []string{"--title", title, "--menu", prompt}
	for _, entry := range entries {
		args = append(args, entry.Key, entry.Label)
	}
	output, err := commandContext(ctx, c.binary, args...).Output()
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(string(output))
	if key == "" {
		return "", false
	}
	return key, true
}

// Error shows a modal error dialog; failures to display are ignored since
// the caller already logs the underlying problem.
func (c *CLI) Error(ctx context.Context, text string) {
	_ = commandContext(ctx, c.binary, "--error", text).Run()
}

var _ Dialogs = (*CLI)(nil)

// dbusProgress talks to an open kdialog progress bar over qdbus.
type dbusProgress struct {
	qdbus   string
	service string
	path    string
}

func (p *dbusProgress) Set(ctx context.Context, percent int, label string) bool {
	if p.qdbus == "" {
		// No qdbus available: updates are dropped but the dialog counts as
		// open, so conversions still run to completion.
		return true
	}
	cmd := commandContext(ctx, p.qdbus, p.service, p.path, "Set", "", "value", strconv.Itoa(percent))
	if err := cmd.Run(); err != nil {
		return false
	}
	if label != "" {
		_ = commandContext(ctx, p.qdbus, p.service, p.path, "setLabelText", label).Run()
	}
	return true
}

func (p *dbusProgress) Close(ctx context.Context) {
	if p.qdbus == "" {
		return
	}
	_ = commandContext(ctx, p.qdbus, p.service, p.path, "close").Run()
}
