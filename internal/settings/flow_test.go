package settings

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"quaver/internal/config"
	"quaver/internal/quality"
	"quaver/internal/services/kdialog"
)

type menuScript struct {
	responses []struct {
		key string
		ok  bool
	}
	prompts []string
	entries [][]kdialog.MenuEntry
	call    int
}

type scriptedDialogs struct {
	menu menuScript
}

func (d *scriptedDialogs) OpenProgress(context.Context, string, string) (kdialog.ProgressHandle, error) {
	return nil, nil
}

func (d *scriptedDialogs) WarnContinueCancel(context.Context, string, string) bool { return true }

func (d *scriptedDialogs) Menu(_ context.Context, _, prompt string, entries []kdialog.MenuEntry) (string, bool) {
	d.menu.prompts = append(d.menu.prompts, prompt)
	d.menu.entries = append(d.menu.entries, entries)
	if d.menu.call >= len(d.menu.responses) {
		return "", false
	}
	resp := d.menu.responses[d.menu.call]
	d.menu.call++
	return resp.key, resp.ok
}

func (d *scriptedDialogs) Error(context.Context, string) {}

type recordingPatcher struct {
	applied []quality.Config
}

func (p *recordingPatcher) Apply(cfg quality.Config) error {
	copied := quality.Config{}
	for k, v := range cfg {
		copied[k] = v
	}
	p.applied = append(p.applied, copied)
	return nil
}

type silentNotifier struct {
	saved []string
}

func (n *silentNotifier) NotifyBatchCompleted(context.Context, int, string, string) error { return nil }
func (n *silentNotifier) NotifyBatchPartial(context.Context, int, int, int) error         { return nil }
func (n *silentNotifier) NotifyBatchCancelled(context.Context, int, int) error            { return nil }
func (n *silentNotifier) NotifySettingsSaved(_ context.Context, label, token string) error {
	n.saved = append(n.saved, label+"="+token)
	return nil
}

func newTestFlow(t *testing.T, dialogs *scriptedDialogs) (*Flow, *quality.Store, *recordingPatcher, *silentNotifier) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.QualityFile = filepath.Join(t.TempDir(), "quality.toml")
	store := quality.NewStore(cfg.Paths.QualityFile)
	patcher := &recordingPatcher{}
	notifier := &silentNotifier{}
	flow := NewFlow(&cfg,
		WithDialogs(dialogs),
		WithPatcher(patcher),
		WithNotifier(notifier),
	)
	flow.store = store
	return flow, store, patcher, notifier
}

func TestRunSavesSelectionAndPatchesMenu(t *testing.T) {
	dialogs := &scriptedDialogs{menu: menuScript{responses: []struct {
		key string
		ok  bool
	}{
		{key: "mp3", ok: true},
		{key: "320k", ok: true},
	}}}
	flow, store, patcher, notifier := newTestFlow(t, dialogs)

	changed, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !changed {
		t.Fatal("expected a stored selection")
	}
	if got := store.Load().Resolve("mp3"); got != "320k" {
		t.Fatalf("selection not persisted, got %q", got)
	}
	if len(patcher.applied) != 1 {
		t.Fatalf("expected one patch application, got %d", len(patcher.applied))
	}
	if len(notifier.saved) != 1 || notifier.saved[0] != "MP3=320k" {
		t.Fatalf("unexpected settings notification: %v", notifier.saved)
	}
}

func TestRunFormatMenuShowsCurrentSelection(t *testing.T) {
	dialogs := &scriptedDialogs{}
	flow, _, _, _ := newTestFlow(t, dialogs)

	if _, err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(dialogs.menu.entries) == 0 {
		t.Fatal("format menu never shown")
	}
	var sawDefault bool
	for _, entry := range dialogs.menu.entries[0] {
		if entry.Key == "mp3" && strings.Contains(entry.Label, "currently: V0") {
			sawDefault = true
		}
		if entry.Key == "flac" || entry.Key == "wav" || entry.Key == "alac" {
			t.Fatalf("lossless formats must not be configurable: %v", entry)
		}
	}
	if !sawDefault {
		t.Fatalf("mp3 entry missing current token: %+v", dialogs.menu.entries[0])
	}
}

func TestRunDismissedFormatMenuChangesNothing(t *testing.T) {
	dialogs := &scriptedDialogs{}
	flow, store, patcher, _ := newTestFlow(t, dialogs)

	changed, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if changed {
		t.Fatal("dismissal must not report a change")
	}
	if len(patcher.applied) != 0 {
		t.Fatal("dismissal must not patch the menu")
	}
	if got := store.Load().Resolve("mp3"); got != "V0" {
		t.Fatalf("defaults must survive dismissal, got %q", got)
	}
}

func TestRunDismissedQualityMenuChangesNothing(t *testing.T) {
	dialogs := &scriptedDialogs{menu: menuScript{responses: []struct {
		key string
		ok  bool
	}{
		{key: "opus", ok: true},
		{key: "", ok: false},
	}}}
	flow, store, patcher, _ := newTestFlow(t, dialogs)

	changed, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if changed || len(patcher.applied) != 0 {
		t.Fatal("dismissed quality menu must change nothing")
	}
	if got := store.Load().Resolve("opus"); got != "128k" {
		t.Fatalf("unexpected stored token %q", got)
	}
}

func TestRunRejectsInvalidQualityToken(t *testing.T) {
	dialogs := &scriptedDialogs{menu: menuScript{responses: []struct {
		key string
		ok  bool
	}{
		{key: "mp3", ok: true},
		{key: "Q6", ok: true},
	}}}
	flow, store, patcher, _ := newTestFlow(t, dialogs)

	changed, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if changed || len(patcher.applied) != 0 {
		t.Fatal("a token from another format must be rejected")
	}
	if got := store.Load().Resolve("mp3"); got != "V0" {
		t.Fatalf("unexpected stored token %q", got)
	}
}

func TestRunQualityMenuMarksCurrent(t *testing.T) {
	dialogs := &scriptedDialogs{menu: menuScript{responses: []struct {
		key string
		ok  bool
	}{
		{key: "ogg", ok: true},
		{key: "", ok: false},
	}}}
	flow, _, _, _ := newTestFlow(t, dialogs)

	if _, err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(dialogs.menu.entries) < 2 {
		t.Fatal("quality menu never shown")
	}
	var marked bool
	for _, entry := range dialogs.menu.entries[1] {
		if entry.Key == "Q6" && strings.Contains(entry.Label, "✔") {
			marked = true
		}
	}
	if !marked {
		t.Fatalf("current token must carry the check marker: %+v", dialogs.menu.entries[1])
	}
}
