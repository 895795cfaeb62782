package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"quaver/internal/config"
	"quaver/internal/history"
	"quaver/internal/progress"
	"quaver/internal/services/ffmpeg"
	"quaver/internal/services/kdialog"
)

type setCall struct {
	percent int
	label   string
}

type fakeDialogs struct {
	mu        sync.Mutex
	sets      []setCall
	errors    []string
	warnCalls int
	warnAllow bool
	alive     func(label string) bool
}

func (d *fakeDialogs) OpenProgress(context.Context, string, string) (kdialog.ProgressHandle, error) {
	return &fakeHandle{dialogs: d}, nil
}

func (d *fakeDialogs) WarnContinueCancel(context.Context, string, string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnCalls++
	return d.warnAllow
}

func (d *fakeDialogs) Menu(context.Context, string, string, []kdialog.MenuEntry) (string, bool) {
	return "", false
}

func (d *fakeDialogs) Error(_ context.Context, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, text)
}

func (d *fakeDialogs) setCalls() []setCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]setCall, len(d.sets))
	copy(out, d.sets)
	return out
}

type fakeHandle struct {
	dialogs *fakeDialogs
}

func (h *fakeHandle) Set(_ context.Context, percent int, label string) bool {
	h.dialogs.mu.Lock()
	defer h.dialogs.mu.Unlock()
	h.dialogs.sets = append(h.dialogs.sets, setCall{percent: percent, label: label})
	if h.dialogs.alive != nil {
		return h.dialogs.alive(label)
	}
	return true
}

func (h *fakeHandle) Close(context.Context) {}

type notifyCall struct {
	kind string
	a, b int
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) NotifyBatchCompleted(_ context.Context, converted int, _, _ string) error {
	n.record(notifyCall{kind: "completed", a: converted})
	return nil
}

func (n *fakeNotifier) NotifyBatchPartial(_ context.Context, converted, failed, _ int) error {
	n.record(notifyCall{kind: "partial", a: converted, b: failed})
	return nil
}

func (n *fakeNotifier) NotifyBatchCancelled(_ context.Context, position, total int) error {
	n.record(notifyCall{kind: "cancelled", a: position, b: total})
	return nil
}

func (n *fakeNotifier) NotifySettingsSaved(context.Context, string, string) error {
	n.record(notifyCall{kind: "settings"})
	return nil
}

func (n *fakeNotifier) record(call notifyCall) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

func (n *fakeNotifier) last() (notifyCall, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return notifyCall{}, false
	}
	return n.calls[len(n.calls)-1], true
}

// scriptedEncoder runs one binary per file so tests can mix successes,
// failures, and long-running encodes.
type scriptedEncoder struct {
	mu   sync.Mutex
	bins []string
	idx  int
}

func (e *scriptedEncoder) Start(ctx context.Context, spec ffmpeg.Spec) (*ffmpeg.Job, error) {
	e.mu.Lock()
	bin := e.bins[e.idx%len(e.bins)]
	e.idx++
	e.mu.Unlock()
	return ffmpeg.NewCLI(ffmpeg.WithBinary(bin)).Start(ctx, spec)
}

type fakeRecorder struct {
	mu      sync.Mutex
	batches []history.Batch
}

func (r *fakeRecorder) Record(_ context.Context, batch history.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func slowScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slowenc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writeSources(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write source: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QualityFile = filepath.Join(dir, "quality.toml")
	cfg.Paths.HistoryDB = filepath.Join(dir, "history.db")
	cfg.Paths.LockFile = filepath.Join(dir, "convert.lock")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	return &cfg
}

type inspectResult struct {
	duration float64
	codec    string
}

func newOrchestrator(t *testing.T, cfg *config.Config, dialogs *fakeDialogs, notifier *fakeNotifier, encoder ffmpeg.Client, recorder Recorder, inspections map[string]inspectResult) *Orchestrator {
	t.Helper()
	inspect := func(_ context.Context, path string) (float64, string) {
		if res, ok := inspections[filepath.Base(path)]; ok {
			return res.duration, res.codec
		}
		return 10, "flac"
	}
	o, err := New(cfg,
		WithEncoder(encoder),
		WithDialogs(dialogs),
		WithNotifier(notifier),
		WithMonitor(progress.NewMonitor(progress.WithInterval(5*time.Millisecond))),
		WithRecorder(recorder),
		WithInspector(inspect),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestRunConvertsWholeBatch(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{warnAllow: true}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	encoder := &scriptedEncoder{bins: []string{"/bin/true"}}
	sources := writeSources(t, "a.flac", "b.flac")

	o := newOrchestrator(t, cfg, dialogs, notifier, encoder, recorder, nil)
	result, err := o.Run(context.Background(), "mp3", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed outcome, got %v", result.Outcome)
	}
	if result.Outcome.ExitCode() != 0 {
		t.Fatalf("unexpected exit code %d", result.Outcome.ExitCode())
	}
	converted, failed, skipped := result.Counts()
	if converted != 2 || failed != 0 || skipped != 0 {
		t.Fatalf("unexpected counts: %d/%d/%d", converted, failed, skipped)
	}
	for _, file := range result.Files {
		if file.Status != StatusConverted || !strings.HasSuffix(file.Output, ".mp3") {
			t.Fatalf("unexpected file result: %+v", file)
		}
	}
	if call, ok := notifier.last(); !ok || call.kind != "completed" || call.a != 2 {
		t.Fatalf("expected completion notification, got %+v", call)
	}
	if len(recorder.batches) != 1 || recorder.batches[0].Converted != 2 {
		t.Fatalf("unexpected history record: %+v", recorder.batches)
	}

	sets := dialogs.setCalls()
	if len(sets) == 0 || sets[len(sets)-1].percent != 100 {
		t.Fatalf("expected final set at 100, got %+v", sets)
	}
}

func TestRunWeightsProgressByDuration(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{warnAllow: true}
	encoder := &scriptedEncoder{bins: []string{"/bin/true"}}
	sources := writeSources(t, "short.flac", "long.flac")
	inspections := map[string]inspectResult{
		"short.flac": {duration: 30, codec: "flac"},
		"long.flac":  {duration: 90, codec: "flac"},
	}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, encoder, nil, inspections)
	if _, err := o.Run(context.Background(), "ogg", sources); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var sawQuarter, sawFull bool
	for _, call := range dialogs.setCalls() {
		if call.percent == 25 && strings.HasPrefix(call.label, "Done:") {
			sawQuarter = true
		}
		if call.percent == 100 {
			sawFull = true
		}
	}
	if !sawQuarter {
		t.Fatalf("expected the short file to end its slice at 25%%, got %+v", dialogs.setCalls())
	}
	if !sawFull {
		t.Fatal("expected the bar to reach 100")
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{warnAllow: true}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	encoder := &scriptedEncoder{bins: []string{"/bin/true", "/bin/false", "/bin/true"}}
	sources := writeSources(t, "a.flac", "b.flac", "c.flac")

	o := newOrchestrator(t, cfg, dialogs, notifier, encoder, recorder, nil)
	result, err := o.Run(context.Background(), "opus", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != OutcomePartial {
		t.Fatalf("expected partial outcome, got %v", result.Outcome)
	}
	if result.Outcome.ExitCode() != 2 {
		t.Fatalf("unexpected exit code %d", result.Outcome.ExitCode())
	}
	want := []FileStatus{StatusConverted, StatusFailed, StatusConverted}
	if len(result.Files) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), result.Files)
	}
	for i, status := range want {
		if result.Files[i].Status != status {
			t.Fatalf("file %d: expected %v, got %v", i, status, result.Files[i].Status)
		}
	}
	if result.Files[1].Err == nil {
		t.Fatal("failed file must carry its error")
	}

	dialogs.mu.Lock()
	errCount := len(dialogs.errors)
	dialogs.mu.Unlock()
	if errCount != 1 {
		t.Fatalf("expected one error summary dialog, got %d", errCount)
	}
	if call, ok := notifier.last(); !ok || call.kind != "partial" || call.a != 2 || call.b != 1 {
		t.Fatalf("expected partial notification, got %+v", call)
	}
}

func TestRunCancelAbortsRemainingFiles(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{
		warnAllow: true,
		alive: func(label string) bool {
			return !strings.HasPrefix(label, "Converting:")
		},
	}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	encoder := &scriptedEncoder{bins: []string{slowScript(t)}}
	sources := writeSources(t, "a.flac", "b.flac", "c.flac")

	o := newOrchestrator(t, cfg, dialogs, notifier, encoder, recorder, nil)
	result, err := o.Run(context.Background(), "mp3", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %v", result.Outcome)
	}
	if result.Outcome.ExitCode() != 3 {
		t.Fatalf("unexpected exit code %d", result.Outcome.ExitCode())
	}
	if len(result.Files) != 1 || result.Files[0].Status != StatusCancelled {
		t.Fatalf("expected only the cancelled file in results, got %+v", result.Files)
	}
	if call, ok := notifier.last(); !ok || call.kind != "cancelled" || call.a != 1 || call.b != 3 {
		t.Fatalf("expected cancellation notification for file 1 of 3, got %+v", call)
	}
	if len(recorder.batches) != 1 || recorder.batches[0].Outcome != history.OutcomeCancelled {
		t.Fatalf("unexpected history record: %+v", recorder.batches)
	}
}

func TestRunSkipsFileOnDeclinedWarning(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{warnAllow: false}
	encoder := &scriptedEncoder{bins: []string{"/bin/true"}}
	sources := writeSources(t, "lossy.mp3", "clean.flac")
	inspections := map[string]inspectResult{
		"lossy.mp3":  {duration: 10, codec: "mp3"},
		"clean.flac": {duration: 10, codec: "flac"},
	}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, encoder, nil, inspections)
	result, err := o.Run(context.Background(), "ogg", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Files[0].Status != StatusSkipped {
		t.Fatalf("declined warning must skip the file, got %v", result.Files[0].Status)
	}
	if result.Files[1].Status != StatusConverted {
		t.Fatalf("lossless source must convert without warning, got %v", result.Files[1].Status)
	}
	if dialogs.warnCalls != 1 {
		t.Fatalf("expected exactly one warning, got %d", dialogs.warnCalls)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("skips alone must not degrade the outcome, got %v", result.Outcome)
	}
}

func TestRunLossyWarningDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Conversion.LossyWarning = false
	dialogs := &fakeDialogs{warnAllow: false}
	encoder := &scriptedEncoder{bins: []string{"/bin/true"}}
	sources := writeSources(t, "lossy.mp3")
	inspections := map[string]inspectResult{"lossy.mp3": {duration: 10, codec: "mp3"}}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, encoder, nil, inspections)
	result, err := o.Run(context.Background(), "ogg", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if dialogs.warnCalls != 0 {
		t.Fatalf("warning disabled but shown %d times", dialogs.warnCalls)
	}
	if result.Files[0].Status != StatusConverted {
		t.Fatalf("expected conversion, got %v", result.Files[0].Status)
	}
}

func TestRunReportsMissingFiles(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{warnAllow: true}
	encoder := &scriptedEncoder{bins: []string{"/bin/true"}}
	existing := writeSources(t, "real.flac")
	sources := []string{filepath.Join(t.TempDir(), "ghost.flac"), existing[0]}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, encoder, nil, nil)
	result, err := o.Run(context.Background(), "mp3", sources)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Files[0].Status != StatusFailed || result.Files[0].Err == nil {
		t.Fatalf("missing file must fail with an error, got %+v", result.Files[0])
	}
	if result.Files[1].Status != StatusConverted {
		t.Fatalf("remaining file must still convert, got %v", result.Files[1].Status)
	}
	if result.Outcome != OutcomePartial {
		t.Fatalf("expected partial outcome, got %v", result.Outcome)
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, &scriptedEncoder{bins: []string{"/bin/true"}}, nil, nil)
	if _, err := o.Run(context.Background(), "wma", []string{"x"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	dialogs.mu.Lock()
	defer dialogs.mu.Unlock()
	if len(dialogs.errors) != 1 || !strings.Contains(dialogs.errors[0], "Unknown format") {
		t.Fatalf("expected error dialog, got %+v", dialogs.errors)
	}
}

func TestRunRejectsEmptyFileList(t *testing.T) {
	cfg := testConfig(t)
	dialogs := &fakeDialogs{}

	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, &scriptedEncoder{bins: []string{"/bin/true"}}, nil, nil)
	if _, err := o.Run(context.Background(), "mp3", nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

func TestRunRejectsConcurrentSession(t *testing.T) {
	cfg := testConfig(t)
	holder := flock.New(cfg.Paths.LockFile)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("prelock failed: %v locked=%v", err, locked)
	}
	defer func() { _ = holder.Unlock() }()

	dialogs := &fakeDialogs{}
	o := newOrchestrator(t, cfg, dialogs, &fakeNotifier{}, &scriptedEncoder{bins: []string{"/bin/true"}}, nil, nil)
	sources := writeSources(t, "a.flac")
	if _, err := o.Run(context.Background(), "mp3", sources); err == nil {
		t.Fatal("expected error while another session holds the lock")
	}
	dialogs.mu.Lock()
	defer dialogs.mu.Unlock()
	if len(dialogs.errors) != 1 || !strings.Contains(dialogs.errors[0], "already running") {
		t.Fatalf("expected busy dialog, got %+v", dialogs.errors)
	}
}
