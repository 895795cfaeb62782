package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quaver/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("missing file must report exists=false")
	}
	if path == "" {
		t.Fatal("resolved path must be reported even when the file is absent")
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.Kdialog != "kdialog" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if !cfg.Conversion.LossyWarning {
		t.Fatal("lossy warning must default to enabled")
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
quality_file = "~/quality.toml"

[tools]
ffmpeg = "/opt/ffmpeg/bin/ffmpeg"

[conversion]
poll_interval_ms = 250

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if cfg.Paths.QualityFile != filepath.Join(home, "quality.toml") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.QualityFile)
	}
	if cfg.Tools.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Tools.FFmpeg)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestLoadRejectsExcessivePollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[conversion]\npoll_interval_ms = 60000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for excessive poll interval")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QualityFile = filepath.Join(dir, "cfg", "quality.toml")
	cfg.Paths.HistoryDB = filepath.Join(dir, "state", "history.db")
	cfg.Paths.LockFile = filepath.Join(dir, "state", "convert.lock")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, want := range []string{filepath.Join(dir, "cfg"), filepath.Join(dir, "state"), filepath.Join(dir, "logs")} {
		info, err := os.Stat(want)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", want, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[conversion]") {
		t.Fatalf("sample missing conversion section:\n%s", data)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
}
