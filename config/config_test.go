package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modlate.yaml")
	content := `
spreadsheet: 1AbCdEf
credentials: /keys/sa.json
sourceLang: zh-TW
maxAttempts: 5
retryDelay: 250ms
formatter:
  command: stylua
  args: ["--indent-type", "Spaces"]
  timeout: 10s
scripts:
  source: [Han]
  skip: [Hiragana, Katakana]
errorLog: /tmp/errors.log
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Spreadsheet != "1AbCdEf" {
		t.Fatalf("Spreadsheet = %q", cfg.Spreadsheet)
	}
	if cfg.Credentials != "/keys/sa.json" {
		t.Fatalf("Credentials = %q", cfg.Credentials)
	}
	if cfg.SourceLang != "zh-TW" {
		t.Fatalf("SourceLang = %q", cfg.SourceLang)
	}
	// Unset keys keep their defaults.
	if cfg.DestLang != "en" {
		t.Fatalf("DestLang = %q, want default", cfg.DestLang)
	}
	if cfg.Snapshot != "dictionary-backup.yaml" {
		t.Fatalf("Snapshot = %q, want default", cfg.Snapshot)
	}
	if cfg.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay.Std() != 250*time.Millisecond {
		t.Fatalf("RetryDelay = %v", cfg.RetryDelay.Std())
	}
	if cfg.Formatter.Timeout.Std() != 10*time.Second {
		t.Fatalf("Formatter.Timeout = %v", cfg.Formatter.Timeout.Std())
	}
	if want := []string{"--indent-type", "Spaces"}; !reflect.DeepEqual(cfg.Formatter.Args, want) {
		t.Fatalf("Formatter.Args = %v", cfg.Formatter.Args)
	}
	if want := []string{"Hiragana", "Katakana"}; !reflect.DeepEqual(cfg.Scripts.Skip, want) {
		t.Fatalf("Scripts.Skip = %v", cfg.Scripts.Skip)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modlate.yaml")
	if err := os.WriteFile(path, []byte("retryDelay: banana\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted an invalid duration")
	}
}

func TestDiscoverExplicitWins(t *testing.T) {
	t.Parallel()

	if got := Discover("/somewhere/custom.yaml"); got != "/somewhere/custom.yaml" {
		t.Fatalf("Discover() = %q", got)
	}
}

func TestDiscoverXDGFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := Discover(""); got != "" {
		t.Fatalf("Discover() = %q, want empty with no file anywhere", got)
	}

	p := filepath.Join(dir, "modlate", FileName)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := Discover(""); got != p {
		t.Fatalf("Discover() = %q, want %q", got, p)
	}
}
