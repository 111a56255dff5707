package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func formatterLogf(logged *[]string) func(string, ...any) {
	return func(format string, _ ...any) {
		*logged = append(*logged, format)
	}
}

func TestFormatterMissingBinary(t *testing.T) {
	t.Parallel()

	f := &Formatter{Command: "definitely-not-a-real-formatter-binary"}
	var logged []string

	got := f.Format(context.Background(), "x.lua", "content", formatterLogf(&logged))
	if got != "content" {
		t.Fatalf("Format() = %q, want input unchanged", got)
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "not found") {
		t.Fatalf("logged = %v", logged)
	}
}

func TestFormatterRewritesInPlace(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}

	// sh receives the temp file as $0 of the -c script.
	f := &Formatter{Command: "sh", Args: []string{"-c", `printf 'formatted\n' > "$0"`}}
	path := filepath.Join(t.TempDir(), "modmain.lua")

	var logged []string
	got := f.Format(context.Background(), path, "original\n", formatterLogf(&logged))
	if got != "formatted\n" {
		t.Fatalf("Format() = %q, want %q", got, "formatted\n")
	}
	if len(logged) != 0 {
		t.Fatalf("unexpected log entries: %v", logged)
	}
	if _, err := os.Stat(path + ".fmt.tmp.lua"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestFormatterFailureKeepsInput(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}

	f := &Formatter{Command: "sh", Args: []string{"-c", "echo syntax error >&2; exit 1"}}
	path := filepath.Join(t.TempDir(), "modmain.lua")

	var logged []string
	got := f.Format(context.Background(), path, "original\n", formatterLogf(&logged))
	if got != "original\n" {
		t.Fatalf("Format() = %q, want input unchanged", got)
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "formatter failed") {
		t.Fatalf("logged = %v", logged)
	}
}

func TestFormatterEmptyCommandDisabled(t *testing.T) {
	t.Parallel()

	f := &Formatter{}
	got := f.Format(context.Background(), "x.lua", "content", func(string, ...any) {
		t.Fatal("logf called")
	})
	if got != "content" {
		t.Fatalf("Format() = %q", got)
	}
}
