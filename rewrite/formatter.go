package rewrite

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Formatter runs an external code formatter (stylua by default) over a
// translated buffer. Formatting is strictly best-effort: a missing binary,
// a non-zero exit or a timeout all fall back to the unformatted buffer.
type Formatter struct {
	// Command is the formatter binary name or path.
	Command string
	// Args are extra arguments placed before the file path.
	Args []string
	// Timeout bounds one invocation. Default 30s.
	Timeout time.Duration
}

// DefaultFormatter formats Lua with stylua from PATH.
func DefaultFormatter() *Formatter {
	return &Formatter{Command: "stylua"}
}

func (f *Formatter) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return 30 * time.Second
}

// Format writes content to a temporary sibling of path, runs the formatter
// on it in place, and returns the formatted text. On any failure the input
// content is returned unchanged and the failure is reported via logf.
func (f *Formatter) Format(ctx context.Context, path, content string, logf func(format string, args ...any)) string {
	if f.Command == "" {
		return content
	}

	bin, err := exec.LookPath(f.Command)
	if err != nil {
		logf("formatter %s not found, keeping unformatted output", f.Command)
		return content
	}

	// Same directory and extension as the target so the formatter picks
	// the right dialect.
	tmp := path + ".fmt.tmp.lua"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		logf("formatter temp file: %v", err)
		return content
	}
	defer os.Remove(tmp)

	cctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	args := append(append([]string{}, f.Args...), tmp)
	cmd := exec.CommandContext(cctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		logf("formatter failed for %s: %v (%s)", path, err, firstLine(string(out)))
		return content
	}

	formatted, err := os.ReadFile(tmp)
	if err != nil {
		logf("reading formatted output: %v", err)
		return content
	}
	return string(formatted)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	if s == "" {
		return "no output"
	}
	return fmt.Sprint(s)
}
