// Package placeholder verifies that printf-style format specifiers survive
// translation unchanged. A translation that drops, reorders or rewrites a
// specifier produces a broken format string at mod runtime, so a mismatch
// is a hard failure surfaced to the caller.
package placeholder

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMismatch is wrapped by every verification failure. Callers decide how
// fatal a mismatch is with errors.Is.
var ErrMismatch = errors.New("format specifier mismatch")

// specifierRe matches a placeholder token: a percent sign, optional width
// digits, optional precision, and a single conversion character. `%%` is a
// token too so a literal percent is tracked like any other specifier.
var specifierRe = regexp.MustCompile(`%(?:\d+)?(?:\.\d+)?[diouxXeEfFgGcrs%]`)

// Extract returns the ordered placeholder tokens of s.
func Extract(s string) []string {
	return specifierRe.FindAllString(s, -1)
}

// Verify checks that translated carries the same ordered placeholder
// sequence as original. When the original has no placeholders no check is
// performed at all. Positions in errors are 1-indexed.
func Verify(original, translated string) error {
	want := Extract(original)
	if len(want) == 0 {
		return nil
	}

	got := Extract(translated)
	if len(want) != len(got) {
		return fmt.Errorf("%w: count differs (%d in original, %d in translation)\noriginal: %s\ntranslated: %s",
			ErrMismatch, len(want), len(got), original, translated)
	}

	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w at position %d: %q became %q",
				ErrMismatch, i+1, want[i], got[i])
		}
	}

	return nil
}
