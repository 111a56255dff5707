// Package rewrite drives the per-file pipeline: scan a Lua buffer for
// translatable spans, resolve each through the dictionary, and splice the
// translations back in by byte offset so exactly the matched occurrence is
// altered; a repeated literal elsewhere in the file is only touched when
// its own span comes up.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dst-tools/modlate/dictionary"
	"github.com/dst-tools/modlate/fragment"
	"github.com/dst-tools/modlate/translate"
)

// Result summarizes one file's rewrite.
type Result struct {
	// Changed is true when the file was rewritten on disk.
	Changed bool
	// Translated counts spans whose text was replaced.
	Translated int
	// Failed counts spans left untranslated after retry exhaustion.
	Failed int
}

// Rewriter rewrites files in place. It owns no state of its own; the
// dictionary cache carries everything that outlives a file.
type Rewriter struct {
	// Cache is the run's translation memory.
	Cache *dictionary.Cache
	// Translator resolves cache misses.
	Translator *translate.Translator
	// Source decides which spans need translation at all.
	Source fragment.ScriptSet
	// RelPath maps an absolute file path to its mod-relative form for
	// provenance tracking. Errors from it are fatal (path convention
	// violation).
	RelPath func(path string) (string, error)
	// Formatter post-processes changed buffers. Nil disables formatting.
	Formatter *Formatter
	// Logf receives warnings worth recording (retry exhaustion etc.).
	Logf func(format string, args ...any)
}

func (rw *Rewriter) logf(format string, args ...any) {
	if rw.Logf != nil {
		rw.Logf(format, args...)
	}
}

// RewriteFile translates every matching span of the file at path and
// writes the file back if anything changed. Errors wrapping
// dictionary.ErrFatal abort the run; everything else is the caller's
// per-file business.
func (rw *Rewriter) RewriteFile(ctx context.Context, path string) (Result, error) {
	var res Result

	raw, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(raw)

	relPath, err := rw.RelPath(path)
	if err != nil {
		return res, fmt.Errorf("%w: %v", dictionary.ErrFatal, err)
	}

	var out strings.Builder
	out.Grow(len(content))
	last := 0

	for _, span := range fragment.Scan(content) {
		repl, translated, err := rw.replacement(ctx, span, relPath)
		if err != nil {
			if errors.Is(err, translate.ErrExhausted) {
				rw.logf("giving up on fragment in %s: %v", relPath, err)
				res.Failed++
				continue
			}
			return res, err
		}
		if !translated {
			continue
		}

		start, end := outerBounds(span)
		out.WriteString(content[last:start])
		out.WriteString(repl)
		last = end
		res.Translated++
	}
	out.WriteString(content[last:])

	rewritten := out.String()
	if rewritten == content {
		return res, nil
	}

	if rw.Formatter != nil {
		rewritten = rw.Formatter.Format(ctx, path, rewritten, rw.logf)
	}

	if err := os.WriteFile(path, []byte(rewritten), 0644); err != nil {
		return res, fmt.Errorf("writing %s: %w", path, err)
	}
	res.Changed = true
	return res, nil
}

// replacement resolves one span. translated is false when the span is not
// translatable and must be left exactly as scanned.
func (rw *Rewriter) replacement(ctx context.Context, span fragment.Span, relPath string) (repl string, translated bool, err error) {
	if !fragment.Translatable(span.Text, span.Kind, rw.Source) {
		return "", false, nil
	}

	dec := fragment.SplitDecoration(span.Text, span.Kind)

	role := dictionary.RoleQuoted
	if span.Kind == fragment.Comment {
		role = dictionary.RoleComment
	}

	core, err := rw.Cache.GetOrTranslate(ctx, dec.Core, role, relPath, rw.Translator.Translate)
	if err != nil {
		return "", false, err
	}

	if span.Kind == fragment.Comment {
		return dec.Reassemble(core), true, nil
	}

	// Quoted spans: re-escape quote characters the translator may have
	// introduced, and normalize single quotes to double quotes.
	return `"` + dec.Reassemble(escapeQuotes(core)) + `"`, true, nil
}

// outerBounds widens a quoted span to cover its delimiters so the
// replacement swaps the quotes too (single-quote normalization).
func outerBounds(span fragment.Span) (start, end int) {
	if span.Kind == fragment.Comment {
		return span.Start, span.End
	}
	return span.Start - 1, span.End + 1
}

// escapeQuotes backslash-escapes every unescaped double quote and
// apostrophe. A quote is already escaped when preceded by an odd number of
// backslashes.
func escapeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	backslashes := 0
	for _, r := range s {
		switch r {
		case '\\':
			backslashes++
		case '"', '\'':
			if backslashes%2 == 0 {
				b.WriteByte('\\')
			}
			backslashes = 0
		default:
			backslashes = 0
		}
		b.WriteRune(r)
	}
	return b.String()
}
