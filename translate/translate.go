// Package translate wraps the external translation backend with the run's
// language pair, a bounded retry policy, and the post-processing the mod
// sources need (capitalized result, normalized escape artifacts).
//
// The default backend is the free Google Translate web endpoint via
// gtranslate; anything implementing Backend can stand in, which is how the
// tests run without the network.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bregydoc/gtranslate"
	"golang.org/x/text/language"

	"github.com/dst-tools/modlate/fragment"
	"github.com/dst-tools/modlate/retry"
)

// Backend is the external translation service boundary.
type Backend interface {
	Translate(ctx context.Context, text, source, dest string) (string, error)
}

// ErrExhausted marks a fragment whose translation failed on every retry
// attempt. The caller leaves the original text in place and moves on;
// nothing about this error is fatal.
var ErrExhausted = errors.New("translation attempts exhausted")

// ---------------------------------------------------------------------------
// Google web backend
// ---------------------------------------------------------------------------

// GoogleBackend translates through the public Google Translate web
// endpoint (no API key).
type GoogleBackend struct{}

// Translate implements Backend.
func (GoogleBackend) Translate(_ context.Context, text, source, dest string) (string, error) {
	return gtranslate.TranslateWithParams(text, gtranslate.TranslationParams{
		From: source,
		To:   dest,
	})
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Options configures a Translator.
type Options struct {
	// Source and Dest are BCP 47 language codes (e.g. "zh-CN", "en").
	Source string
	Dest   string
	// MaxAttempts bounds retries per fragment. Default 100.
	MaxAttempts int
	// Delay is the pause between attempts. Default 1s.
	Delay time.Duration
	// Skip marks fragments that are passed through untranslated.
	// Default: the kana script blocks.
	Skip fragment.ScriptSet
	// OnRetry observes each failed attempt, for logging.
	OnRetry func(attempt int, err error)
}

// Translator resolves fragments against the backend with the run's fixed
// language pair.
type Translator struct {
	backend Backend
	source  string
	dest    string
	policy  retry.Policy
	skip    fragment.ScriptSet
}

// New validates the language pair and builds a Translator.
func New(backend Backend, opts Options) (*Translator, error) {
	src, err := language.Parse(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("source language %q: %w", opts.Source, err)
	}
	dst, err := language.Parse(opts.Dest)
	if err != nil {
		return nil, fmt.Errorf("destination language %q: %w", opts.Dest, err)
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 100
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = time.Second
	}
	skip := opts.Skip
	if skip == nil {
		skip = fragment.DefaultSkipScripts()
	}

	return &Translator{
		backend: backend,
		source:  src.String(),
		dest:    dst.String(),
		policy: retry.Policy{
			MaxAttempts: attempts,
			Delay:       delay,
			Backoff:     retry.Fixed,
			OnRetry:     opts.OnRetry,
		},
		skip: skip,
	}, nil
}

// Languages returns the run's source and destination codes.
func (t *Translator) Languages() (source, dest string) {
	return t.source, t.dest
}

// ShouldSkip reports whether the fragment is in a script deliberately left
// untranslated.
func (t *Translator) ShouldSkip(text string) bool {
	return t.skip.Contains(text)
}

// Translate resolves one fragment. Backend failures are retried under the
// policy; when the policy is exhausted the last error is wrapped in
// ErrExhausted and no text is returned.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	var out string
	err := retry.Do(ctx, t.policy, func() error {
		var terr error
		out, terr = t.backend.Translate(ctx, text, t.source, t.dest)
		return terr
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	return postProcess(out), nil
}

// postProcess capitalizes the first letter and collapses the backend's
// `\ n` artifact (a space slipped into an escaped newline) back to `\n`.
func postProcess(s string) string {
	s = strings.ReplaceAll(s, `\ n`, `\n`)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
