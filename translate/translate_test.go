package translate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedBackend struct {
	failures int
	result   string
	err      error

	calls    int
	lastText string
	lastSrc  string
	lastDest string
}

func (b *scriptedBackend) Translate(_ context.Context, text, source, dest string) (string, error) {
	b.calls++
	b.lastText, b.lastSrc, b.lastDest = text, source, dest
	if b.calls <= b.failures {
		if b.err != nil {
			return "", b.err
		}
		return "", errors.New("transient")
	}
	return b.result, nil
}

func newTestTranslator(t *testing.T, backend Backend, opts Options) *Translator {
	t.Helper()
	if opts.Source == "" {
		opts.Source = "zh-CN"
	}
	if opts.Dest == "" {
		opts.Dest = "en"
	}
	if opts.Delay == 0 {
		opts.Delay = time.Millisecond
	}
	tr, err := New(backend, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tr
}

func TestNewRejectsBadLanguage(t *testing.T) {
	t.Parallel()

	if _, err := New(&scriptedBackend{}, Options{Source: "not a tag", Dest: "en"}); err == nil {
		t.Fatal("New() accepted an invalid source language")
	}
	if _, err := New(&scriptedBackend{}, Options{Source: "zh-CN", Dest: "!!"}); err == nil {
		t.Fatal("New() accepted an invalid destination language")
	}
}

func TestTranslatePassesLanguagePair(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{result: "hello"}
	tr := newTestTranslator(t, backend, Options{})

	got, err := tr.Translate(context.Background(), "你好")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Hello" {
		t.Fatalf("Translate() = %q, want %q", got, "Hello")
	}
	if backend.lastSrc != "zh-CN" || backend.lastDest != "en" {
		t.Fatalf("backend saw pair %s -> %s", backend.lastSrc, backend.lastDest)
	}
}

func TestTranslateRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{failures: 2, result: "done"}
	tr := newTestTranslator(t, backend, Options{MaxAttempts: 5})

	got, err := tr.Translate(context.Background(), "完成")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Done" {
		t.Fatalf("Translate() = %q", got)
	}
	if backend.calls != 3 {
		t.Fatalf("backend called %d times, want 3", backend.calls)
	}
}

func TestTranslateExhaustion(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{failures: 100, err: errors.New("429")}
	tr := newTestTranslator(t, backend, Options{MaxAttempts: 4})

	var seen []int
	tr.policy.OnRetry = func(attempt int, _ error) { seen = append(seen, attempt) }

	got, err := tr.Translate(context.Background(), "你好")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Translate() error = %v, want ErrExhausted", err)
	}
	if got != "" {
		t.Fatalf("Translate() returned text %q on exhaustion", got)
	}
	if backend.calls != 4 {
		t.Fatalf("backend called %d times, want 4", backend.calls)
	}
	if len(seen) != 4 {
		t.Fatalf("observer saw %d attempts, want 4", len(seen))
	}
}

func TestTranslateCancellationIsNotExhaustion(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	backend := &scriptedBackend{failures: 100}
	tr := newTestTranslator(t, backend, Options{MaxAttempts: 10, Delay: time.Minute})

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Translate(ctx, "你好")
	if err == nil {
		t.Fatal("Translate() expected error after cancel")
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("cancellation reported as exhaustion: %v", err)
	}
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()

	tr := newTestTranslator(t, &scriptedBackend{}, Options{})

	tests := []struct {
		text string
		want bool
	}{
		{"ひらがな", true},
		{"カタカナ", true},
		{"你好", false},
		{"hello", false},
	}
	for _, tc := range tests {
		if got := tr.ShouldSkip(tc.text); got != tc.want {
			t.Fatalf("ShouldSkip(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestPostProcess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "capitalizes first letter", input: "hello there", want: "Hello there"},
		{name: "escaped newline artifact", input: `line one\ nline two`, want: `Line one\nline two`},
		{name: "already capitalized", input: "Hello", want: "Hello"},
		{name: "non letter first", input: "%s done", want: "%s done"},
		{name: "empty", input: "", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := postProcess(tc.input); got != tc.want {
				t.Fatalf("postProcess(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
