// Package fragment locates translatable spans (line comments, double-quoted
// and single-quoted string literals) in Lua source text.
//
// Matching is lexical, not syntactic: the scanner is a small explicit-state
// machine, not a Lua parser. It knows exactly enough about quoting and
// escaping to keep comment and string contexts apart: a `--` inside a
// string does not open a comment, a quote inside a comment does not open a
// string, and an escaped quote or backslash does not terminate a literal.
// Spans never cross a newline.
package fragment

import (
	"strings"
	"unicode"
)

// Kind classifies a matched span.
type Kind int

const (
	// Comment is a `--` line comment (text includes the opener).
	Comment Kind = iota
	// DoubleQuoted is the inner text of a "..." literal.
	DoubleQuoted
	// SingleQuoted is the inner text of a '...' literal.
	SingleQuoted
)

// String returns a short label for logging.
func (k Kind) String() string {
	switch k {
	case Comment:
		return "comment"
	case DoubleQuoted:
		return "double quoted"
	case SingleQuoted:
		return "single quoted"
	}
	return "unknown"
}

// Span is one matched region of the scanned buffer.
//
// For quoted kinds Start/End delimit the inner text (quotes excluded).
// For comments they delimit the whole comment including the `--` opener.
type Span struct {
	Start int
	End   int
	Kind  Kind
	Text  string
}

// scanner states
const (
	stNormal = iota
	stComment
	stDouble
	stDoubleEscape
	stSingle
	stSingleEscape
	stDash // saw one '-' in normal state
)

// Scan walks the buffer once and returns all spans in buffer order.
//
// An unterminated literal at end of line is dropped: the would-be span is
// discarded and scanning resumes in normal state after the newline, which
// matches the "spans never cross a newline" rule.
func Scan(content string) []Span {
	var spans []Span
	state := stNormal
	start := 0 // start of the current span's interesting region

	for i, r := range content {
		switch state {
		case stNormal:
			switch r {
			case '-':
				state = stDash
				start = i
			case '"':
				state = stDouble
				start = i + 1
			case '\'':
				state = stSingle
				start = i + 1
			}

		case stDash:
			switch r {
			case '-':
				state = stComment
			case '"':
				state = stDouble
				start = i + 1
			case '\'':
				state = stSingle
				start = i + 1
			default:
				state = stNormal
			}

		case stComment:
			if r == '\n' {
				spans = append(spans, Span{Start: start, End: i, Kind: Comment, Text: content[start:i]})
				state = stNormal
			}

		case stDouble:
			switch r {
			case '\\':
				state = stDoubleEscape
			case '"':
				spans = append(spans, Span{Start: start, End: i, Kind: DoubleQuoted, Text: content[start:i]})
				state = stNormal
			case '\n':
				state = stNormal // unterminated, drop
			}

		case stDoubleEscape:
			if r == '\n' {
				state = stNormal
			} else {
				state = stDouble
			}

		case stSingle:
			switch r {
			case '\\':
				state = stSingleEscape
			case '\'':
				spans = append(spans, Span{Start: start, End: i, Kind: SingleQuoted, Text: content[start:i]})
				state = stNormal
			case '\n':
				state = stNormal
			}

		case stSingleEscape:
			if r == '\n' {
				state = stNormal
			} else {
				state = stSingle
			}
		}
	}

	// A comment running to EOF without a trailing newline is still a span.
	if state == stComment {
		spans = append(spans, Span{Start: start, End: len(content), Kind: Comment, Text: content[start:]})
	}

	return spans
}

// ---------------------------------------------------------------------------
// Script sets
// ---------------------------------------------------------------------------

// ScriptSet is a named group of Unicode script tables. Membership is
// per-rune: a string "contains" the set if any rune belongs to any table.
type ScriptSet []*unicode.RangeTable

// Contains reports whether any rune of s belongs to the set.
func (ss ScriptSet) Contains(s string) bool {
	for _, r := range s {
		for _, tab := range ss {
			if unicode.Is(tab, r) {
				return true
			}
		}
	}
	return false
}

// ScriptsByName resolves script names (as in the unicode.Scripts table,
// e.g. "Han", "Hiragana") to a ScriptSet. Unknown names are ignored so a
// config typo degrades to a narrower set instead of failing the run.
func ScriptsByName(names []string) ScriptSet {
	var ss ScriptSet
	for _, n := range names {
		if tab, ok := unicode.Scripts[n]; ok {
			ss = append(ss, tab)
		}
	}
	return ss
}

// DefaultSourceScripts matches text that needs translation: CJK ideographs
// plus the Japanese kana blocks.
func DefaultSourceScripts() ScriptSet {
	return ScriptSet{unicode.Han, unicode.Hiragana, unicode.Katakana}
}

// DefaultSkipScripts matches text passed through untranslated: the kana
// blocks mark deliberately-Japanese fragments in otherwise Chinese sources.
func DefaultSkipScripts() ScriptSet {
	return ScriptSet{unicode.Hiragana, unicode.Katakana}
}

// ---------------------------------------------------------------------------
// Decoration trimming
// ---------------------------------------------------------------------------

// Cutsets for comment decoration. Leading strips the `--` opener plus any
// `[[`/`=` banner characters; trailing strips the mirror image.
const (
	commentLeadCutset  = "-[= .\t"
	commentTrailCutset = "]-= .\t"
)

// Decorated is a span's text split into the translatable core and the
// non-semantic leading/trailing decoration that must be reattached
// byte-for-byte around the translated core.
type Decorated struct {
	Leading  string
	Core     string
	Trailing string
}

// Reassemble glues decoration back around a (possibly translated) core.
func (d Decorated) Reassemble(core string) string {
	return d.Leading + core + d.Trailing
}

// SplitDecoration separates decoration from the core of a span's text.
// Comment spans shed dashes, brackets, equals signs, dots, tabs and spaces
// at both ends; quoted spans shed surrounding whitespace only.
func SplitDecoration(text string, kind Kind) Decorated {
	var afterLead, core string
	if kind == Comment {
		afterLead = strings.TrimLeft(text, commentLeadCutset)
		core = strings.TrimRight(afterLead, commentTrailCutset)
	} else {
		afterLead = strings.TrimLeftFunc(text, unicode.IsSpace)
		core = strings.TrimRightFunc(afterLead, unicode.IsSpace)
	}
	return Decorated{
		Leading:  text[:len(text)-len(afterLead)],
		Core:     core,
		Trailing: afterLead[len(core):],
	}
}

// Translatable reports whether a span's text is worth sending to the
// translator: it must contain at least one rune from the source script set
// and must not be empty once decoration is stripped.
func Translatable(text string, kind Kind, source ScriptSet) bool {
	if !source.Contains(text) {
		return false
	}
	return SplitDecoration(text, kind).Core != ""
}
