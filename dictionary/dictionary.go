// Package dictionary holds the process-wide translation memory: one record
// per distinct source fragment, loaded from the persistent store at run
// start, accumulated during the run, flushed at run end.
//
// The core guarantee lives in GetOrTranslate: a fragment whose record
// already carries a translation is never re-submitted to the backend, so
// across every file of every run each distinct fragment is translated at
// most once.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dst-tools/modlate/placeholder"
	"github.com/dst-tools/modlate/retry"
)

// Role records where a fragment has been seen: in comments, in quoted
// strings, or both.
type Role uint8

const (
	RoleComment Role = 1 << iota
	RoleQuoted
)

// Record is the translation memory entry for one distinct fragment.
// Translated is set at most once: the first successful translation wins
// and later sightings reuse it.
type Record struct {
	Original   string
	Translated string
	Roles      Role
	// FoundIn lists every mod-relative file path the fragment was seen
	// in, sorted and deduplicated.
	FoundIn []string
}

// addPath inserts a path into FoundIn, keeping it sorted and unique.
func (r *Record) addPath(path string) {
	i := sort.SearchStrings(r.FoundIn, path)
	if i < len(r.FoundIn) && r.FoundIn[i] == path {
		return
	}
	r.FoundIn = append(r.FoundIn, "")
	copy(r.FoundIn[i+1:], r.FoundIn[i:])
	r.FoundIn[i] = path
}

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store is the persistent dictionary backend. Load returns all records
// plus the ignore-rule list; Save replaces the stored records with the
// given snapshot.
type Store interface {
	Load(ctx context.Context) (records []*Record, ignore []string, err error)
	Save(ctx context.Context, records []*Record) error
}

// TranslateFunc resolves a fragment to its translation via the external
// backend.
type TranslateFunc func(ctx context.Context, text string) (string, error)

// ErrFatal wraps errors that must abort the whole run instead of being
// absorbed at the file level.
var ErrFatal = errors.New("fatal dictionary error")

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

// Cache is the in-memory translation memory. It is not safe for concurrent
// use; the pipeline is strictly sequential.
type Cache struct {
	records map[string]*Record

	// SkipScript, when set, marks fragments that are deliberately passed
	// through untranslated (identity-mapped) and reported at end of run.
	SkipScript func(text string) bool

	skipped []string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]*Record)}
}

// Len returns the number of distinct fragments known.
func (c *Cache) Len() int { return len(c.records) }

// Lookup returns the record for a fragment, or nil.
func (c *Cache) Lookup(text string) *Record {
	return c.records[text]
}

// Skipped returns the fragments identity-mapped by the skip rule during
// this run, in first-seen order.
func (c *Cache) Skipped() []string { return c.skipped }

// Sighting records that a fragment was observed in a file with a given
// role, creating the record on first sight. Roles and provenance
// accumulate; nothing is ever removed.
func (c *Cache) Sighting(text string, role Role, relPath string) *Record {
	rec := c.records[text]
	if rec == nil {
		rec = &Record{Original: text}
		c.records[text] = rec
	}
	rec.Roles |= role
	if relPath != "" {
		rec.addPath(relPath)
	}
	return rec
}

// GetOrTranslate returns the translation for a fragment, consulting the
// cache first.
//
// Reuse path: the cached translation is re-validated for placeholder
// consistency and returned without any backend call. Miss path: the skip
// rule is checked, then translate is invoked once, the result validated
// and stored. A placeholder mismatch on either path wraps ErrFatal since
// a broken format string must stop the run, not ship.
func (c *Cache) GetOrTranslate(ctx context.Context, text string, role Role, relPath string, translate TranslateFunc) (string, error) {
	rec := c.Sighting(text, role, relPath)

	if rec.Translated != "" {
		if err := placeholder.Verify(text, rec.Translated); err != nil {
			return "", fmt.Errorf("%w: cached translation: %w", ErrFatal, err)
		}
		return rec.Translated, nil
	}

	if c.SkipScript != nil && c.SkipScript(text) {
		rec.Translated = text
		c.skipped = append(c.skipped, text)
		return text, nil
	}

	translated, err := translate(ctx, text)
	if err != nil {
		return "", err
	}
	if err := placeholder.Verify(text, translated); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFatal, err)
	}
	rec.Translated = translated
	return translated, nil
}

// Records returns all records sorted by original text, the order used for
// persistence so diffs of the stored sheet stay readable.
func (c *Cache) Records() []*Record {
	recs := make([]*Record, 0, len(c.records))
	for _, r := range c.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Original < recs[j].Original })
	return recs
}

// ---------------------------------------------------------------------------
// Load / save lifecycle
// ---------------------------------------------------------------------------

// LoadFrom populates the cache from the store. Loading is best-effort: on
// failure the error is returned for logging and the run continues with
// whatever was already cached (normally nothing).
func (c *Cache) LoadFrom(ctx context.Context, store Store) (ignore IgnoreList, err error) {
	records, rules, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Original == "" {
			continue
		}
		sort.Strings(rec.FoundIn)
		c.records[rec.Original] = rec
	}
	return IgnoreList(rules), nil
}

// savePolicy bounds store writes: a handful of attempts with exponential
// backoff, matching the transient-failure profile of a remote spreadsheet.
var savePolicy = retry.Policy{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
	Backoff:     retry.Exponential,
}

// SaveTo writes the cache snapshot to the store, retrying transient
// failures. When every attempt fails the snapshot is written to
// fallbackPath instead so a long run's translations are never lost; the
// store error is still returned for logging.
func (c *Cache) SaveTo(ctx context.Context, store Store, fallbackPath string) error {
	records := c.Records()

	err := retry.Do(ctx, savePolicy, func() error {
		return store.Save(ctx, records)
	})
	if err == nil {
		return nil
	}

	if ferr := c.WriteSnapshot(fallbackPath); ferr != nil {
		return fmt.Errorf("saving dictionary: %w (snapshot fallback also failed: %v)", err, ferr)
	}
	return fmt.Errorf("saving dictionary: %w (snapshot written to %s)", err, fallbackPath)
}

// ---------------------------------------------------------------------------
// Local snapshot fallback
// ---------------------------------------------------------------------------

// snapshotRecord is the YAML shape of one dictionary entry.
type snapshotRecord struct {
	Translated string   `yaml:"translated"`
	IsComment  bool     `yaml:"isComment,omitempty"`
	IsQuotes   bool     `yaml:"isQuotes,omitempty"`
	FoundIn    []string `yaml:"foundIn,omitempty"`
}

// WriteSnapshot writes the cache as a UTF-8 YAML file keyed by original
// fragment text.
func (c *Cache) WriteSnapshot(path string) error {
	snap := make(map[string]snapshotRecord, len(c.records))
	for text, rec := range c.records {
		snap[text] = snapshotRecord{
			Translated: rec.Translated,
			IsComment:  rec.Roles&RoleComment != 0,
			IsQuotes:   rec.Roles&RoleQuoted != 0,
			FoundIn:    rec.FoundIn,
		}
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot file back into a record list, so a failed
// run's local backup can be pushed to the store later.
func ReadSnapshot(path string) ([]*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap map[string]snapshotRecord
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	records := make([]*Record, 0, len(snap))
	for text, sr := range snap {
		var roles Role
		if sr.IsComment {
			roles |= RoleComment
		}
		if sr.IsQuotes {
			roles |= RoleQuoted
		}
		sort.Strings(sr.FoundIn)
		records = append(records, &Record{
			Original:   text,
			Translated: sr.Translated,
			Roles:      roles,
			FoundIn:    sr.FoundIn,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Original < records[j].Original })
	return records, nil
}

// ---------------------------------------------------------------------------
// Ignore rules
// ---------------------------------------------------------------------------

// IgnoreList holds path-fragment rules from the store's second table. A
// file is skipped when any rule is a substring of its normalized path.
type IgnoreList []string

// Matches returns the rules matching the given path, if any. The path is
// slash-normalized and the run-folder marker is stripped before matching
// so rules written against the source tree also hit the translated copy.
func (il IgnoreList) Matches(path, marker string) []string {
	norm := filepath.ToSlash(path)
	if marker != "" {
		norm = strings.ReplaceAll(norm, marker, "")
	}

	var hits []string
	for _, rule := range il {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if strings.Contains(norm, filepath.ToSlash(rule)) {
			hits = append(hits, rule)
		}
	}
	return hits
}
