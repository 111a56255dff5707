// Package config loads modlate.yaml, the run configuration covering the
// spreadsheet, the language pair, the destination mods directory and the
// formatter. Every field has a sensible default so the file is optional;
// command-line flags override whatever is loaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name looked up in the working
// directory and the XDG config directory.
const FileName = "modlate.yaml"

// Duration parses from YAML as a Go duration string ("1s", "500ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Formatter configures the external code formatter.
type Formatter struct {
	// Command is the formatter binary. Empty disables formatting.
	Command string `yaml:"command"`
	// Args are placed before the file path.
	Args []string `yaml:"args,omitempty"`
	// Timeout per invocation, e.g. "30s".
	Timeout Duration `yaml:"timeout,omitempty"`
}

// Scripts names the Unicode script sets driving fragment matching.
type Scripts struct {
	// Source scripts mark text that needs translation.
	Source []string `yaml:"source,omitempty"`
	// Skip scripts mark text deliberately passed through untranslated.
	Skip []string `yaml:"skip,omitempty"`
}

// Config is the full modlate.yaml shape.
type Config struct {
	// Spreadsheet is the Google Sheets spreadsheet ID of the dictionary.
	Spreadsheet string `yaml:"spreadsheet"`
	// Credentials is the service-account key file path.
	Credentials string `yaml:"credentials"`

	// SourceLang / DestLang are the run's fixed language pair.
	SourceLang string `yaml:"sourceLang"`
	DestLang   string `yaml:"destLang"`

	// ModsDir is where translated clones are created. Default: the input
	// folder's parent.
	ModsDir string `yaml:"modsDir,omitempty"`

	// MaxAttempts bounds translation retries per fragment.
	MaxAttempts int `yaml:"maxAttempts,omitempty"`
	// RetryDelay is the pause between translation attempts.
	RetryDelay Duration `yaml:"retryDelay,omitempty"`

	Formatter Formatter `yaml:"formatter,omitempty"`
	Scripts   Scripts   `yaml:"scripts,omitempty"`

	// ErrorLog is the run's error log path.
	ErrorLog string `yaml:"errorLog,omitempty"`
	// Snapshot is the local dictionary fallback path.
	Snapshot string `yaml:"snapshot,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Credentials: "translate-mods.json",
		SourceLang:  "zh-CN",
		DestLang:    "en",
		MaxAttempts: 100,
		RetryDelay:  Duration(time.Second),
		Formatter:   Formatter{Command: "stylua"},
		ErrorLog:    "modlate_errors.log",
		Snapshot:    "dictionary-backup.yaml",
	}
}

// Load reads the config file at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds the effective config file: an explicit path wins, then
// ./modlate.yaml, then $XDG_CONFIG_HOME/modlate/modlate.yaml. Returns the
// empty string when none exists.
func Discover(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	p := filepath.Join(dir, "modlate", FileName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
