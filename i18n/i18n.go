// Package i18n localizes modlate's own user-facing strings via gotext.
// The compiled catalogs are embedded in the binary; the UI language is
// auto-detected from the environment the way GNU gettext does it, so the
// tool speaks Chinese to the mod authors whose sources it translates.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "modlate"

var locale *gotext.Locale

// Init loads the catalog for lang, or for the detected environment
// language when lang is empty. Call once at startup.
func Init(lang string) {
	if lang == "" {
		lang = detect()
	}
	locale = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// T translates a UI string, falling back to msgid untranslated.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	// Call through a method value: msgid is a catalog lookup key, not a
	// format string, which vet's printf check would otherwise flag.
	get := locale.Get
	return get(msgid)
}

// N translates with plural forms.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// detect follows the GNU gettext variable order.
func detect() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if i := strings.IndexByte(val, '.'); i >= 0 {
			val = val[:i]
		}
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
