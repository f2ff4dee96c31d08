// Package i18n holds the English and German strings of the command titles and
// the user interfaces.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

var (
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
)

var catalog = map[language.Tag]map[string]string{
	language.English: {
		"flight.title":        "Camera flights",
		"flight.playTooltip":  "Play",
		"flight.pauseTooltip": "Pause",
		"flight.stopTooltip":  "Stop",
		"flight.zoom":         "Zoom to extent",

		"state.idle":      "no session",
		"state.stopped":   "stopped",
		"state.paused":    "paused",
		"state.playing":   "playing",
		"state.destroyed": "ended",

		"tui.language":  "Language: %s",
		"tui.error":     "%s: %v",
		"tui.view":      "View on %s %s, %.1f km",
		"tui.autoplay":  "Resuming %s",
		"tui.noFlights": "No flights",
		"tui.removed":   "Removed %s",
		"tui.added":     "Added %s",
		"tui.noRemoved": "Nothing to restore",
	},
	language.German: {
		"flight.title":        "Kameraflüge",
		"flight.playTooltip":  "Abspielen",
		"flight.pauseTooltip": "Pausieren",
		"flight.stopTooltip":  "Stoppen",
		"flight.zoom":         "Auf Ausdehnung zoomen",

		"state.idle":      "keine Sitzung",
		"state.stopped":   "gestoppt",
		"state.paused":    "pausiert",
		"state.playing":   "läuft",
		"state.destroyed": "beendet",

		"tui.language":  "Sprache: %s",
		"tui.error":     "%s: %v",
		"tui.view":      "Ansicht auf %s %s, %.1f km",
		"tui.autoplay":  "Setze %s fort",
		"tui.noFlights": "Keine Flüge",
		"tui.removed":   "%s entfernt",
		"tui.added":     "%s hinzugefügt",
		"tui.noRemoved": "Nichts wiederherzustellen",
	},
}

func init() {
	for tag, msgs := range catalog {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// Supported returns the supported language tags, default first.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Default returns the default language tag.
func Default() language.Tag {
	return supported[0]
}

// Match returns the best supported tag for the preferred tags.
func Match(tags ...language.Tag) language.Tag {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supported[idx]
}

// Parse maps a language value such as "de" or "de-AT" to a supported tag.
func Parse(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return Default(), false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Default(), false
	}
	return supported[idx], true
}

// Next returns the supported language after tag, wrapping around.
func Next(tag language.Tag) language.Tag {
	for i, t := range supported {
		if t == tag {
			return supported[(i+1)%len(supported)]
		}
	}
	return Default()
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// ResolveTag picks the language of a request from the lang query parameter,
// then Accept-Language.
func ResolveTag(r *http.Request) language.Tag {
	if r == nil {
		return Default()
	}
	if tag, ok := Parse(r.URL.Query().Get(LangParam)); ok {
		return tag
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			return Match(tags...)
		}
	}
	return Default()
}
