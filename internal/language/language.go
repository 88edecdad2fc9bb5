// Package language turns the language codes stored on documents into display names.
package language

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is the label for codes that cannot be resolved.
const Unknown = "Unknown"

// Option is one selectable language.
type Option struct {
	Code string `json:"value"`
	Name string `json:"label"`
}

// supported lists the languages offered by the submission form, in display order.
var supported = []string{
	"pl", "en", "de", "fr", "es", "it", "pt", "nl", "cs", "sk",
	"uk", "ru", "lt", "lv", "et", "hu", "ro", "bg", "hr", "sl",
	"sv", "da", "fi", "no", "el", "tr", "zh", "ja", "ko", "ar",
}

var namer = display.English.Languages()

// Name returns the English name of code, or Unknown.
func Name(code string) string {
	tag, ok := parse(code)
	if !ok {
		return Unknown
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return Unknown
}

// Native returns the language's name in itself, title-cased, or Unknown.
func Native(code string) string {
	tag, ok := parse(code)
	if !ok {
		return Unknown
	}
	name := display.Self.Name(tag)
	if name == "" {
		return Unknown
	}
	return cases.Title(tag).String(name)
}

// Known reports whether code resolves to a named language.
func Known(code string) bool {
	return Name(code) != Unknown
}

// Options returns the selectable languages.
func Options() []Option {
	out := make([]Option, 0, len(supported))
	for _, code := range supported {
		out = append(out, Option{Code: code, Name: Name(code)})
	}
	return out
}

func parse(code string) (language.Tag, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.Und, false
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}
