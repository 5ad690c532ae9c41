// Package markup converts raw step output, which carries ANSI escape
// sequences, into text suitable for a clipboard or a browser.
package markup

import (
	"github.com/charmbracelet/x/ansi"
)

// Translator converts a raw log into markup
type Translator interface {
	ToMarkup(raw string) string
}

// PlainTranslator drops every escape sequence
type PlainTranslator struct{}

func (PlainTranslator) ToMarkup(raw string) string {
	return ansi.Strip(raw)
}

// ForFormat returns the translator for a copy-format value. Unknown formats
// fall back to plain text.
func ForFormat(format string) Translator {
	if format == "html" {
		return HTMLTranslator{}
	}
	return PlainTranslator{}
}
