package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainTranslator(t *testing.T) {
	tcs := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "empty", raw: "", expected: ""},
		{name: "no escapes", raw: "make all\n", expected: "make all\n"},
		{name: "colours", raw: "\x1b[32mok\x1b[0m done", expected: "ok done"},
		{name: "cursor movement", raw: "\x1b[2Kprogress", expected: "progress"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PlainTranslator{}.ToMarkup(tc.raw))
		})
	}
}

func TestHTMLTranslator(t *testing.T) {
	tcs := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "plain text is escaped", raw: "a < b && c", expected: "a &lt; b &amp;&amp; c"},
		{name: "foreground", raw: "\x1b[31mfail\x1b[0m", expected: `<span class="term-fg31">fail</span>`},
		{name: "bold and colour", raw: "\x1b[1;32mok\x1b[0m!", expected: `<span class="term-fg1 term-fg32">ok</span>!`},
		{name: "colour change closes span", raw: "\x1b[31mred\x1b[34mblue", expected: `<span class="term-fg31">red</span><span class="term-fg34">blue</span>`},
		{name: "256 colours", raw: "\x1b[38;5;208mwarn\x1b[m", expected: `<span class="term-fgx208">warn</span>`},
		{name: "24-bit colour keeps earlier attributes", raw: "\x1b[1;38;2;255;0;0mbold red\x1b[0m", expected: `<span class="term-fg1">bold red</span>`},
		{name: "24-bit background then colour", raw: "\x1b[48;2;0;0;0;32mok", expected: `<span class="term-fg32">ok</span>`},
		{name: "truncated 24-bit colour", raw: "\x1b[4;38;2;0mx", expected: `<span class="term-fg4">x</span>`},
		{name: "background", raw: "\x1b[41m \x1b[49m", expected: `<span class="term-bg41"> </span>`},
		{name: "unclosed span", raw: "\x1b[33mpending", expected: `<span class="term-fg33">pending</span>`},
		{name: "non sgr sequences dropped", raw: "\x1b[2Kline", expected: "line"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HTMLTranslator{}.ToMarkup(tc.raw))
		})
	}
}

func TestForFormat(t *testing.T) {
	assert.IsType(t, HTMLTranslator{}, ForFormat("html"))
	assert.IsType(t, PlainTranslator{}, ForFormat("text"))
	assert.IsType(t, PlainTranslator{}, ForFormat(""))
}
