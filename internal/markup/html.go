package markup

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var sgrPattern = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// HTMLTranslator renders SGR colour and style sequences as spans with
// term-* classes. Other escape sequences are dropped and text is HTML escaped.
type HTMLTranslator struct{}

func (HTMLTranslator) ToMarkup(raw string) string {
	var (
		out   strings.Builder
		state sgrState
		open  bool
		last  int
	)

	writeText := func(s string) {
		s = ansi.Strip(s)
		if s == "" {
			return
		}
		if !open {
			if classes := state.classes(); classes != "" {
				fmt.Fprintf(&out, `<span class="%s">`, classes)
				open = true
			}
		}
		out.WriteString(html.EscapeString(s))
	}

	for _, loc := range sgrPattern.FindAllStringSubmatchIndex(raw, -1) {
		writeText(raw[last:loc[0]])
		last = loc[1]

		next := state
		next.apply(raw[loc[2]:loc[3]])
		if next != state && open {
			out.WriteString("</span>")
			open = false
		}
		state = next
	}
	writeText(raw[last:])

	if open {
		out.WriteString("</span>")
	}
	return out.String()
}

type sgrState struct {
	bold      bool
	italic    bool
	underline bool
	fg        string
	bg        string
}

func (s *sgrState) apply(params string) {
	if params == "" {
		*s = sgrState{}
		return
	}

	codes := strings.Split(params, ";")
	for i := 0; i < len(codes); i++ {
		n, err := strconv.Atoi(codes[i])
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			*s = sgrState{}
		case n == 1:
			s.bold = true
		case n == 3:
			s.italic = true
		case n == 4:
			s.underline = true
		case n == 22:
			s.bold = false
		case n == 23:
			s.italic = false
		case n == 24:
			s.underline = false
		case (n >= 30 && n <= 37) || (n >= 90 && n <= 97):
			s.fg = fmt.Sprintf("term-fg%d", n)
		case n == 39:
			s.fg = ""
		case (n >= 40 && n <= 47) || (n >= 100 && n <= 107):
			s.bg = fmt.Sprintf("term-bg%d", n)
		case n == 49:
			s.bg = ""
		case n == 38 || n == 48:
			// 24-bit colour 38;2;R;G;B has no class; its parameters are skipped
			if i+1 < len(codes) && codes[i+1] == "2" {
				i = min(i+4, len(codes)-1)
				continue
			}
			// 256 colour form: 38;5;N / 48;5;N
			if i+2 < len(codes) && codes[i+1] == "5" {
				prefix := "term-fgx"
				if n == 48 {
					prefix = "term-bgx"
				}
				class := prefix + codes[i+2]
				if n == 38 {
					s.fg = class
				} else {
					s.bg = class
				}
				i += 2
			}
		}
	}
}

func (s sgrState) classes() string {
	var classes []string
	if s.bold {
		classes = append(classes, "term-fg1")
	}
	if s.italic {
		classes = append(classes, "term-fg3")
	}
	if s.underline {
		classes = append(classes, "term-fg4")
	}
	if s.fg != "" {
		classes = append(classes, s.fg)
	}
	if s.bg != "" {
		classes = append(classes, s.bg)
	}
	return strings.Join(classes, " ")
}
