package ttml

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NewLine is the SRT line terminator.
const NewLine = "\r\n"

// zeroWidth holds invisible formatting characters: zero-width spaces and
// joiners, directional marks and embeddings, word joiners and the BOM.
var zeroWidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200B, Hi: 0x200F, Stride: 1},
		{Lo: 0x202A, Hi: 0x202E, Stride: 1},
		{Lo: 0x2060, Hi: 0x2064, Stride: 1},
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1},
	},
}

func control(r rune) bool {
	return r != '\r' && r != '\n' && (r < 0x20 || r == 0x7F)
}

// spaces maps tabs and every Unicode space separator to a plain space.
func spaces(r rune) rune {
	if r == '\t' || unicode.Is(unicode.Zs, r) {
		return ' '
	}
	return r
}

func cleaner() transform.Transformer {
	return transform.Chain(
		runes.Map(spaces),
		runes.Remove(runes.Predicate(control)),
		runes.Remove(runes.In(zeroWidth)),
	)
}

// Sanitize normalizes subtitle text: space variants and tabs become a plain
// space, controls other than CR and LF and zero-width characters are removed,
// and CR, LF and CRLF all become CRLF. It is idempotent.
func Sanitize(s string) string {
	clean, _, err := transform.String(cleaner(), s)
	if err != nil {
		// the transformers above never fail on valid or invalid UTF-8
		clean = s
	}
	return normalizeNewLines(clean)
}

func normalizeNewLines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			b.WriteString(NewLine)
		case '\n':
			b.WriteString(NewLine)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// blank reports whether s holds only spaces, tabs and line breaks.
func blank(s string) bool {
	return strings.Trim(s, " \t\r\n") == ""
}

// breakLine replaces, once, the space at limit or the last space before it
// with a line break. A word running into an existing line break is left
// alone.
func breakLine(s string, limit int) string {
	r := []rune(s)
	if limit <= 1 || len(r) <= limit {
		return s
	}
	at := -1
	if r[limit] == ' ' || r[limit] == '\t' {
		at = limit
	} else {
	search:
		for j := limit - 1; j > 0; j-- {
			switch r[j] {
			case ' ', '\t':
				at = j
				break search
			case '\r', '\n':
				break search
			}
		}
	}
	if at < 0 {
		return s
	}
	return string(r[:at]) + NewLine + string(r[at+1:])
}
