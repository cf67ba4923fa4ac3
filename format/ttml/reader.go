// Package ttml converts TTML and YouTube timed text (format 3) subtitles to
// SubRip.
package ttml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ugparu/remux/utils"
)

// Namespace is the TTML namespace. Documents without a namespace are
// accepted too.
const Namespace = "http://www.w3.org/ns/ttml"

// Frame is one subtitle cue.
type Frame struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type dialect int

const (
	dialectTTML dialect = iota
	// dialectTimedText is the YouTube "format 3" transcript: <p t="" d="">
	// in milliseconds under timedtext/body.
	dialectTimedText
)

var charRef = regexp.MustCompile(`&#(?:[xX]([0-9A-Fa-f]+)|([0-9]+));`)

// stripIllegalRefs removes character references to code points XML 1.0 does
// not allow, which subtitles use for control characters.
func stripIllegalRefs(doc []byte) []byte {
	return charRef.ReplaceAllFunc(doc, func(ref []byte) []byte {
		m := charRef.FindSubmatch(ref)
		var v uint64
		var err error
		if len(m[1]) > 0 {
			v, err = strconv.ParseUint(string(m[1]), 16, 32)
		} else {
			v, err = strconv.ParseUint(string(m[2]), 10, 32)
		}
		if err != nil || !allowedInXML(rune(v)) {
			return nil
		}
		return ref
	})
}

var lineBreak = regexp.MustCompile(`<(/?)((?:[\w.-]+:)?br)\b([^<>]*)>`)

// closeLineBreaks turns HTML style void <br> tags into empty elements and
// drops </br> end tags.
func closeLineBreaks(doc []byte) []byte {
	return lineBreak.ReplaceAllFunc(doc, func(tag []byte) []byte {
		m := lineBreak.FindSubmatch(tag)
		if len(m[1]) > 0 {
			return nil
		}
		if bytes.HasSuffix(bytes.TrimSpace(m[3]), []byte("/")) {
			return tag
		}
		out := append([]byte("<"), m[2]...)
		out = append(out, m[3]...)
		return append(out, "/>"...)
	})
}

func allowedInXML(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF:
		return false
	case r == 0xFFFE || r == 0xFFFF:
		return false
	}
	return r <= 0x10FFFF
}

// Parse reads every frame of a TTML or timed text document. Frame text is
// sanitized and <br/> becomes a line break. A <br> left open is accepted.
//
// With detectDuplicates, overlapping frames of YouTube auto-generated TTML
// are shortened so that each line only shows once.
func Parse(in io.Reader, detectDuplicates bool) ([]Frame, error) {
	doc, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	d := xml.NewDecoder(bytes.NewReader(closeLineBreaks(stripIllegalRefs(doc))))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity

	p := &parser{d: d, dedupe: detectDuplicates, pending: -1}
	if err = p.run(); err != nil {
		var syntax *xml.SyntaxError
		if errors.As(err, &syntax) {
			return nil, &utils.MalformedDocumentError{Err: err}
		}
		return nil, err
	}
	return p.frames, nil
}

type parser struct {
	d       *xml.Decoder
	dialect dialect
	// path holds the local names of the open elements
	path   []string
	frames []Frame
	// lineWidth is the timed text line width, 0 when unknown
	lineWidth int

	dedupe  bool
	limit   bool
	pending time.Duration
}

func (p *parser) run() error {
	root := false
	for {
		tok, err := p.d.Token()
		if err == io.EOF {
			if !root {
				return &utils.MalformedDocumentError{Err: errors.New("no root element")}
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !root {
				root = true
				if err = p.root(t); err != nil {
					return err
				}
			} else if err = p.element(t); err != nil {
				return err
			}
		case xml.EndElement:
			p.path = p.path[:len(p.path)-1]
		}
	}
}

func (p *parser) root(t xml.StartElement) error {
	switch t.Name.Local {
	case "tt":
		if t.Name.Space != "" && t.Name.Space != Namespace {
			return &utils.UnsupportedFormatError{Format: "ttml", Reason: "namespace " + t.Name.Space}
		}
		p.dialect = dialectTTML
	case "timedtext":
		if v := attr(t, "format"); v != "3" {
			return &utils.UnsupportedFormatError{Format: "timed text", Reason: "format " + strconv.Quote(v)}
		}
		p.dialect = dialectTimedText
	default:
		return &utils.UnsupportedFormatError{Format: "ttml", Reason: "root element " + t.Name.Local}
	}
	p.path = append(p.path, t.Name.Local)
	return nil
}

func (p *parser) element(t xml.StartElement) error {
	name := t.Name.Local
	switch {
	case name == "p" && p.inBody():
		text, err := p.text()
		if err != nil {
			return err
		}
		return p.frame(t, text)
	case name == "wp" && p.dialect == dialectTimedText && p.at("head"):
		if w, err := strconv.Atoi(attr(t, "ah")); err == nil && w > p.lineWidth {
			p.lineWidth = w
		}
	}
	p.path = append(p.path, name)
	return nil
}

func (p *parser) at(names ...string) bool {
	return len(p.path) == len(names)+1 && strings.Join(p.path[1:], "/") == strings.Join(names, "/")
}

// inBody reports whether a paragraph opened now is a frame: anywhere under
// tt/body/div, or under timedtext/body.
func (p *parser) inBody() bool {
	if len(p.path) < 2 || p.path[1] != "body" {
		return false
	}
	if p.dialect == dialectTimedText {
		return true
	}
	return len(p.path) >= 3 && p.path[2] == "div"
}

// text consumes the paragraph up to its end tag.
func (p *parser) text() (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := p.d.Token()
		if err != nil {
			if err == io.EOF {
				err = &xml.SyntaxError{Msg: "unexpected EOF in paragraph"}
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if t.Name.Local == "br" {
				b.WriteString(NewLine)
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				return Sanitize(b.String()), nil
			}
			depth--
		}
	}
}

func (p *parser) frame(t xml.StartElement, text string) error {
	var f Frame
	var err error
	switch p.dialect {
	case dialectTimedText:
		start, okStart := millis(attr(t, "t"))
		length, okLength := millis(attr(t, "d"))
		if !okStart || !okLength {
			// a paragraph without timing is not a frame
			return nil
		}
		f.Start, f.End = start, start+length
		if p.lineWidth > 0 {
			text = breakLine(text, p.lineWidth)
		}
	default:
		if f.Start, err = ParseTime(attr(t, "begin")); err != nil {
			return err
		}
		if f.End, err = ParseTime(attr(t, "end")); err != nil {
			return err
		}
		if p.dedupe {
			p.detectDuplicate(&f)
		}
	}
	f.Text = text
	p.frames = append(p.frames, f)
	return nil
}

// detectDuplicate handles auto-generated captions whose frames overlap the
// next one, repeating the previous line. Once an overlap is seen, every
// frame ends where the previous one was meant to.
func (p *parser) detectDuplicate(f *Frame) {
	switch {
	case p.limit:
		f.End, p.pending = p.pending, f.End
	case p.pending < 0:
		p.pending = f.End
	case p.pending < f.Start:
		p.limit = true
	default:
		p.dedupe = false
	}
}

func millis(s string) (time.Duration, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return time.Duration(v) * time.Millisecond, true
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local && (a.Name.Space == "" || a.Name.Space == Namespace) {
			return a.Value
		}
	}
	return ""
}
