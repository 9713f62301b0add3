package reader

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// ExtractText returns the text shown on the page, one line per text
// positioning step, including text drawn by form XObjects the page paints.
//
// Strings are decoded as Windows-1252, which matches documents written
// with the standard Type 1 fonts. Composite fonts and ToUnicode maps are
// not interpreted.
func (p *Page) ExtractText() (string, error) {
	data, err := p.ContentStream()
	if err != nil {
		return "", err
	}
	x := &textExtractor{doc: p.doc}
	if err := x.run(data, p.Resources, 0); err != nil {
		return "", fmt.Errorf("reader: page %d: %w", p.Number, err)
	}
	return x.text(), nil
}

type textExtractor struct {
	doc   *Document
	lines []string
	cur   strings.Builder
}

func (x *textExtractor) newline() {
	if x.cur.Len() > 0 {
		x.lines = append(x.lines, x.cur.String())
		x.cur.Reset()
	}
}

func (x *textExtractor) text() string {
	x.newline()
	out := make([]string, 0, len(x.lines))
	for _, l := range x.lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func (x *textExtractor) show(obj Object) {
	if s, ok := obj.(String); ok {
		x.cur.WriteString(decodeTextString(s.Value))
	}
}

// run interprets one content stream. Operands accumulate until the next
// operator consumes them.
func (x *textExtractor) run(data []byte, resources Dict, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("form XObjects nested deeper than %d", maxDepth)
	}
	lex := newParser(data)
	var operands []Object
	for {
		lex.skipWhitespace()
		if lex.eof() {
			return nil
		}
		b := lex.data[lex.pos]
		if isRegular(b) && b != '+' && b != '-' && b != '.' && (b < '0' || b > '9') {
			op := lex.readToken()
			switch op {
			case "true", "false", "null":
				operands = append(operands, Null{})
				continue
			case "ID":
				skipInlineImage(lex)
			default:
				if err := x.operator(op, operands, resources, depth); err != nil {
					return err
				}
			}
			operands = operands[:0]
			continue
		}
		start := lex.pos
		obj, err := lex.ParseObject()
		if err != nil {
			lex.pos = start + 1
			continue
		}
		operands = append(operands, obj)
	}
}

func (x *textExtractor) operator(op string, operands []Object, resources Dict, depth int) error {
	last := func() Object {
		if len(operands) == 0 {
			return Null{}
		}
		return operands[len(operands)-1]
	}
	switch op {
	case "Tj":
		x.show(last())
	case "'", `"`:
		x.newline()
		x.show(last())
	case "TJ":
		arr, _ := last().(Array)
		for _, item := range arr {
			if n, ok := number(item); ok && n <= -250 {
				x.cur.WriteByte(' ')
			}
			x.show(item)
		}
	case "Td", "TD", "T*", "Tm", "BT", "ET":
		x.newline()
	case "Do":
		name, ok := last().(Name)
		if !ok {
			return nil
		}
		return x.form(name, resources, depth)
	}
	return nil
}

// form runs the content of the form XObject name. Image XObjects draw no
// text and are skipped.
func (x *textExtractor) form(name Name, resources Dict, depth int) error {
	xobjects, _ := x.doc.deref(resources["XObject"]).(Dict)
	s, ok := x.doc.deref(xobjects[name]).(Stream)
	if !ok || s.Dict.GetName("Subtype") != "Form" {
		return nil
	}
	data, err := decodeStream(s)
	if err != nil {
		return fmt.Errorf("XObject %s: %w", name, err)
	}
	inner, ok := x.doc.deref(s.Dict["Resources"]).(Dict)
	if !ok {
		inner = resources
	}
	x.newline()
	if err := x.run(data, inner, depth+1); err != nil {
		return err
	}
	x.newline()
	return nil
}

// skipInlineImage moves past the binary data of an inline image, which
// runs from after "ID" to the next "EI" that stands as its own token.
func skipInlineImage(lex *parser) {
	rest := lex.data[lex.pos:]
	for off := 0; ; {
		i := bytes.Index(rest[off:], []byte("EI"))
		if i < 0 {
			lex.pos = len(lex.data)
			return
		}
		at := off + i
		end := at + 2
		if at > 0 && isWhitespace(rest[at-1]) && (end == len(rest) || !isRegular(rest[end])) {
			lex.pos += end
			return
		}
		off = at + 2
	}
}

// decodeTextString decodes a string as UTF-16BE when it carries a byte
// order mark and as Windows-1252 otherwise.
func decodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		u := make([]uint16, len(b)/2)
		for i := range u {
			u[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		}
		return string(utf16.Decode(u))
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
