package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// parser reads PDF objects from a byte slice.
type parser struct {
	data []byte
	pos  int

	// length resolves an indirect stream /Length. When nil, or when it
	// fails, the stream is delimited by searching for "endstream".
	length func(Reference) (int, bool)
}

func newParser(data []byte) *parser {
	return &parser{data: data}
}

func (p *parser) eof() bool { return p.pos >= len(p.data) }

func (p *parser) hasPrefix(s string) bool {
	return bytes.HasPrefix(p.data[p.pos:], []byte(s))
}

// skipWhitespace advances past whitespace and comments.
func (p *parser) skipWhitespace() {
	for !p.eof() {
		switch b := p.data[p.pos]; {
		case isWhitespace(b):
			p.pos++
		case b == '%':
			for !p.eof() && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		default:
			return
		}
	}
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

// readToken returns the next run of regular characters.
func (p *parser) readToken() string {
	p.skipWhitespace()
	start := p.pos
	for !p.eof() && isRegular(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// ParseObject parses the object at the current position.
func (p *parser) ParseObject() (Object, error) {
	p.skipWhitespace()
	if p.eof() {
		return nil, io.ErrUnexpectedEOF
	}
	switch b := p.data[p.pos]; {
	case p.hasPrefix("<<"):
		return p.parseDict()
	case b == '<':
		return p.parseHexString()
	case b == '(':
		return p.parseLiteralString()
	case b == '/':
		return p.parseName()
	case b == '[':
		return p.parseArray()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return p.parseNumberOrRef()
	}
	switch tok := p.readToken(); tok {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Null{}, nil
	case "":
		return nil, fmt.Errorf("reader: unexpected %q at offset %d", p.data[p.pos], p.pos)
	default:
		return nil, fmt.Errorf("reader: unexpected keyword %q at offset %d", tok, p.pos-len(tok))
	}
}

func (p *parser) parseName() (Name, error) {
	if p.eof() || p.data[p.pos] != '/' {
		return "", fmt.Errorf("reader: expected name at offset %d", p.pos)
	}
	p.pos++
	var buf bytes.Buffer
	for !p.eof() && isRegular(p.data[p.pos]) {
		b := p.data[p.pos]
		if b == '#' && p.pos+2 < len(p.data) {
			hi, lo := unhex(p.data[p.pos+1]), unhex(p.data[p.pos+2])
			if hi >= 0 && lo >= 0 {
				buf.WriteByte(byte(hi<<4 | lo))
				p.pos += 3
				continue
			}
		}
		buf.WriteByte(b)
		p.pos++
	}
	return Name(buf.String()), nil
}

// parseNumberOrRef reads a number, or a reference when the number is
// followed by a generation and R.
func (p *parser) parseNumberOrRef() (Object, error) {
	start := p.pos
	tok := p.readToken()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			return nil, fmt.Errorf("reader: invalid number %q at offset %d", tok, start)
		}
		return Real(f), nil
	}

	after := p.pos
	gen, err := strconv.ParseInt(p.readToken(), 10, 64)
	if err == nil && n >= 0 && gen >= 0 {
		p.skipWhitespace()
		if !p.eof() && p.data[p.pos] == 'R' && (p.pos+1 == len(p.data) || !isRegular(p.data[p.pos+1])) {
			p.pos++
			return Reference{Number: int(n), Generation: int(gen)}, nil
		}
	}
	p.pos = after
	return Integer(n), nil
}

func (p *parser) parseLiteralString() (String, error) {
	raw, end, ok := scanLiteral(p.data, p.pos)
	if !ok {
		return String{}, errors.New("reader: unterminated literal string")
	}
	p.pos = end
	return String{Value: raw}, nil
}

func (p *parser) parseHexString() (String, error) {
	raw, end, ok := scanHex(p.data, p.pos)
	if !ok {
		return String{}, errors.New("reader: unterminated hex string")
	}
	p.pos = end
	return String{Value: raw, IsHex: true}, nil
}

func (p *parser) parseArray() (Array, error) {
	p.pos++
	arr := Array{}
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, errors.New("reader: unterminated array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("reader: in array: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *parser) parseDict() (Dict, error) {
	p.pos += 2
	d := make(Dict)
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, errors.New("reader: unterminated dictionary")
		}
		if p.hasPrefix(">>") {
			p.pos += 2
			return d, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("reader: value of /%s: %w", key, err)
		}
		d[key] = val
	}
}

// ParseIndirectObject parses "N G obj ... endobj", including stream data.
func (p *parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := strconv.Atoi(p.readToken())
	if err != nil {
		return nil, fmt.Errorf("reader: expected object number at offset %d", p.pos)
	}
	gen, err := strconv.Atoi(p.readToken())
	if err != nil {
		return nil, fmt.Errorf("reader: expected generation of object %d", num)
	}
	if tok := p.readToken(); tok != "obj" {
		return nil, fmt.Errorf("reader: object %d: expected obj, got %q", num, tok)
	}

	val, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("reader: object %d %d: %w", num, gen, err)
	}

	p.skipWhitespace()
	if p.hasPrefix("stream") {
		dict, ok := val.(Dict)
		if !ok {
			return nil, fmt.Errorf("reader: object %d %d: stream without dictionary", num, gen)
		}
		data, err := p.streamData(dict)
		if err != nil {
			return nil, fmt.Errorf("reader: object %d %d: %w", num, gen, err)
		}
		val = Stream{Dict: dict, Data: data}
		p.skipWhitespace()
	}
	if p.hasPrefix("endobj") {
		p.pos += len("endobj")
	}

	return &IndirectObject{
		Reference: Reference{Number: num, Generation: gen},
		Value:     val,
	}, nil
}

// streamData reads the bytes between "stream" and "endstream".
func (p *parser) streamData(dict Dict) ([]byte, error) {
	p.pos += len("stream")
	if p.hasPrefix("\r\n") {
		p.pos += 2
	} else if p.hasPrefix("\n") || p.hasPrefix("\r") {
		p.pos++
	}

	length := -1
	switch v := dict["Length"].(type) {
	case Integer:
		length = int(v)
	case Reference:
		if p.length != nil {
			if n, ok := p.length(v); ok {
				length = n
			}
		}
	}

	rest := p.data[p.pos:]
	if length < 0 || length > len(rest) || !endsStream(rest[length:]) {
		idx := bytes.Index(rest, []byte("endstream"))
		if idx < 0 {
			return nil, errors.New("stream without endstream")
		}
		length = idx
		for length > 0 && (rest[length-1] == '\n' || rest[length-1] == '\r') {
			length--
		}
	}

	data := make([]byte, length)
	copy(data, rest[:length])
	p.pos += length
	p.skipWhitespace()
	if p.hasPrefix("endstream") {
		p.pos += len("endstream")
	}
	return data, nil
}

func endsStream(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(b, "\r\n \t"), []byte("endstream"))
}

// scanLiteral decodes the literal string starting at data[pos] == '('.
func scanLiteral(data []byte, pos int) ([]byte, int, bool) {
	pos++
	var buf bytes.Buffer
	depth := 1
	for pos < len(data) {
		b := data[pos]
		pos++
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return buf.Bytes(), pos, true
			}
		case '\\':
			if pos >= len(data) {
				return nil, pos, false
			}
			pos = unescape(&buf, data, pos)
			continue
		}
		buf.WriteByte(b)
	}
	return nil, pos, false
}

var escapes = map[byte]byte{'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f'}

// unescape writes the character escaped at data[pos] and returns the
// position after it.
func unescape(buf *bytes.Buffer, data []byte, pos int) int {
	esc := data[pos]
	pos++
	switch {
	case escapes[esc] != 0:
		buf.WriteByte(escapes[esc])
	case esc >= '0' && esc <= '7':
		oct := int(esc - '0')
		for i := 0; i < 2 && pos < len(data) && data[pos] >= '0' && data[pos] <= '7'; i++ {
			oct = oct*8 + int(data[pos]-'0')
			pos++
		}
		buf.WriteByte(byte(oct))
	case esc == '\r':
		// line continuation
		if pos < len(data) && data[pos] == '\n' {
			pos++
		}
	case esc == '\n':
	default:
		buf.WriteByte(esc)
	}
	return pos
}

// scanHex decodes the hex string starting at data[pos] == '<'. Characters
// that are not hex digits are skipped.
func scanHex(data []byte, pos int) ([]byte, int, bool) {
	pos++
	var buf bytes.Buffer
	hi := -1
	for pos < len(data) {
		b := data[pos]
		pos++
		if b == '>' {
			if hi >= 0 {
				buf.WriteByte(byte(hi << 4))
			}
			return buf.Bytes(), pos, true
		}
		v := unhex(b)
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			buf.WriteByte(byte(hi<<4 | v))
			hi = -1
		}
	}
	return nil, pos, false
}

func unhex(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
