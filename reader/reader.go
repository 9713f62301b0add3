package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"sync"
)

// ErrEncrypted is returned for files with an /Encrypt dictionary.
var ErrEncrypted = errors.New("reader: encrypted documents are not supported")

// maxDepth bounds reference chains and nested form XObjects.
const maxDepth = 32

// Document is a parsed PDF file held in memory. It is safe for concurrent
// use.
type Document struct {
	Version string // from the header, e.g. "1.3"

	data    []byte
	xref    xrefTable
	trailer Dict
	pages   []*Page

	mu         sync.Mutex
	objStreams map[int]*objectStream
}

// Open parses the PDF file at filename.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	return Parse(data)
}

// ReadFrom reads r to the end and parses the result.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return Parse(data)
}

// Parse parses a complete PDF file. The document keeps a reference to data.
func Parse(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, errors.New("reader: missing %PDF header")
	}
	doc := &Document{
		Version:    parseVersion(data),
		data:       data,
		objStreams: make(map[int]*objectStream),
	}

	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	if doc.xref, doc.trailer, err = parseXRef(data, start); err != nil {
		return nil, err
	}
	if _, ok := doc.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}
	if err := doc.buildPageList(); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseVersion(data []byte) string {
	idx := bytes.Index(data[:min(len(data), 1024)], []byte("%PDF-"))
	if idx < 0 {
		return ""
	}
	rest := data[idx+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	return string(rest[:end])
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int { return len(d.pages) }

// Page returns page n, counting from 1.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages iterates over the pages with their 1-based numbers.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, p := range d.pages {
			if !yield(i+1, p) {
				return
			}
		}
	}
}

// Metadata returns the text entries of the /Info dictionary.
func (d *Document) Metadata() map[string]string {
	meta := make(map[string]string)
	info, _ := d.deref(d.trailer["Info"]).(Dict)
	for key, v := range info {
		if s, ok := d.deref(v).(String); ok {
			meta[string(key)] = decodeTextString(s.Value)
		}
	}
	return meta
}

// ResolveReference returns the object ref points to. Free or missing
// objects resolve to Null.
func (d *Document) ResolveReference(ref Reference) (Object, error) {
	return d.resolve(ref, 0)
}

func (d *Document) resolve(ref Reference, depth int) (Object, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("reader: reference chain too deep at %s", ref)
	}
	e, ok := d.xref[ref.Number]
	if !ok || !e.InUse {
		return Null{}, nil
	}
	var obj Object
	var err error
	if e.Compressed {
		obj, err = d.compressedObject(e, depth)
	} else {
		obj, err = d.objectAt(ref, e.Offset, depth)
	}
	if err != nil {
		return nil, err
	}
	if next, ok := obj.(Reference); ok {
		return d.resolve(next, depth+1)
	}
	return obj, nil
}

func (d *Document) objectAt(ref Reference, offset int64, depth int) (Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("reader: object %d offset %d out of bounds", ref.Number, offset)
	}
	p := newParser(d.data[offset:])
	p.length = func(r Reference) (int, bool) {
		if depth >= maxDepth {
			return 0, false
		}
		obj, err := d.resolve(r, depth+1)
		if err != nil {
			return 0, false
		}
		n, ok := number(obj)
		return int(n), ok
	}
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if obj.Number != ref.Number {
		return nil, fmt.Errorf("reader: xref points object %d at object %d", ref.Number, obj.Number)
	}
	return obj.Value, nil
}

// deref resolves obj when it is a reference. Unresolvable references
// yield Null.
func (d *Document) deref(obj Object) Object {
	ref, ok := obj.(Reference)
	if !ok {
		return obj
	}
	v, err := d.resolve(ref, 0)
	if err != nil {
		return Null{}
	}
	return v
}

// objectStream is a decoded /Type /ObjStm. offsets[i] is where the i-th
// packed object starts in data.
type objectStream struct {
	data    []byte
	offsets []int
}

func (d *Document) compressedObject(e xrefEntry, depth int) (Object, error) {
	stm, err := d.objectStream(e.Stream, depth)
	if err != nil {
		return nil, err
	}
	if e.Index < 0 || e.Index >= len(stm.offsets) {
		return nil, fmt.Errorf("reader: object stream %d has no entry %d", e.Stream, e.Index)
	}
	return newParser(stm.data[stm.offsets[e.Index]:]).ParseObject()
}

func (d *Document) objectStream(num, depth int) (*objectStream, error) {
	d.mu.Lock()
	cached, ok := d.objStreams[num]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	obj, err := d.resolve(Reference{Number: num}, depth+1)
	if err != nil {
		return nil, err
	}
	s, ok := obj.(Stream)
	if !ok || s.Dict.GetName("Type") != "ObjStm" {
		return nil, fmt.Errorf("reader: object %d is not an object stream", num)
	}
	data, err := decodeStream(s)
	if err != nil {
		return nil, fmt.Errorf("reader: object stream %d: %w", num, err)
	}
	n, _ := s.Dict.GetInt("N")
	first, _ := s.Dict.GetInt("First")
	if n < 0 || first < 0 || int(first) > len(data) {
		return nil, fmt.Errorf("reader: object stream %d: bad /N or /First", num)
	}

	stm := &objectStream{data: data, offsets: make([]int, 0, n)}
	header := newParser(data[:first])
	for i := int64(0); i < n; i++ {
		_, err1 := strconv.Atoi(header.readToken())
		off, err2 := strconv.Atoi(header.readToken())
		if err1 != nil || err2 != nil || int(first)+off > len(data) {
			return nil, fmt.Errorf("reader: object stream %d: bad header entry %d", num, i)
		}
		stm.offsets = append(stm.offsets, int(first)+off)
	}

	d.mu.Lock()
	d.objStreams[num] = stm
	d.mu.Unlock()
	return stm, nil
}
