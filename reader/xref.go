package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// xrefEntry locates one object. Compressed objects live at Index inside
// the object stream numbered Stream.
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	Compressed bool
	Stream     int
	Index      int
}

type xrefTable map[int]xrefEntry

// merge adds the entries of older that t does not define.
func (t xrefTable) merge(older xrefTable) {
	for num, e := range older {
		if _, ok := t[num]; !ok {
			t[num] = e
		}
	}
}

// findStartXRef reads the offset after the last "startxref".
func findStartXRef(data []byte) (int64, error) {
	tail := data[max(0, len(data)-2048):]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("reader: startxref not found")
	}
	p := newParser(tail[idx+len("startxref"):])
	tok := p.readToken()
	offset, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reader: invalid startxref offset %q", tok)
	}
	return offset, nil
}

// parseXRef reads the cross-reference section at offset and every section
// it chains to through /Prev and /XRefStm. The returned trailer is the
// newest one.
func parseXRef(data []byte, offset int64) (xrefTable, Dict, error) {
	table := make(xrefTable)
	var trailer Dict
	seen := make(map[int64]bool)
	for next := []int64{offset}; len(next) > 0; {
		off := next[0]
		next = next[1:]
		if seen[off] {
			continue
		}
		seen[off] = true
		if off < 0 || off >= int64(len(data)) {
			return nil, nil, fmt.Errorf("reader: xref offset %d out of bounds", off)
		}

		var section xrefTable
		var dict Dict
		var err error
		if p := newParser(data[off:]); p.readToken() == "xref" {
			section, dict, err = parseXRefSection(p)
		} else {
			section, dict, err = parseXRefStream(data[off:])
		}
		if err != nil {
			return nil, nil, err
		}
		table.merge(section)
		if trailer == nil {
			trailer = dict
		}
		// A hybrid file's stream overrides its own table but not newer
		// sections, so it is read before /Prev.
		if stm, ok := dict.GetInt("XRefStm"); ok {
			next = append([]int64{stm}, next...)
		}
		if prev, ok := dict.GetInt("Prev"); ok {
			next = append(next, prev)
		}
	}
	return table, trailer, nil
}

// parseXRefSection reads a classic table after its "xref" keyword, up to
// and including the trailer dictionary.
func parseXRefSection(p *parser) (xrefTable, Dict, error) {
	table := make(xrefTable)
	for {
		tok := p.readToken()
		if tok == "trailer" {
			break
		}
		first, err := strconv.Atoi(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref subsection start %q", tok)
		}
		count, err := strconv.Atoi(p.readToken())
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref subsection %d count", first)
		}
		for i := 0; i < count; i++ {
			off, err1 := strconv.ParseInt(p.readToken(), 10, 64)
			gen, err2 := strconv.Atoi(p.readToken())
			kind := p.readToken()
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, nil, fmt.Errorf("reader: malformed xref entry for object %d", first+i)
			}
			if _, ok := table[first+i]; !ok {
				table[first+i] = xrefEntry{Offset: off, Generation: gen, InUse: kind == "n"}
			}
		}
	}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, nil, errors.New("reader: trailer is not a dictionary")
	}
	return table, trailer, nil
}

// parseXRefStream reads a cross-reference stream object.
func parseXRefStream(data []byte) (xrefTable, Dict, error) {
	obj, err := newParser(data).ParseIndirectObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: xref stream: %w", err)
	}
	stream, ok := obj.Value.(Stream)
	if !ok || stream.Dict.GetName("Type") != "XRef" {
		return nil, nil, errors.New("reader: no xref table or stream at startxref")
	}
	decoded, err := decodeStream(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: xref stream: %w", err)
	}

	var w [3]int
	wArr := stream.Dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, nil, errors.New("reader: xref stream /W must have 3 entries")
	}
	for i, v := range wArr {
		n, _ := number(v)
		w[i] = int(n)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, nil, errors.New("reader: xref stream /W is empty")
	}

	var index []int
	for _, v := range stream.Dict.GetArray("Index") {
		n, _ := number(v)
		index = append(index, int(n))
	}
	if index == nil {
		size, _ := stream.Dict.GetInt("Size")
		index = []int{0, int(size)}
	}

	field := func(b []byte, width int, def int64) int64 {
		if width == 0 {
			return def
		}
		var v int64
		for _, c := range b[:width] {
			v = v<<8 | int64(c)
		}
		return v
	}

	table := make(xrefTable)
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		for j := 0; j < index[i+1] && pos+entrySize <= len(decoded); j++ {
			row := decoded[pos : pos+entrySize]
			pos += entrySize
			kind := field(row, w[0], 1)
			f2 := field(row[w[0]:], w[1], 0)
			f3 := field(row[w[0]+w[1]:], w[2], 0)

			num := index[i] + j
			switch kind {
			case 0:
				table[num] = xrefEntry{Generation: int(f3)}
			case 1:
				table[num] = xrefEntry{Offset: f2, Generation: int(f3), InUse: true}
			case 2:
				table[num] = xrefEntry{InUse: true, Compressed: true, Stream: int(f2), Index: int(f3)}
			}
		}
	}
	return table, stream.Dict, nil
}
