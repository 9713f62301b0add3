// Package reader parses existing PDF files far enough to inspect form
// templates: the page tree, page boxes and the text drawn on each page.
//
// It reads classic cross-reference tables and cross-reference streams,
// including objects packed in object streams. Encrypted files are rejected.
package reader

import (
	"fmt"
	"strconv"
)

// Object is a parsed PDF object.
type Object interface {
	pdfObject()
	String() string
}

// Null is the PDF null object.
type Null struct{}

func (Null) pdfObject()     {}
func (Null) String() string { return "null" }

// Boolean is a PDF boolean.
type Boolean bool

func (Boolean) pdfObject()       {}
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }

// Integer is a PDF integer.
type Integer int64

func (Integer) pdfObject()       {}
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (Real) pdfObject()       {}
func (r Real) String() string { return strconv.FormatFloat(float64(r), 'g', -1, 64) }

// Name is a PDF name without its leading slash.
type Name string

func (Name) pdfObject()       {}
func (n Name) String() string { return "/" + string(n) }

// String is a PDF string. Value holds the decoded bytes.
type String struct {
	Value []byte
	IsHex bool
}

func (String) pdfObject() {}
func (s String) String() string {
	if s.IsHex {
		return fmt.Sprintf("<%x>", s.Value)
	}
	return fmt.Sprintf("(%s)", s.Value)
}

// Array is a PDF array.
type Array []Object

func (Array) pdfObject()       {}
func (a Array) String() string { return fmt.Sprintf("[%d items]", len(a)) }

// Dict is a PDF dictionary.
type Dict map[Name]Object

func (Dict) pdfObject()       {}
func (d Dict) String() string { return fmt.Sprintf("<<%d keys>>", len(d)) }

// GetName returns the name stored under key, or "".
func (d Dict) GetName(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// GetInt returns the number stored under key truncated to an integer.
func (d Dict) GetInt(key Name) (int64, bool) {
	f, ok := number(d[key])
	return int64(f), ok
}

// GetDict returns the direct dictionary stored under key, or nil.
func (d Dict) GetDict(key Name) Dict {
	sub, _ := d[key].(Dict)
	return sub
}

// GetArray returns the direct array stored under key, or nil.
func (d Dict) GetArray(key Name) Array {
	arr, _ := d[key].(Array)
	return arr
}

// Stream is a stream object. Data is still encoded; see Decode.
type Stream struct {
	Dict Dict
	Data []byte
}

func (Stream) pdfObject()       {}
func (s Stream) String() string { return fmt.Sprintf("<<stream %d bytes>>", len(s.Data)) }

// Decode returns the stream data with its filters applied.
func (s Stream) Decode() ([]byte, error) {
	return decodeStream(s)
}

// Reference is an indirect reference such as "10 0 R".
type Reference struct {
	Number     int
	Generation int
}

func (Reference) pdfObject()       {}
func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.Number, r.Generation) }

// IndirectObject is a numbered object definition ("10 0 obj ... endobj").
type IndirectObject struct {
	Reference
	Value Object
}

func (IndirectObject) pdfObject() {}
func (o IndirectObject) String() string {
	return fmt.Sprintf("%d %d obj %s", o.Number, o.Generation, o.Value)
}

// number converts Integer and Real to float64.
func number(obj Object) (float64, bool) {
	switch n := obj.(type) {
	case Integer:
		return float64(n), true
	case Real:
		return float64(n), true
	}
	return 0, false
}
