package overlay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// OpKind says what a draw operation places on the page.
type OpKind string

const (
	OpText      OpKind = "text"
	OpMark      OpKind = "mark"
	OpParagraph OpKind = "paragraph"
	OpCell      OpKind = "cell"
	OpCode      OpKind = "code"
	OpImage     OpKind = "image"
)

// Op is one draw operation. X and Y are the text baseline origin for the
// string kinds and the bottom-left corner for codes and images, in page
// points with the origin at the bottom-left. Row and Column are only set for
// table cells.
type Op struct {
	Kind   OpKind `json:"kind" msgpack:"kind"`
	Field  string `json:"field" msgpack:"field"`
	Row    int    `json:"row,omitempty" msgpack:"row,omitempty"`
	Column string `json:"column,omitempty" msgpack:"column,omitempty"`

	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`

	Font  string  `json:"font,omitempty" msgpack:"font,omitempty"`
	Style string  `json:"style,omitempty" msgpack:"style,omitempty"`
	Size  float64 `json:"size,omitempty" msgpack:"size,omitempty"`
	Text  string  `json:"text" msgpack:"text"`

	Width     float64 `json:"width,omitempty" msgpack:"width,omitempty"`
	Height    float64 `json:"height,omitempty" msgpack:"height,omitempty"`
	Symbology string  `json:"symbology,omitempty" msgpack:"symbology,omitempty"`
}

// Overflow records text laid out at the minimum size that still does not
// fit its box.
type Overflow struct {
	Field  string  `json:"field" msgpack:"field"`
	Row    int     `json:"row,omitempty" msgpack:"row,omitempty"`
	Column string  `json:"column,omitempty" msgpack:"column,omitempty"`
	Size   float64 `json:"size" msgpack:"size"`
}

// Substitution records a character replaced by the placeholder.
type Substitution struct {
	Field string `json:"field" msgpack:"field"`
	Char  string `json:"char" msgpack:"char"`
	Code  string `json:"code" msgpack:"code"`
}

// Report lists the degradations accepted while composing a layer.
// Truncated is set when any text overflowed its box or table rows were
// left out.
type Report struct {
	Overflowed    []Overflow     `json:"overflowed,omitempty" msgpack:"overflowed,omitempty"`
	RowsRendered  int            `json:"rowsRendered" msgpack:"rowsRendered"`
	RowsDropped   int            `json:"rowsDropped" msgpack:"rowsDropped"`
	Substitutions []Substitution `json:"substitutions,omitempty" msgpack:"substitutions,omitempty"`
	Truncated     bool           `json:"truncated" msgpack:"truncated"`
}

// Layer is the overlay for the first page of a template.
type Layer struct {
	Profile    string  `json:"profile" msgpack:"profile"`
	Template   string  `json:"template" msgpack:"template"`
	PageWidth  float64 `json:"pageWidth" msgpack:"pageWidth"`
	PageHeight float64 `json:"pageHeight" msgpack:"pageHeight"`
	Ops        []Op    `json:"ops" msgpack:"ops"`
	Report     Report  `json:"report" msgpack:"report"`
}

// OpsFor returns the operations drawn for field, in layer order.
func (l *Layer) OpsFor(field string) []Op {
	var out []Op
	for _, op := range l.Ops {
		if op.Field == field {
			out = append(out, op)
		}
	}
	return out
}

// WriteJSON writes the layer as indented JSON.
func (l *Layer) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// WriteDebugJSON writes the layer to path for inspection.
func WriteDebugJSON(l *Layer, path string) error {
	if l == nil {
		return nil
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("overlay: encode layer: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
