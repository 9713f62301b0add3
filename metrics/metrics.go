// Package metrics measures text with the same font tables the PDF writer
// uses to draw it.
//
// Fitting decisions are only valid when measuring and drawing agree, so the
// faces in this package are backed by gofpdf's core font metrics and its
// Windows-1252 translator, which is what pageops uses when it writes the
// overlay.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvillar/actapdf"
)

// DefaultFamily and DefaultStyle select the core font used by the forms.
const (
	DefaultFamily = "Helvetica"
	DefaultStyle  = ""
)

// Measurer reports the width of a string at a font size, in points.
type Measurer interface {
	StringWidth(s string, size float64) float64
}

// Face is a Measurer bound to one font family and style.
type Face interface {
	Measurer
	Family() string
	Style() string
	// Covers reports whether the face can draw r.
	Covers(r rune) bool
}

// CoreFace measures one of the fourteen PDF core fonts.
type CoreFace struct {
	family string
	style  string

	// gofpdf keeps the current font size on the document and its
	// translator reuses an internal buffer, so both are guarded.
	mu  sync.Mutex
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewCoreFace returns a face for a core font family such as "Helvetica",
// "Times" or "Courier". style is "", "B", "I" or "BI".
func NewCoreFace(family, style string) (*CoreFace, error) {
	style = normalizeStyle(style)
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont(family, style, 10)
	if pdf.Err() {
		return nil, fmt.Errorf("%w: %s %q: %v", actapdf.ErrUnknownFont, family, style, pdf.Error())
	}
	return &CoreFace{
		family: family,
		style:  style,
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}, nil
}

func (f *CoreFace) Family() string { return f.family }
func (f *CoreFace) Style() string  { return f.style }

// StringWidth returns the advance width of s at size points. Runes the face
// does not cover are measured as the fallback byte gofpdf would draw.
func (f *CoreFace) StringWidth(s string, size float64) float64 {
	if s == "" {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdf.SetFontSize(size)
	return f.pdf.GetStringWidth(f.tr(s))
}

func (f *CoreFace) Covers(r rune) bool {
	return Covers(r)
}

// Covers reports whether r can be drawn with a core font: it must have a
// Windows-1252 code and not be a control character.
func Covers(r rune) bool {
	if unicode.IsControl(r) {
		return false
	}
	if r < 0x80 {
		return true
	}
	_, ok := charmap.Windows1252.EncodeRune(r)
	return ok
}

// FirstUnsupported returns the first rune of s that f cannot draw.
func FirstUnsupported(f Face, s string) (rune, bool) {
	for _, r := range s {
		if !f.Covers(r) {
			return r, true
		}
	}
	return 0, false
}

func normalizeStyle(style string) string {
	style = strings.ToUpper(style)
	b := strings.Contains(style, "B")
	i := strings.Contains(style, "I")
	switch {
	case b && i:
		return "BI"
	case b:
		return "B"
	case i:
		return "I"
	}
	return ""
}
