// Package fit chooses font sizes so that text fits the boxes printed on a
// form.
//
// Both fitters search downwards from a start size in fixed steps and never
// drop characters: when the minimum size still does not fit, the text is
// laid out at the minimum and the result is flagged as overflowing.
package fit

import "github.com/lvillar/actapdf/metrics"

const (
	DefaultMinSize     = 4.0
	DefaultStep        = 0.5
	DefaultLineSpacing = 2.0
)

// Params bounds the size search.
type Params struct {
	Start float64
	Min   float64
	Step  float64
}

// DefaultParams searches from start down to DefaultMinSize in DefaultStep
// decrements.
func DefaultParams(start float64) Params {
	return Params{Start: start, Min: DefaultMinSize, Step: DefaultStep}
}

func (p Params) normalize() Params {
	if p.Min <= 0 {
		p.Min = DefaultMinSize
	}
	if p.Step <= 0 {
		p.Step = DefaultStep
	}
	if p.Start < p.Min {
		p.Min = p.Start
	}
	return p
}

// size returns the k-th candidate, clamped to Min. Candidates are computed
// from Start rather than by repeated subtraction.
func (p Params) size(k int) (size float64, last bool) {
	size = p.Start - float64(k)*p.Step
	if size <= p.Min {
		return p.Min, true
	}
	return size, false
}

// Line is a string fitted on a single line.
type Line struct {
	Text     string  `json:"text"`
	Size     float64 `json:"size"`
	Width    float64 `json:"width"`
	Overflow bool    `json:"overflow,omitempty"`
}

// SingleLine returns the largest candidate size at which text is no wider
// than maxWidth. If even p.Min is too wide the line is returned at p.Min
// with Overflow set.
func SingleLine(m metrics.Measurer, text string, maxWidth float64, p Params) Line {
	p = p.normalize()
	for k := 0; ; k++ {
		size, last := p.size(k)
		w := m.StringWidth(text, size)
		if w <= maxWidth || last {
			return Line{Text: text, Size: size, Width: w, Overflow: w > maxWidth}
		}
	}
}
