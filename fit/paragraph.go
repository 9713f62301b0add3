package fit

import (
	"strings"

	"github.com/lvillar/actapdf/metrics"
)

// Box is a paragraph area. Text starts on the baseline at StartY and must
// end no lower than MinY, in bottom-left page coordinates.
type Box struct {
	X        float64 `json:"x"`
	StartY   float64 `json:"startY"`
	MinY     float64 `json:"minY"`
	MaxWidth float64 `json:"maxWidth"`
}

// PlacedLine is one wrapped line with its baseline origin.
type PlacedLine struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Block is a fitted paragraph.
type Block struct {
	Size     float64      `json:"size"`
	Lines    []PlacedLine `json:"lines"`
	Height   float64      `json:"height"`
	Overflow bool         `json:"overflow,omitempty"`
}

// Words returns the words of all lines in order.
func (b Block) Words() []string {
	var words []string
	for _, l := range b.Lines {
		words = append(words, strings.Fields(l.Text)...)
	}
	return words
}

// Paragraph wraps text into box at the largest candidate size whose total
// height, lines × (size + spacing), keeps the last line at or above MinY.
// At p.Min the paragraph is laid out even if it runs below MinY, with
// Overflow set. Text with no words yields an empty Block.
func Paragraph(m metrics.Measurer, text string, box Box, p Params, spacing float64) Block {
	p = p.normalize()
	words := strings.Fields(text)
	if len(words) == 0 {
		return Block{Size: p.Start}
	}

	for k := 0; ; k++ {
		size, last := p.size(k)
		lines := Wrap(m, words, size, box.MaxWidth)
		height := float64(len(lines)) * (size + spacing)
		fits := box.StartY-height >= box.MinY
		if fits || last {
			return place(lines, box, size, spacing, height, !fits)
		}
	}
}

func place(lines []string, box Box, size, spacing, height float64, overflow bool) Block {
	b := Block{Size: size, Height: height, Overflow: overflow}
	b.Lines = make([]PlacedLine, len(lines))
	for i, l := range lines {
		b.Lines[i] = PlacedLine{
			Text: l,
			X:    box.X,
			Y:    box.StartY - float64(i)*(size+spacing),
		}
	}
	return b
}

// Wrap packs words greedily into lines no wider than maxWidth at size. A
// word wider than maxWidth on its own is kept whole on its own line.
func Wrap(m metrics.Measurer, words []string, size, maxWidth float64) []string {
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if m.StringWidth(candidate, size) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}
