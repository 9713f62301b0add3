package pageops

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lvillar/actapdf"
)

// GridOptions configures AddGrid.
type GridOptions struct {
	Step     float64 // distance between lines (default 20)
	Major    float64 // every line on a multiple of Major is red (default 100)
	FontSize float64 // label size (default 6)
	Name     string  // template name used in errors
}

func (o *GridOptions) defaults() {
	if o.Step <= 0 {
		o.Step = 20
	}
	if o.Major <= 0 {
		o.Major = 100
	}
	if o.FontSize <= 0 {
		o.FontSize = 6
	}
}

// AddGrid writes the first page of template to w with a coordinate grid
// drawn over it. Labels give positions in the bottom-left origin used by
// layout profiles, so a field's anchor can be read off the printed form.
func AddGrid(w io.Writer, template io.Reader, opts GridOptions) error {
	opts.defaults()
	src, err := openSource(template)
	if err != nil {
		return actapdf.NewTemplateError("", opts.Name, err)
	}
	pdf := newDocument()
	pw, ph, err := src.placePage(pdf, 1)
	if err != nil {
		return actapdf.NewTemplateError("", opts.Name, err)
	}
	drawGrid(pdf, opts, pw, ph)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pageops: grid: %w", err)
	}
	return nil
}

// AddGridFile is AddGrid between two files.
func AddGridFile(templatePath, outputPath string, opts GridOptions) error {
	if opts.Name == "" {
		opts.Name = templatePath
	}
	f, err := openFile(templatePath)
	if err != nil {
		return actapdf.NewTemplateError("", opts.Name, err)
	}
	defer f.Close()
	return writeFile(outputPath, func(w io.Writer) error {
		return AddGrid(w, f, opts)
	})
}

type gridPainter interface {
	SetLineWidth(float64)
	SetDrawColor(r, g, b int)
	SetTextColor(r, g, b int)
	SetFont(family, style string, size float64)
	Line(x1, y1, x2, y2 float64)
	Text(x, y float64, s string)
}

func drawGrid(pdf gridPainter, opts GridOptions, pw, ph float64) {
	pdf.SetFont("Helvetica", "", opts.FontSize)
	pdf.SetTextColor(128, 128, 128)
	pdf.SetLineWidth(0.3)

	color := func(v float64) {
		if isMultiple(v, opts.Major) {
			pdf.SetDrawColor(255, 0, 0)
		} else {
			pdf.SetDrawColor(204, 204, 204)
		}
	}
	label := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	for x := 0.0; x <= pw; x += opts.Step {
		color(x)
		pdf.Line(x, 0, x, ph)
		pdf.Text(x+2, opts.FontSize+6, label(x))
	}
	for y := 0.0; y <= ph; y += opts.Step {
		color(y)
		pdf.Line(0, ph-y, pw, ph-y)
		pdf.Text(5, ph-y-2, label(y))
	}
}

func isMultiple(v, of float64) bool {
	q := v / of
	return q == float64(int64(q))
}
