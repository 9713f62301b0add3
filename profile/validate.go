package profile

import (
	"fmt"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/record"
)

// Validate checks the invariants every profile must hold: coordinates on
// the page, each field placed at most once, and a table with exactly the
// five component columns in order. The returned error is a
// *actapdf.ConfigurationError wrapping actapdf.ErrMalformedProfile.
func (p *Profile) Validate() error {
	v := validator{p: p, seen: make(map[string]string)}

	if p.Name == "" {
		return v.fail("", "missing name")
	}
	if p.Template == "" {
		return v.fail("", "missing template")
	}
	if p.Page.Width <= 0 || p.Page.Height <= 0 {
		return v.fail("", "page size %gx%g", p.Page.Width, p.Page.Height)
	}
	if p.Font.Size <= 0 {
		return v.fail("", "font size %g", p.Font.Size)
	}
	if p.Tick == "" {
		return v.fail("", "empty tick glyph")
	}

	for _, field := range SortedKeys(p.Text) {
		if err := v.claim(field, "text"); err != nil {
			return err
		}
		if err := v.point(field, p.Text[field]); err != nil {
			return err
		}
	}
	for _, field := range SortedKeys(p.Marks) {
		if err := v.claim(field, "marks"); err != nil {
			return err
		}
		set := p.Marks[field]
		if len(set) == 0 {
			return v.fail(field, "no mark positions")
		}
		for _, tag := range SortedKeys(set) {
			if tag == "" {
				return v.fail(field, "empty mark tag")
			}
			if err := v.point(field, set[tag]); err != nil {
				return err
			}
		}
	}
	for _, field := range SortedKeys(p.Paragraphs) {
		if err := v.claim(field, "paragraphs"); err != nil {
			return err
		}
		if err := v.area(field, p.Paragraphs[field]); err != nil {
			return err
		}
	}
	for _, field := range SortedKeys(p.Codes) {
		if err := v.claim(field, "codes"); err != nil {
			return err
		}
		c := p.Codes[field]
		switch c.Symbology {
		case Code128, QR, PDF417:
		default:
			return v.fail(field, "unknown symbology %q", c.Symbology)
		}
		if err := v.rect(field, c.X, c.Y, c.Width, c.Height); err != nil {
			return err
		}
	}
	for _, field := range SortedKeys(p.Images) {
		if err := v.claim(field, "images"); err != nil {
			return err
		}
		im := p.Images[field]
		if err := v.rect(field, im.X, im.Y, im.Width, im.Height); err != nil {
			return err
		}
	}
	if p.Table != nil {
		return v.table(p.Table)
	}
	return nil
}

type validator struct {
	p    *Profile
	seen map[string]string
}

func (v *validator) fail(field, format string, args ...any) error {
	err := fmt.Errorf("%w: %s", actapdf.ErrMalformedProfile, fmt.Sprintf(format, args...))
	return actapdf.NewConfigurationError(v.p.Name, field, err)
}

func (v *validator) claim(field, section string) error {
	if field == "" {
		return v.fail("", "empty field name in %s", section)
	}
	if prev, ok := v.seen[field]; ok {
		return v.fail(field, "placed in both %s and %s", prev, section)
	}
	v.seen[field] = section
	return nil
}

func (v *validator) inPage(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= v.p.Page.Width && y <= v.p.Page.Height
}

func (v *validator) point(field string, pt Point) error {
	if !v.inPage(pt.X, pt.Y) {
		return v.fail(field, "point (%g, %g) outside page", pt.X, pt.Y)
	}
	return nil
}

func (v *validator) rect(field string, x, y, w, h float64) error {
	if w <= 0 || h <= 0 {
		return v.fail(field, "size %gx%g", w, h)
	}
	if !v.inPage(x, y) || !v.inPage(x+w, y+h) {
		return v.fail(field, "box (%g, %g, %g, %g) outside page", x, y, w, h)
	}
	return nil
}

func (v *validator) area(field string, a Area) error {
	if a.MaxWidth <= 0 {
		return v.fail(field, "max width %g", a.MaxWidth)
	}
	if a.MinY > a.StartY {
		return v.fail(field, "minY %g above startY %g", a.MinY, a.StartY)
	}
	if a.FontSize < 0 {
		return v.fail(field, "font size %g", a.FontSize)
	}
	if !v.inPage(a.X, a.StartY) || !v.inPage(a.X+a.MaxWidth, a.MinY) {
		return v.fail(field, "area outside page")
	}
	return nil
}

func (v *validator) table(t *Table) error {
	if err := v.claim(t.Field, "table"); err != nil {
		return err
	}
	if len(t.Columns) != len(record.Columns) {
		return v.fail(t.Field, "table has %d columns, want %d", len(t.Columns), len(record.Columns))
	}
	if t.RowHeight <= 0 {
		return v.fail(t.Field, "row height %g", t.RowHeight)
	}
	if t.FontSize <= 0 {
		return v.fail(t.Field, "font size %g", t.FontSize)
	}
	if t.Margin < 0 || !v.inPage(0, t.StartY) {
		return v.fail(t.Field, "startY %g with margin %g", t.StartY, t.Margin)
	}
	for i, c := range t.Columns {
		if c.Attribute != record.Columns[i] {
			return v.fail(t.Field, "column %d is %q, want %q", i, c.Attribute, record.Columns[i])
		}
		if c.MaxWidth <= 0 {
			return v.fail(t.Field, "column %q max width %g", c.Attribute, c.MaxWidth)
		}
		if !v.inPage(c.X, t.StartY) || !v.inPage(c.X+c.MaxWidth, t.StartY) {
			return v.fail(t.Field, "column %q outside page", c.Attribute)
		}
	}
	return nil
}
