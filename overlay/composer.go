// Package overlay turns a record and a layout profile into the list of draw
// operations for a form's first page.
//
// Composition is pure: it measures text but performs no I/O, and the same
// record and profile always produce an identical Layer.
package overlay

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/fit"
	"github.com/lvillar/actapdf/metrics"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/record"
)

// EncodingPolicy decides what happens to characters the font cannot draw.
type EncodingPolicy int

const (
	// Substitute replaces unsupported characters with Placeholder and lists
	// them in the layer report.
	Substitute EncodingPolicy = iota
	// Strict fails the render with an *actapdf.EncodingError.
	Strict
)

// Placeholder replaces unsupported characters under Substitute.
const Placeholder = '?'

func (p EncodingPolicy) String() string {
	switch p {
	case Substitute:
		return "substitute"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("EncodingPolicy(%d)", int(p))
}

// ParsePolicy parses "substitute" or "strict". The empty string selects
// Substitute.
func ParsePolicy(s string) (EncodingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substitute":
		return Substitute, nil
	case "strict":
		return Strict, nil
	}
	return Substitute, fmt.Errorf("overlay: unknown encoding policy %q", s)
}

// FaceSource provides measuring faces. *metrics.Set implements it.
type FaceSource interface {
	Face(family, style string) (metrics.Face, error)
}

// Composer builds layers. It holds no per-render state and is safe for
// concurrent use when its FaceSource is.
type Composer struct {
	faces  FaceSource
	policy EncodingPolicy
}

// Option configures a Composer.
type Option func(*Composer)

// WithEncodingPolicy sets the policy for unsupported characters.
func WithEncodingPolicy(p EncodingPolicy) Option {
	return func(c *Composer) {
		c.policy = p
	}
}

// NewComposer returns a Composer measuring with faces. A nil faces uses a
// fresh metrics.Set.
func NewComposer(faces FaceSource, opts ...Option) *Composer {
	if faces == nil {
		faces = metrics.NewSet()
	}
	c := &Composer{faces: faces}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the composer's encoding policy.
func (c *Composer) Policy() EncodingPolicy { return c.policy }

// Render composes rec onto p. Fields without geometry in p are ignored,
// and fields of p missing from rec draw nothing.
//
// Operations come out grouped as text anchors, marks, paragraphs, table
// cells, codes and images, each group ordered by field name.
func (c *Composer) Render(rec record.Record, p *profile.Profile) (*Layer, error) {
	face, err := c.faces.Face(p.Font.Family, p.Font.Style)
	if err != nil {
		return nil, actapdf.NewConfigurationError(p.Name, "", err)
	}
	r := &run{
		c:    c,
		p:    p,
		rec:  rec,
		face: face,
		layer: &Layer{
			Profile:    p.Name,
			Template:   p.Template,
			PageWidth:  p.Page.Width,
			PageHeight: p.Page.Height,
			Ops:        []Op{},
		},
	}
	steps := []func() error{r.text, r.marks, r.paragraphs, r.table, r.codes, r.images}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	rep := &r.layer.Report
	rep.Truncated = len(rep.Overflowed) > 0 || rep.RowsDropped > 0
	return r.layer, nil
}

// run is the state of one Render call.
type run struct {
	c     *Composer
	p     *profile.Profile
	rec   record.Record
	face  metrics.Face
	layer *Layer
}

func (r *run) emit(op Op) {
	r.layer.Ops = append(r.layer.Ops, op)
}

func (r *run) textOp(kind OpKind, field, text string, x, y, size float64) Op {
	return Op{
		Kind:  kind,
		Field: field,
		X:     x,
		Y:     y,
		Font:  r.face.Family(),
		Style: r.face.Style(),
		Size:  size,
		Text:  text,
	}
}

// textValue returns the text of a Text value of field.
func (r *run) textValue(field string) (string, bool) {
	v, ok := r.rec.Get(field)
	if !ok {
		return "", false
	}
	return v.Text()
}

func (r *run) text() error {
	for _, field := range profile.SortedKeys(r.p.Text) {
		s, ok := r.textValue(field)
		if !ok || s == "" {
			continue
		}
		s, err := r.sanitize(field, s)
		if err != nil {
			return err
		}
		pt := r.p.Text[field]
		r.emit(r.textOp(OpText, field, s, pt.X, pt.Y, r.p.Font.Size))
	}
	return nil
}

func (r *run) marks() error {
	for _, field := range profile.SortedKeys(r.p.Marks) {
		v, ok := r.rec.Get(field)
		if !ok {
			continue
		}
		tag, ok := markTag(v)
		if !ok {
			continue
		}
		pt, ok := r.p.Marks[field][tag]
		if !ok {
			continue
		}
		r.emit(r.textOp(OpMark, field, r.p.Tick, pt.X, pt.Y, r.p.Font.Size))
	}
	return nil
}

// markTag maps a value to the key of its mark position.
func markTag(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindBool:
		b, _ := v.Bool()
		if b {
			return "true", true
		}
		return "false", true
	case record.KindChoice:
		s, _ := v.Choice()
		return profile.NormalizeTag(s), true
	case record.KindText:
		s, _ := v.Text()
		tag := profile.NormalizeTag(s)
		return tag, tag != ""
	}
	return "", false
}

func (r *run) paragraphs() error {
	for _, field := range profile.SortedKeys(r.p.Paragraphs) {
		s, ok := r.textValue(field)
		if !ok {
			continue
		}
		s, err := r.sanitize(field, s)
		if err != nil {
			return err
		}
		area := r.p.Paragraphs[field]
		start := r.p.ParagraphSize(area)
		block := fit.Paragraph(r.face, s, area.Box(), fit.DefaultParams(start), fit.DefaultLineSpacing)
		if block.Overflow {
			r.layer.Report.Overflowed = append(r.layer.Report.Overflowed, Overflow{Field: field, Size: block.Size})
		}
		for _, l := range block.Lines {
			r.emit(r.textOp(OpParagraph, field, l.Text, l.X, l.Y, block.Size))
		}
	}
	return nil
}

func (r *run) table() error {
	t := r.p.Table
	if t == nil {
		return nil
	}
	v, ok := r.rec.Get(t.Field)
	if !ok || v.Kind() != record.KindRows {
		return nil
	}
	rep := &r.layer.Report
	for i := 0; i < v.Len(); i++ {
		y := t.StartY - float64(i)*t.RowHeight
		if y < t.Margin {
			rep.RowsDropped = v.Len() - i
			break
		}
		row := v.Row(i)
		for _, col := range t.Columns {
			cell, _ := row.Cell(col.Attribute)
			cell, err := r.sanitize(t.Field, cell)
			if err != nil {
				return err
			}
			line := fit.SingleLine(r.face, cell, col.MaxWidth, fit.DefaultParams(t.FontSize))
			if line.Overflow {
				rep.Overflowed = append(rep.Overflowed, Overflow{Field: t.Field, Row: i, Column: col.Attribute, Size: line.Size})
			}
			op := r.textOp(OpCell, t.Field, line.Text, col.X, y, line.Size)
			op.Row = i
			op.Column = col.Attribute
			r.emit(op)
		}
		rep.RowsRendered++
	}
	return nil
}

func (r *run) codes() error {
	for _, field := range profile.SortedKeys(r.p.Codes) {
		s, ok := r.textValue(field)
		if !ok || s == "" {
			continue
		}
		a := r.p.Codes[field]
		r.emit(Op{
			Kind:      OpCode,
			Field:     field,
			X:         a.X,
			Y:         a.Y,
			Text:      s,
			Width:     a.Width,
			Height:    a.Height,
			Symbology: a.Symbology,
		})
	}
	return nil
}

func (r *run) images() error {
	for _, field := range profile.SortedKeys(r.p.Images) {
		s, ok := r.textValue(field)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		a := r.p.Images[field]
		r.emit(Op{
			Kind:   OpImage,
			Field:  field,
			X:      a.X,
			Y:      a.Y,
			Text:   strings.TrimSpace(s),
			Width:  a.Width,
			Height: a.Height,
		})
	}
	return nil
}

// sanitize folds whitespace to spaces and applies the encoding policy to
// runes the face cannot draw.
func (r *run) sanitize(field, s string) (string, error) {
	if _, bad := metrics.FirstUnsupported(r.face, s); !bad {
		return s, nil
	}
	var b strings.Builder
	seen := make(map[rune]bool)
	for _, ch := range s {
		switch {
		case r.face.Covers(ch):
			b.WriteRune(ch)
		case unicode.IsSpace(ch):
			b.WriteRune(' ')
		case r.c.policy == Strict:
			return "", &actapdf.EncodingError{Profile: r.p.Name, Field: field, Rune: ch}
		default:
			b.WriteRune(Placeholder)
			if !seen[ch] {
				seen[ch] = true
				r.layer.Report.Substitutions = append(r.layer.Report.Substitutions, Substitution{
					Field: field,
					Char:  string(ch),
					Code:  fmt.Sprintf("%U", ch),
				})
			}
		}
	}
	return b.String(), nil
}
