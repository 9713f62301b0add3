// Package profile holds the layout geometry of each printed form variant.
//
// A Profile says where every field of a record goes on the first page of its
// template: anchors for short text, candidate tick positions for boolean and
// choice fields, boxes for free text paragraphs and, optionally, the
// component table. Coordinates are PDF points with the origin at the
// bottom-left corner of the page.
//
// Profiles are plain data. They are loaded from YAML, validated once by
// NewRegistry and treated as read-only afterwards.
package profile

import (
	"sort"
	"strings"

	"github.com/lvillar/actapdf/fit"
	"github.com/lvillar/actapdf/metrics"
	"github.com/lvillar/actapdf/record"
)

// Defaults applied to fields a profile leaves empty.
const (
	DefaultFontSize    = 10.0
	DefaultTick        = "X"
	DefaultTableField  = "components"
	DefaultTableMargin = 50.0
	A4Width            = 595.28
	A4Height           = 841.89
)

// Symbologies accepted by code areas.
const (
	Code128 = "code128"
	QR      = "qr"
	PDF417  = "pdf417"
)

// Point is an anchor position.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Area is a free text box. FontSize is the size the fitter starts from;
// zero means the profile font size.
type Area struct {
	X        float64 `yaml:"x" json:"x"`
	StartY   float64 `yaml:"startY" json:"startY"`
	MinY     float64 `yaml:"minY" json:"minY"`
	MaxWidth float64 `yaml:"maxWidth" json:"maxWidth"`
	FontSize float64 `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
}

// Box returns the area as a fitting box.
func (a Area) Box() fit.Box {
	return fit.Box{X: a.X, StartY: a.StartY, MinY: a.MinY, MaxWidth: a.MaxWidth}
}

// Column places one component row attribute.
type Column struct {
	Attribute string  `yaml:"attribute" json:"attribute"`
	X         float64 `yaml:"x" json:"x"`
	MaxWidth  float64 `yaml:"maxWidth" json:"maxWidth"`
}

// Table places the component rows. Row i has its baseline at
// StartY - i*RowHeight; rows whose baseline would fall below Margin are not
// drawn.
type Table struct {
	Field     string   `yaml:"field,omitempty" json:"field"`
	StartY    float64  `yaml:"startY" json:"startY"`
	RowHeight float64  `yaml:"rowHeight" json:"rowHeight"`
	Margin    float64  `yaml:"margin,omitempty" json:"margin"`
	FontSize  float64  `yaml:"fontSize,omitempty" json:"fontSize"`
	Columns   []Column `yaml:"columns" json:"columns"`
}

// Capacity returns how many rows fit above the margin.
func (t *Table) Capacity() int {
	if t.RowHeight <= 0 || t.StartY < t.Margin {
		return 0
	}
	return int((t.StartY-t.Margin)/t.RowHeight) + 1
}

// CodeArea draws a text value as a barcode.
type CodeArea struct {
	X         float64 `yaml:"x" json:"x"`
	Y         float64 `yaml:"y" json:"y"`
	Width     float64 `yaml:"width" json:"width"`
	Height    float64 `yaml:"height" json:"height"`
	Symbology string  `yaml:"symbology" json:"symbology"`
}

// ImageArea draws the image asset named by a text value, such as a scanned
// signature or stamp. X and Y are the bottom-left corner.
type ImageArea struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Font is the core font used for every string drawn by the profile.
type Font struct {
	Family string  `yaml:"family" json:"family"`
	Style  string  `yaml:"style,omitempty" json:"style,omitempty"`
	Size   float64 `yaml:"size" json:"size"`
}

// PageSize is the size of the template's first page.
type PageSize struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Profile is the geometry of one form variant.
type Profile struct {
	Name        string   `yaml:"name" json:"name"`
	Aliases     []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	// Template identifies the PDF asset the overlay is drawn on.
	Template string   `yaml:"template" json:"template"`
	Page     PageSize `yaml:"page,omitempty" json:"page"`
	Font     Font     `yaml:"font,omitempty" json:"font"`
	Tick     string   `yaml:"tick,omitempty" json:"tick"`

	Text       map[string]Point            `yaml:"text,omitempty" json:"text,omitempty"`
	Marks      map[string]map[string]Point `yaml:"marks,omitempty" json:"marks,omitempty"`
	Paragraphs map[string]Area             `yaml:"paragraphs,omitempty" json:"paragraphs,omitempty"`
	Table      *Table                      `yaml:"table,omitempty" json:"table,omitempty"`
	Codes      map[string]CodeArea         `yaml:"codes,omitempty" json:"codes,omitempty"`
	Images     map[string]ImageArea        `yaml:"images,omitempty" json:"images,omitempty"`
}

// ApplyDefaults fills unset font, page, tick and table settings.
func (p *Profile) ApplyDefaults() {
	if p.Font.Family == "" {
		p.Font.Family = metrics.DefaultFamily
	}
	if p.Font.Size == 0 {
		p.Font.Size = DefaultFontSize
	}
	if p.Page.Width == 0 && p.Page.Height == 0 {
		p.Page = PageSize{Width: A4Width, Height: A4Height}
	}
	if p.Tick == "" {
		p.Tick = DefaultTick
	}
	for field, set := range p.Marks {
		norm := make(map[string]Point, len(set))
		for tag, pt := range set {
			norm[NormalizeTag(tag)] = pt
		}
		p.Marks[field] = norm
	}
	if t := p.Table; t != nil {
		if t.Field == "" {
			t.Field = DefaultTableField
		}
		if t.Margin == 0 {
			t.Margin = DefaultTableMargin
		}
		if t.FontSize == 0 {
			t.FontSize = p.Font.Size
		}
		for i := range t.Columns {
			if t.Columns[i].Attribute == "" && i < len(record.Columns) {
				t.Columns[i].Attribute = record.Columns[i]
			}
		}
	}
}

// ParagraphSize returns the start size of a paragraph area.
func (p *Profile) ParagraphSize(a Area) float64 {
	if a.FontSize > 0 {
		return a.FontSize
	}
	return p.Font.Size
}

// ChoiceFields returns, sorted, the mark fields whose tags are not a
// boolean pair. Their string values decode as choices.
func (p *Profile) ChoiceFields() []string {
	var fields []string
	for field, set := range p.Marks {
		for tag := range set {
			if tag != "true" && tag != "false" {
				fields = append(fields, field)
				break
			}
		}
	}
	sort.Strings(fields)
	return fields
}

// Fields returns every field name the profile places, sorted.
func (p *Profile) Fields() []string {
	var fields []string
	fields = append(fields, SortedKeys(p.Text)...)
	fields = append(fields, SortedKeys(p.Marks)...)
	fields = append(fields, SortedKeys(p.Paragraphs)...)
	fields = append(fields, SortedKeys(p.Codes)...)
	fields = append(fields, SortedKeys(p.Images)...)
	if p.Table != nil {
		fields = append(fields, p.Table.Field)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Aliases = append([]string(nil), p.Aliases...)
	c.Text = cloneMap(p.Text)
	c.Paragraphs = cloneMap(p.Paragraphs)
	c.Codes = cloneMap(p.Codes)
	c.Images = cloneMap(p.Images)
	if p.Marks != nil {
		c.Marks = make(map[string]map[string]Point, len(p.Marks))
		for k, v := range p.Marks {
			c.Marks[k] = cloneMap(v)
		}
	}
	if p.Table != nil {
		t := *p.Table
		t.Columns = append([]Column(nil), p.Table.Columns...)
		c.Table = &t
	}
	return &c
}

// NormalizeTag folds a mark tag or a record value to the form used as a
// mark key.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// SortedKeys returns the keys of m in sorted order.
func SortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
