package reader

import (
	"errors"
	"fmt"
)

// Rectangle is a PDF rectangle [llx lly urx ury] in points.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of r.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent of r.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Page is one leaf of the page tree with its inherited attributes resolved.
type Page struct {
	Number    int
	MediaBox  Rectangle
	CropBox   *Rectangle
	Resources Dict
	Rotate    int
	Contents  []Stream

	doc *Document
}

// ContentStream returns the page's content streams decoded and joined.
func (p *Page) ContentStream() ([]byte, error) {
	var out []byte
	for _, s := range p.Contents {
		data, err := decodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("reader: page %d content: %w", p.Number, err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}

func parseRectangle(obj Object) (Rectangle, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, errors.New("reader: rectangle must be a 4-element array")
	}
	var v [4]float64
	for i, o := range arr {
		n, ok := number(o)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is not a number", i)
		}
		v[i] = n
	}
	return Rectangle{
		LLX: min(v[0], v[2]), LLY: min(v[1], v[3]),
		URX: max(v[0], v[2]), URY: max(v[1], v[3]),
	}, nil
}

// inheritable are the page attributes a /Pages node passes to its kids.
var inheritable = []Name{"MediaBox", "CropBox", "Resources", "Rotate"}

func (d *Document) buildPageList() error {
	root, ok := d.deref(d.trailer["Root"]).(Dict)
	if !ok {
		return errors.New("reader: missing document catalog")
	}
	pages, ok := d.deref(root["Pages"]).(Dict)
	if !ok {
		return errors.New("reader: catalog has no page tree")
	}
	d.pages = nil
	return d.walkPages(pages, Dict{}, make(map[Reference]bool), 0)
}

func (d *Document) walkPages(node, inherited Dict, seen map[Reference]bool, depth int) error {
	if depth > maxDepth {
		return errors.New("reader: page tree too deep")
	}
	attrs := make(Dict, len(inheritable))
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			attrs[key] = v
		} else if v, ok := inherited[key]; ok {
			attrs[key] = v
		}
	}

	kids, hasKids := d.deref(node["Kids"]).(Array)
	if node.GetName("Type") == "Page" || (!hasKids && node.GetName("Type") != "Pages") {
		d.pages = append(d.pages, d.newPage(node, attrs))
		return nil
	}

	for _, kid := range kids {
		if ref, ok := kid.(Reference); ok {
			if seen[ref] {
				return fmt.Errorf("reader: page tree cycle at %s", ref)
			}
			seen[ref] = true
		}
		child, ok := d.deref(kid).(Dict)
		if !ok {
			continue
		}
		if err := d.walkPages(child, attrs, seen, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) newPage(node, attrs Dict) *Page {
	page := &Page{Number: len(d.pages) + 1, doc: d}
	if r, err := parseRectangle(d.deref(attrs["MediaBox"])); err == nil {
		page.MediaBox = r
	}
	if r, err := parseRectangle(d.deref(attrs["CropBox"])); err == nil {
		page.CropBox = &r
	}
	page.Resources, _ = d.deref(attrs["Resources"]).(Dict)
	if n, ok := number(d.deref(attrs["Rotate"])); ok {
		page.Rotate = int(n)
	}

	switch c := d.deref(node["Contents"]).(type) {
	case Stream:
		page.Contents = []Stream{c}
	case Array:
		for _, item := range c {
			if s, ok := d.deref(item).(Stream); ok {
				page.Contents = append(page.Contents, s)
			}
		}
	}
	return page
}
