// Package pageops composites content onto existing PDF pages.
//
// Templates are inspected with the reader package and imported page by page
// as form XObjects through gofpdi, so the original page content is carried
// over untouched and new content is painted on top of it.
package pageops

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/reader"
)

// SizeTolerance is how far, in points, a template page may differ from the
// expected page size.
const SizeTolerance = 1.0

// A4 size in points, used for pages without a usable media box.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

// source is a template document opened for import.
type source struct {
	doc *reader.Document
	rs  io.ReadSeeker
	imp *gofpdi.Importer
}

// openSource reads r completely and checks that it is a PDF with pages.
func openSource(r io.Reader) (*source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.NumPages() == 0 {
		return nil, actapdf.ErrNoPages
	}
	return &source{
		doc: doc,
		rs:  bytes.NewReader(data),
		imp: gofpdi.NewImporter(),
	}, nil
}

// pageSize returns the media box size of page n.
func (s *source) pageSize(n int) (w, h float64) {
	page, err := s.doc.Page(n)
	if err != nil || page.MediaBox.Width() <= 0 || page.MediaBox.Height() <= 0 {
		return a4Width, a4Height
	}
	return page.MediaBox.Width(), page.MediaBox.Height()
}

// checkSize fails with ErrPageSize when page 1 is not w by h.
func (s *source) checkSize(w, h float64) error {
	pw, ph := s.pageSize(1)
	if math.Abs(pw-w) > SizeTolerance || math.Abs(ph-h) > SizeTolerance {
		return fmt.Errorf("%w: template page is %.2fx%.2f, layout expects %.2fx%.2f",
			actapdf.ErrPageSize, pw, ph, w, h)
	}
	return nil
}

// placePage adds a page sized like template page n and paints the imported
// page on it. It returns the page size.
func (s *source) placePage(pdf *gofpdf.Fpdf, n int) (w, h float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing page %d: %v", n, r)
		}
	}()
	w, h = s.pageSize(n)
	tpl := s.imp.ImportPageFromStream(pdf, &s.rs, n, "/MediaBox")
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	s.imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)
	if err := pdf.Error(); err != nil {
		return 0, 0, fmt.Errorf("importing page %d: %w", n, err)
	}
	return w, h, nil
}

// newDocument returns an empty point-based document for compositing.
func newDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("actapdf", false)
	return pdf
}

// writeFile creates path and lets write fill it. The file is removed when
// write fails.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pageops: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pageops: %w", err)
	}
	return nil
}

// openFile opens a template path, reporting a missing file as
// ErrTemplateNotFound.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", actapdf.ErrTemplateNotFound, path)
	}
	return f, err
}
