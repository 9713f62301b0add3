// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Pages renders an A4 document with one page per entry of texts. Each text
// is drawn in Helvetica 12 with its baseline 100pt below the top edge.
func Pages(tb testing.TB, texts ...string) []byte {
	tb.Helper()
	return Sized(tb, A4Width, A4Height, texts...)
}

// Sized is Pages with a custom page size.
func Sized(tb testing.TB, width, height float64, texts ...string) []byte {
	tb.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, text := range texts {
		pdf.AddPage()
		pdf.Text(50, 100, tr(text))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		tb.Fatalf("pdftest: %v", err)
	}
	return buf.Bytes()
}

// Raw assembles a PDF from object bodies numbered from 1 with a classic
// cross-reference table. Object 1 must be the catalog.
func Raw(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Stream formats a stream object body with a direct /Length. extra is
// spliced into the stream dictionary.
func Stream(extra, data string) string {
	return fmt.Sprintf("<< /Length %d %s >>\nstream\n%s\nendstream", len(data), extra, data)
}

// Empty returns a well-formed document whose page tree has no pages.
func Empty() []byte {
	return Raw(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	)
}

// WriteFile stores data as dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatal(err)
	}
	return path
}
