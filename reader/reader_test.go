package reader_test

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/actapdf/internal/pdftest"
	"github.com/lvillar/actapdf/reader"
)

func mustParse(t *testing.T, data []byte) *reader.Document {
	t.Helper()
	doc, err := reader.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func pageText(t *testing.T, doc *reader.Document, n int) string {
	t.Helper()
	page, err := doc.Page(n)
	if err != nil {
		t.Fatal(err)
	}
	text, err := page.ExtractText()
	if err != nil {
		t.Fatalf("page %d: %v", n, err)
	}
	return text
}

func TestGeneratedDocument(t *testing.T) {
	doc := mustParse(t, pdftest.Pages(t, "Hello World", "Page Two", "Tercera página"))

	if doc.NumPages() != 3 {
		t.Fatalf("NumPages = %d, want 3", doc.NumPages())
	}
	if doc.Version == "" {
		t.Error("empty version")
	}
	for i, want := range []string{"Hello World", "Page Two", "Tercera página"} {
		if got := pageText(t, doc, i+1); got != want {
			t.Errorf("page %d text = %q, want %q", i+1, got, want)
		}
	}

	page, _ := doc.Page(1)
	if math.Abs(page.MediaBox.Width()-pdftest.A4Width) > 0.01 || math.Abs(page.MediaBox.Height()-pdftest.A4Height) > 0.01 {
		t.Errorf("MediaBox = %+v", page.MediaBox)
	}
}

func TestPageRange(t *testing.T) {
	doc := mustParse(t, pdftest.Pages(t, "A", "B"))
	for _, n := range []int{0, 3, -1} {
		if _, err := doc.Page(n); err == nil {
			t.Errorf("Page(%d) succeeded", n)
		}
	}
	count := 0
	for num, page := range doc.Pages() {
		count++
		if page.Number != num {
			t.Errorf("iterator yields %d for page %d", num, page.Number)
		}
	}
	if count != 2 {
		t.Errorf("iterated %d pages", count)
	}
}

func TestCustomPageSize(t *testing.T) {
	doc := mustParse(t, pdftest.Sized(t, 300, 200, "small"))
	page, _ := doc.Page(1)
	if page.MediaBox.Width() != 300 || page.MediaBox.Height() != 200 {
		t.Errorf("MediaBox = %+v", page.MediaBox)
	}
}

func TestMetadata(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Acta de recepción", true)
	pdf.SetAuthor("Electromedicina", false)
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}

	meta := mustParse(t, buf.Bytes()).Metadata()
	if meta["Title"] != "Acta de recepción" {
		t.Errorf("Title = %q", meta["Title"])
	}
	if meta["Author"] != "Electromedicina" {
		t.Errorf("Author = %q", meta["Author"])
	}
}

func TestEmptyPageTree(t *testing.T) {
	doc := mustParse(t, pdftest.Empty())
	if doc.NumPages() != 0 {
		t.Errorf("NumPages = %d", doc.NumPages())
	}
}

func TestRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("not a pdf at all"),
		"truncated": pdftest.Pages(t, "x")[:200],
	} {
		if _, err := reader.Parse(data); err == nil {
			t.Errorf("%s: Parse succeeded", name)
		}
	}
}

func TestEncryptedRejected(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, "user", "owner")
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := reader.Parse(buf.Bytes()); !errors.Is(err, reader.ErrEncrypted) {
		t.Fatalf("err = %v, want ErrEncrypted", err)
	}
}

func flate(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestFormXObjectText(t *testing.T) {
	form := flate(t, "BT /F1 10 Tf 20 20 Td (Inside the form) Tj ET")
	content := "BT /F1 10 Tf 20 80 Td (Page text) Tj ET q 1 0 0 1 0 0 cm /Fm0 Do Q"
	data := pdftest.Raw(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 200 100] >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /XObject << /Fm0 6 0 R >> >> >>",
		"<< /Length 5 0 R >>\nstream\n"+content+"\nendstream",
		fmt.Sprint(len(content)),
		pdftest.Stream("/Type /XObject /Subtype /Form /BBox [0 0 200 100] /Filter /FlateDecode", form),
	)
	doc := mustParse(t, data)

	page, _ := doc.Page(1)
	if page.MediaBox.Width() != 200 {
		t.Errorf("inherited MediaBox = %+v", page.MediaBox)
	}
	want := "Page text\nInside the form"
	if got := pageText(t, doc, 1); got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestTextOperators(t *testing.T) {
	content := `BT 10 10 Td [(Hel) -20 (lo) -600 (there)] TJ T* (second\051 line) ' ET ` +
		`BI /W 2 /H 1 /BPC 8 /CS /G ID ` + "\xffEIx EI" + ` BT (after image) Tj ET`
	data := pdftest.Raw(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 100] /Contents 4 0 R >>",
		pdftest.Stream("", content),
	)
	got := pageText(t, mustParse(t, data), 1)
	want := "Hello there\nsecond) line\nafter image"
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

// objectStreamPDF packs the catalog, page tree and page into an object
// stream indexed by a cross-reference stream.
func objectStreamPDF() []byte {
	packed := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 150] /Contents 4 0 R >>",
	}
	var header, body strings.Builder
	for i, obj := range packed {
		fmt.Fprintf(&header, "%d %d ", i+1, body.Len())
		body.WriteString(obj + "\n")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	off4 := buf.Len()
	buf.WriteString("4 0 obj\n" + pdftest.Stream("", "BT (Packed objects) Tj ET") + "\nendobj\n")
	off5 := buf.Len()
	objstm := header.String() + body.String()
	fmt.Fprintf(&buf, "5 0 obj\n%s\nendobj\n",
		pdftest.Stream(fmt.Sprintf("/Type /ObjStm /N 3 /First %d", header.Len()), objstm))
	off6 := buf.Len()

	row := func(kind byte, field2, field3 int) []byte {
		return []byte{kind, byte(field2 >> 8), byte(field2), byte(field3)}
	}
	var xref []byte
	xref = append(xref, row(0, 0, 255)...)
	for i := 0; i < 3; i++ {
		xref = append(xref, row(2, 5, i)...)
	}
	xref = append(xref, row(1, off4, 0)...)
	xref = append(xref, row(1, off5, 0)...)
	xref = append(xref, row(1, off6, 0)...)
	fmt.Fprintf(&buf, "6 0 obj\n<< /Type /XRef /Size 7 /W [1 2 1] /Root 1 0 R /Length %d >>\nstream\n", len(xref))
	buf.Write(xref)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", off6)
	return buf.Bytes()
}

func TestObjectStreams(t *testing.T) {
	doc := mustParse(t, objectStreamPDF())
	if doc.NumPages() != 1 {
		t.Fatalf("NumPages = %d", doc.NumPages())
	}
	page, _ := doc.Page(1)
	if page.MediaBox.Width() != 300 || page.MediaBox.Height() != 150 {
		t.Errorf("MediaBox = %+v", page.MediaBox)
	}
	if got := pageText(t, doc, 1); got != "Packed objects" {
		t.Errorf("text = %q", got)
	}
}

func TestIncrementalUpdate(t *testing.T) {
	base := pdftest.Raw(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 100] /Contents 4 0 R >>",
		pdftest.Stream("", "BT (old) Tj ET"),
	)
	prev := bytes.LastIndex(base, []byte("\nxref\n")) + 1

	var buf bytes.Buffer
	buf.Write(base)
	off := buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n%s\nendobj\n", pdftest.Stream("", "BT (new) Tj ET"))
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n4 1\n%010d 00000 n \ntrailer\n<< /Size 5 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", off, prev, xref)

	if got := pageText(t, mustParse(t, buf.Bytes()), 1); got != "new" {
		t.Errorf("text = %q, want the updated content", got)
	}
}
