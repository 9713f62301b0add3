package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io/fs"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
	"golang.org/x/image/tiff"

	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/profile"
)

// PDF417 shape used for code areas.
const (
	pdf417Columns  = 10
	pdf417Security = 2
)

// drawer paints layer operations onto the current page of a document.
// Layer coordinates have their origin at the bottom-left of the page,
// gofpdf's at the top-left.
type drawer struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	assets fs.FS
	images map[string]string // asset name to registered image name
}

func newDrawer(pdf *gofpdf.Fpdf, assets fs.FS) *drawer {
	return &drawer{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		assets: assets,
		images: make(map[string]string),
	}
}

// layer draws every operation of l on a page of height pageH.
func (d *drawer) layer(l *overlay.Layer, pageH float64) error {
	d.pdf.SetTextColor(0, 0, 0)
	for i, op := range l.Ops {
		var err error
		switch op.Kind {
		case overlay.OpText, overlay.OpMark, overlay.OpParagraph, overlay.OpCell:
			d.text(op, pageH)
		case overlay.OpCode:
			err = d.code(op, pageH)
		case overlay.OpImage:
			err = d.image(op, pageH)
		default:
			err = fmt.Errorf("unknown operation kind %q", op.Kind)
		}
		if err == nil {
			err = d.pdf.Error()
		}
		if err != nil {
			return fmt.Errorf("pageops: %s op %d (%s): %w", l.Profile, i, op.Field, err)
		}
	}
	return nil
}

func (d *drawer) text(op overlay.Op, pageH float64) {
	d.pdf.SetFont(op.Font, op.Style, op.Size)
	d.pdf.Text(op.X, pageH-op.Y, d.tr(op.Text))
}

func (d *drawer) code(op overlay.Op, pageH float64) error {
	var key string
	switch op.Symbology {
	case profile.Code128, "":
		key = barcode.RegisterCode128(d.pdf, op.Text)
	case profile.QR:
		key = barcode.RegisterQR(d.pdf, op.Text, qr.M, qr.Auto)
	case profile.PDF417:
		key = barcode.RegisterPdf417(d.pdf, op.Text, pdf417Columns, pdf417Security)
	default:
		return fmt.Errorf("unknown symbology %q", op.Symbology)
	}
	if err := d.pdf.Error(); err != nil {
		return err
	}
	barcode.Barcode(d.pdf, key, op.X, pageH-op.Y-op.Height, op.Width, op.Height, false)
	return nil
}

func (d *drawer) image(op overlay.Op, pageH float64) error {
	name, err := d.register(op.Text)
	if err != nil {
		return err
	}
	d.pdf.ImageOptions(name, op.X, pageH-op.Y-op.Height, op.Width, op.Height,
		false, gofpdf.ImageOptions{}, 0, "")
	return nil
}

// register loads an asset once per document and returns its image name.
func (d *drawer) register(asset string) (string, error) {
	if name, ok := d.images[asset]; ok {
		return name, nil
	}
	if d.assets == nil {
		return "", errors.New("no asset source for images")
	}
	data, err := fs.ReadFile(d.assets, asset)
	if err != nil {
		return "", err
	}
	data, kind, err := imageData(data)
	if err != nil {
		return "", fmt.Errorf("asset %q: %w", asset, err)
	}
	name := fmt.Sprintf("asset%d", len(d.images))
	d.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(data))
	if err := d.pdf.Error(); err != nil {
		return "", fmt.Errorf("asset %q: %w", asset, err)
	}
	d.images[asset] = name
	return name, nil
}

// imageData returns data in a format gofpdf embeds directly, with its gofpdf
// image type. TIFF scans are converted to PNG.
func imageData(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return data, "PNG", nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return data, "JPG", nil
	case bytes.HasPrefix(data, []byte("GIF8")):
		return data, "GIF", nil
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", err
		}
		// gofpdf only embeds 8-bit PNGs.
		flat := image.NewNRGBA(img.Bounds())
		draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Src)
		var buf bytes.Buffer
		if err := png.Encode(&buf, flat); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "PNG", nil
	}
	return nil, "", errors.New("unsupported image format")
}
