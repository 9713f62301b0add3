package pageops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/overlay"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// Assets resolves the names carried by image operations. Layers
	// without image operations do not need it.
	Assets fs.FS
}

// Merge writes template to w with layer painted on its first page. Every
// other page is carried over unchanged.
//
// Problems with the template itself are reported as *actapdf.TemplateError:
// unreadable input, a document without pages, a first page whose size is
// not the layer's, or a page the importer cannot handle.
func Merge(w io.Writer, template io.Reader, layer *overlay.Layer, opts MergeOptions) error {
	if layer == nil {
		return errors.New("pageops: nil layer")
	}
	tplErr := func(err error) error {
		return actapdf.NewTemplateError(layer.Profile, layer.Template, err)
	}

	src, err := openSource(template)
	if err != nil {
		return tplErr(err)
	}
	if err := src.checkSize(layer.PageWidth, layer.PageHeight); err != nil {
		return tplErr(err)
	}

	pdf := newDocument()
	d := newDrawer(pdf, opts.Assets)
	for n := 1; n <= src.doc.NumPages(); n++ {
		_, h, err := src.placePage(pdf, n)
		if err != nil {
			return tplErr(err)
		}
		if n == 1 {
			if err := d.layer(layer, h); err != nil {
				return err
			}
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pageops: writing %s: %w", layer.Profile, err)
	}
	return nil
}

// MergeFile is Merge reading the template from templatePath and writing the
// result to outputPath.
func MergeFile(templatePath, outputPath string, layer *overlay.Layer, opts MergeOptions) error {
	f, err := openFile(templatePath)
	if err != nil {
		if layer != nil {
			return actapdf.NewTemplateError(layer.Profile, templatePath, err)
		}
		return err
	}
	defer f.Close()
	return writeFile(outputPath, func(w io.Writer) error {
		return Merge(w, f, layer, opts)
	})
}
