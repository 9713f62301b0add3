// Command actapdf fills an acta template with a JSON record.
//
//	actapdf -profile recepcion -data acta.json -templates ./templates -out acta.pdf
//
// With -grid it instead draws a coordinate grid over the first page of a
// template, for measuring the positions of a new profile.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/lvillar/actapdf/config"
	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/pageops"
	"github.com/lvillar/actapdf/render"
)

type options struct {
	profile   string
	data      string
	templates string
	assets    string
	profiles  string
	out       string
	layer     string
	template  string
	strict    bool
	grid      bool
}

func main() {
	var o options
	flag.StringVar(&o.profile, "profile", "recepcion", "form variant (recepcion, baja or a custom profile)")
	flag.StringVar(&o.data, "data", "-", "JSON record file, - for stdin")
	flag.StringVar(&o.templates, "templates", ".", "directory holding the template PDFs")
	flag.StringVar(&o.assets, "assets", "", "directory holding signature and stamp images (default: -templates)")
	flag.StringVar(&o.profiles, "profiles", "", "YAML file with extra or replacement profiles")
	flag.StringVar(&o.out, "out", "", "output PDF (default Acta_Rellenada.pdf, or Acta_Con_Rejilla.pdf with -grid)")
	flag.StringVar(&o.layer, "layer", "", "also write the computed layer as JSON to this path")
	flag.StringVar(&o.template, "template", "", "template PDF for -grid when no profile covers it yet")
	flag.BoolVar(&o.strict, "strict", false, "fail on characters the font cannot print instead of replacing them")
	flag.BoolVar(&o.grid, "grid", false, "draw a coordinate grid instead of filling the form")
	flag.Parse()

	if err := run(o, os.Stdin); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run(o options, stdin io.Reader) error {
	if o.out == "" {
		o.out = "Acta_Rellenada.pdf"
		if o.grid {
			o.out = "Acta_Con_Rejilla.pdf"
		}
	}
	if o.grid && o.template != "" {
		if err := pageops.AddGridFile(o.template, o.out, pageops.GridOptions{}); err != nil {
			return err
		}
		log.Printf("[INFO] grid written to %s", o.out)
		return nil
	}

	engine, err := newEngine(o)
	if err != nil {
		return err
	}
	if o.grid {
		var buf bytes.Buffer
		if err := engine.Grid(&buf, o.profile); err != nil {
			return err
		}
		if err := writeOutput(o.out, buf.Bytes()); err != nil {
			return err
		}
		log.Printf("[INFO] grid written to %s", o.out)
		return nil
	}

	data, err := readData(o.data, stdin)
	if err != nil {
		return err
	}
	rec, err := engine.DecodeRecord(o.profile, data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	layer, err := engine.Render(&buf, rec, o.profile)
	if err != nil {
		return err
	}
	if o.layer != "" {
		if err := overlay.WriteDebugJSON(layer, o.layer); err != nil {
			return err
		}
		log.Printf("[INFO] layer written to %s", o.layer)
	}
	if err := writeOutput(o.out, buf.Bytes()); err != nil {
		return err
	}
	logReport(layer)
	log.Printf("[INFO] acta %s written to %s", layer.Profile, o.out)
	return nil
}

func newEngine(o options) (*render.Engine, error) {
	opts := []render.Option{render.WithTemplateDir(o.templates)}
	if o.assets != "" {
		opts = append(opts, render.WithAssetDir(o.assets))
	}
	if o.strict {
		opts = append(opts, render.WithEncodingPolicy(overlay.Strict))
	}
	if o.profiles != "" {
		reg, err := config.LoadProfiles(o.profiles)
		if err != nil {
			return nil, err
		}
		opts = append(opts, render.WithRegistry(reg))
	}
	return render.New(opts...)
}

func readData(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func logReport(layer *overlay.Layer) {
	rep := layer.Report
	for _, o := range rep.Overflowed {
		if o.Column != "" {
			log.Printf("[WARN] %s row %d column %s does not fit at %.1fpt", o.Field, o.Row+1, o.Column, o.Size)
			continue
		}
		log.Printf("[WARN] %s does not fit its box at %.1fpt", o.Field, o.Size)
	}
	if rep.RowsDropped > 0 {
		log.Printf("[WARN] %d of %d component rows left out", rep.RowsDropped, rep.RowsDropped+rep.RowsRendered)
	}
	for _, s := range rep.Substitutions {
		log.Printf("[WARN] %s: %s %q printed as %q", s.Field, s.Code, s.Char, string(overlay.Placeholder))
	}
}
