// Package render ties the pieces together: it resolves a layout profile,
// composes the record onto it and merges the result with the profile's
// template PDF.
//
// An Engine is safe for concurrent use. Each render gets its own PDF
// document, so independent requests do not share state beyond the
// read-only registry and the font metrics.
package render

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/metrics"
	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/pageops"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/record"
)

// Engine renders records onto template PDFs.
type Engine struct {
	registry  *profile.Registry
	templates *TemplateStore
	assets    fs.FS
	composer  *overlay.Composer
}

// New returns an Engine. Without options it uses the built-in profiles,
// reads templates and assets from the working directory and substitutes
// characters the font cannot draw.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{policy: overlay.Substitute}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.registry == nil {
		r, err := profile.Builtin()
		if err != nil {
			return nil, err
		}
		cfg.registry = r
	}
	if cfg.templates == nil {
		cfg.templates = dirFS(".")
	}
	if cfg.assets == nil {
		cfg.assets = cfg.templates
	}
	if cfg.faces == nil {
		cfg.faces = metrics.NewSet()
	}
	return &Engine{
		registry:  cfg.registry,
		templates: NewTemplateStore(cfg.templates),
		assets:    cfg.assets,
		composer:  overlay.NewComposer(cfg.faces, overlay.WithEncodingPolicy(cfg.policy)),
	}, nil
}

// Registry returns the engine's profiles.
func (e *Engine) Registry() *profile.Registry { return e.registry }

// Templates returns the engine's template store.
func (e *Engine) Templates() *TemplateStore { return e.templates }

// Profile resolves a profile name or alias.
func (e *Engine) Profile(name string) (*profile.Profile, error) {
	return e.registry.Resolve(name)
}

// DecodeRecord decodes a flat JSON object for the named profile, so that
// the profile's choice fields become Choice values.
func (e *Engine) DecodeRecord(profileName string, data []byte) (record.Record, error) {
	p, err := e.registry.Resolve(profileName)
	if err != nil {
		return record.Record{}, err
	}
	return record.Decode(data, p.ChoiceFields()...)
}

// Layer composes rec onto the named profile without touching the template.
func (e *Engine) Layer(rec record.Record, profileName string) (*overlay.Layer, error) {
	p, err := e.registry.Resolve(profileName)
	if err != nil {
		return nil, err
	}
	return e.composer.Render(rec, p)
}

// Render writes the filled template for rec to w and returns the layer
// that was drawn, whose Report tells what had to be shrunk, cut or
// replaced. Nothing is written when an error is returned.
func (e *Engine) Render(w io.Writer, rec record.Record, profileName string) (*overlay.Layer, error) {
	layer, err := e.Layer(rec, profileName)
	if err != nil {
		return nil, err
	}
	tpl, err := e.openTemplate(layer.Profile, layer.Template)
	if err != nil {
		return nil, err
	}
	defer tpl.Close()

	var buf bytes.Buffer
	if err := pageops.Merge(&buf, tpl, layer, pageops.MergeOptions{Assets: e.assets}); err != nil {
		return nil, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return nil, fmt.Errorf("render: write output: %w", err)
	}
	return layer, nil
}

// RenderFile is Render writing to the file at path. The file is only
// created when rendering succeeds.
func (e *Engine) RenderFile(rec record.Record, profileName, path string) (*overlay.Layer, error) {
	var buf bytes.Buffer
	layer, err := e.Render(&buf, rec, profileName)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return layer, nil
}

// Grid writes the named profile's template with a coordinate grid drawn
// over its first page.
func (e *Engine) Grid(w io.Writer, profileName string) error {
	p, err := e.registry.Resolve(profileName)
	if err != nil {
		return err
	}
	tpl, err := e.openTemplate(p.Name, p.Template)
	if err != nil {
		return err
	}
	defer tpl.Close()
	return pageops.AddGrid(w, tpl, pageops.GridOptions{Name: p.Template})
}

func (e *Engine) openTemplate(profileName, name string) (fs.File, error) {
	f, err := e.templates.Open(name)
	if err != nil {
		return nil, actapdf.NewTemplateError(profileName, name, err)
	}
	return f, nil
}
