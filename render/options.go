package render

import (
	"io/fs"

	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/profile"
)

// Option configures an Engine created with New.
type Option func(*engineConfig)

type engineConfig struct {
	registry  *profile.Registry
	templates fs.FS
	assets    fs.FS
	policy    overlay.EncodingPolicy
	faces     overlay.FaceSource
}

// WithRegistry sets the layout profiles. The default is profile.Builtin.
func WithRegistry(r *profile.Registry) Option {
	return func(c *engineConfig) {
		c.registry = r
	}
}

// WithTemplateDir reads template PDFs from dir.
func WithTemplateDir(dir string) Option {
	return WithTemplates(dirFS(dir))
}

// WithTemplates reads template PDFs from fsys, for example an embed.FS.
func WithTemplates(fsys fs.FS) Option {
	return func(c *engineConfig) {
		c.templates = fsys
	}
}

// WithAssetDir reads images named by image areas from dir.
func WithAssetDir(dir string) Option {
	return WithAssets(dirFS(dir))
}

// WithAssets reads images named by image areas from fsys.
func WithAssets(fsys fs.FS) Option {
	return func(c *engineConfig) {
		c.assets = fsys
	}
}

// WithEncodingPolicy decides how characters outside the font are handled.
// The default is overlay.Substitute.
func WithEncodingPolicy(p overlay.EncodingPolicy) Option {
	return func(c *engineConfig) {
		c.policy = p
	}
}

// WithFaces sets the source of font metrics. Engines sharing one source
// share its measuring state.
func WithFaces(faces overlay.FaceSource) Option {
	return func(c *engineConfig) {
		c.faces = faces
	}
}
