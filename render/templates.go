package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"golang.org/x/text/unicode/norm"

	"github.com/lvillar/actapdf"
)

func dirFS(dir string) fs.FS {
	if dir == "" {
		dir = "."
	}
	return os.DirFS(dir)
}

// TemplateStore finds template PDFs by name.
//
// Names are compared in Unicode normal form C, so "recepción.pdf" typed with
// a precomposed ó finds a file stored with a combining accent, as some file
// systems do.
type TemplateStore struct {
	fsys fs.FS
}

// NewTemplateStore returns a store reading from fsys.
func NewTemplateStore(fsys fs.FS) *TemplateStore {
	return &TemplateStore{fsys: fsys}
}

// Resolve returns the path in the store of the template called name. A
// missing template wraps actapdf.ErrTemplateNotFound.
func (s *TemplateStore) Resolve(name string) (string, error) {
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: invalid name %q", actapdf.ErrTemplateNotFound, name)
	}
	if fi, err := fs.Stat(s.fsys, name); err == nil && !fi.IsDir() {
		return name, nil
	}

	dir, base := path.Split(name)
	dir = path.Clean(dir)
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading template directory: %w", err)
	}
	want := norm.NFC.String(base)
	for _, e := range entries {
		if !e.IsDir() && norm.NFC.String(e.Name()) == want {
			return path.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", actapdf.ErrTemplateNotFound, name)
}

// Open opens the template called name.
func (s *TemplateStore) Open(name string) (fs.File, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return s.fsys.Open(p)
}

// ReadFile returns the contents of the template called name.
func (s *TemplateStore) ReadFile(name string) ([]byte, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, p)
}
