package render

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/lvillar/actapdf"
)

func TestTemplateStoreResolve(t *testing.T) {
	const (
		composed   = "forms/Acta recepci\u00f3n.pdf"
		decomposed = "forms/Acta recepcio\u0301n.pdf"
	)
	tests := []struct {
		name   string
		stored string
		ask    string
	}{
		{"exact", composed, composed},
		{"stored decomposed", decomposed, composed},
		{"stored composed", composed, decomposed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTemplateStore(fstest.MapFS{tt.stored: {Data: []byte("%PDF-1.4")}})
			got, err := s.Resolve(tt.ask)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.stored {
				t.Errorf("Resolve = %q, want %q", got, tt.stored)
			}
			data, err := s.ReadFile(tt.ask)
			if err != nil || string(data) != "%PDF-1.4" {
				t.Errorf("ReadFile = %q, %v", data, err)
			}
		})
	}
}

func TestTemplateStoreMissing(t *testing.T) {
	s := NewTemplateStore(fstest.MapFS{
		"baja.pdf":          {Data: []byte("x")},
		"sub/recepcion.pdf": {Data: []byte("x")},
	})
	for _, name := range []string{"", "alta.pdf", "../baja.pdf", "/baja.pdf", "nodir/baja.pdf", "sub"} {
		if _, err := s.Resolve(name); !errors.Is(err, actapdf.ErrTemplateNotFound) {
			t.Errorf("Resolve(%q): err = %v, want ErrTemplateNotFound", name, err)
		}
	}
	if _, err := s.Open("alta.pdf"); !errors.Is(err, actapdf.ErrTemplateNotFound) {
		t.Errorf("Open: err = %v", err)
	}
}
