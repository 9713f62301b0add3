package metrics

import (
	"strings"
	"sync"
)

type faceKey struct {
	family string
	style  string
}

// Set hands out one shared CoreFace per family and style. It is safe for
// concurrent use.
type Set struct {
	mu    sync.Mutex
	faces map[faceKey]*CoreFace
}

// NewSet returns an empty face cache.
func NewSet() *Set {
	return &Set{faces: make(map[faceKey]*CoreFace)}
}

// Face returns the face for family and style, creating it on first use.
func (s *Set) Face(family, style string) (Face, error) {
	key := faceKey{strings.ToLower(family), normalizeStyle(style)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.faces[key]; ok {
		return f, nil
	}
	f, err := NewCoreFace(family, style)
	if err != nil {
		return nil, err
	}
	s.faces[key] = f
	return f, nil
}

// Measure returns the width of text in the given family at size points.
func (s *Set) Measure(text, family string, size float64) (float64, error) {
	f, err := s.Face(family, DefaultStyle)
	if err != nil {
		return 0, err
	}
	return f.StringWidth(text, size), nil
}
