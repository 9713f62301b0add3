package profile

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lvillar/actapdf"
)

//go:embed builtin.yaml
var builtinYAML []byte

// File is the on-disk layout of a profile document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Registry resolves profile names and aliases. It is immutable and safe for
// concurrent use.
type Registry struct {
	profiles map[string]*Profile
	aliases  map[string]string
	names    []string
}

// NewRegistry validates profiles and indexes them by name and alias. The
// profiles are copied and defaults applied to the copies.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]*Profile, len(profiles)),
		aliases:  make(map[string]string),
	}
	for i := range profiles {
		if err := r.add(profiles[i].Clone()); err != nil {
			return nil, err
		}
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) add(p *Profile) error {
	p.Name = normalizeName(p.Name)
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := r.lookup(p.Name); ok {
		return actapdf.NewConfigurationError(p.Name, "", fmt.Errorf("%w: duplicate profile name", actapdf.ErrMalformedProfile))
	}
	r.profiles[p.Name] = p
	r.names = append(r.names, p.Name)
	for _, a := range p.Aliases {
		a = normalizeName(a)
		if _, ok := r.lookup(a); ok || a == "" {
			return actapdf.NewConfigurationError(p.Name, "", fmt.Errorf("%w: alias %q already in use", actapdf.ErrMalformedProfile, a))
		}
		r.aliases[a] = p.Name
	}
	return nil
}

func (r *Registry) lookup(name string) (*Profile, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	p, ok := r.profiles[name]
	return p, ok
}

// Resolve returns the profile registered under name or one of its aliases.
// Names are matched case-insensitively. The returned profile is shared and
// must not be modified; use Clone for a private copy.
func (r *Registry) Resolve(name string) (*Profile, error) {
	p, ok := r.lookup(normalizeName(name))
	if !ok {
		return nil, actapdf.NewConfigurationError(name, "", actapdf.ErrUnknownProfile)
	}
	return p, nil
}

// Names returns the canonical profile names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Profiles returns the registered profiles sorted by name.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.profiles[n])
	}
	return out
}

// Extend returns a new registry holding r's profiles plus extra. A profile
// in extra replaces the one of r with the same name.
func (r *Registry) Extend(extra ...Profile) (*Registry, error) {
	replaced := make(map[string]bool, len(extra))
	for _, p := range extra {
		replaced[normalizeName(p.Name)] = true
	}
	var all []Profile
	for _, n := range r.names {
		if !replaced[n] {
			all = append(all, *r.profiles[n])
		}
	}
	return NewRegistry(append(all, extra...)...)
}

// Load reads a YAML (or JSON) profile document.
func Load(rd io.Reader) (*Registry, error) {
	profiles, err := Decode(rd)
	if err != nil {
		return nil, err
	}
	return NewRegistry(profiles...)
}

// Decode reads the profiles of a YAML (or JSON) document without
// validating them.
func Decode(rd io.Reader) ([]Profile, error) {
	var f File
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, actapdf.NewConfigurationError("", "", fmt.Errorf("%w: %v", actapdf.ErrMalformedProfile, err))
	}
	return f.Profiles, nil
}

// LoadFile reads a profile document from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, actapdf.NewConfigurationError("", "", fmt.Errorf("%w: %v", actapdf.ErrMalformedProfile, err))
	}
	defer f.Close()
	return Load(f)
}

var builtin = sync.OnceValues(func() (*Registry, error) {
	return Load(strings.NewReader(string(builtinYAML)))
})

// Builtin returns the registry of the built-in reception ("recepcion") and
// decommission ("baja") forms.
func Builtin() (*Registry, error) {
	return builtin()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
