// Package config loads the YAML settings of the actapdf HTTP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/render"
)

// Config is the root of the configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings. Timeouts are in seconds.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	BindAddress  string   `yaml:"bindAddress"`
	EnableCORS   bool     `yaml:"enableCORS"`
	AllowOrigins []string `yaml:"allowOrigins"`
	ReadTimeout  int      `yaml:"readTimeoutSeconds"`
	WriteTimeout int      `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int      `yaml:"idleTimeoutSeconds"`
	BodyLimit    string   `yaml:"bodyLimit"`
}

// RenderConfig says where templates, assets and extra profiles live.
type RenderConfig struct {
	TemplateDir    string `yaml:"templateDir"`
	AssetDir       string `yaml:"assetDir"`
	ProfilesFile   string `yaml:"profilesFile"`
	EncodingPolicy string `yaml:"encodingPolicy"`
}

// LoggingConfig controls request logging.
type LoggingConfig struct {
	EnableRequestLogging bool `yaml:"enableRequestLogging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: []string{"*"},
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "2M",
		},
		Render: RenderConfig{
			TemplateDir:    "./templates",
			AssetDir:       "./assets",
			EncodingPolicy: overlay.Substitute.String(),
		},
		Logging: LoggingConfig{
			EnableRequestLogging: true,
		},
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults. Relative directories are resolved against the
// directory of the file, and PORT and ACTAPDF_TEMPLATES override the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.applyEnvironmentOverrides()
		return cfg, cfg.Validate()
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	cfg.applyEnvironmentOverrides()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dir := os.Getenv("ACTAPDF_TEMPLATES"); dir != "" {
		c.Render.TemplateDir = dir
	}
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Render.TemplateDir, &c.Render.AssetDir, &c.Render.ProfilesFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	s := c.Server
	switch {
	case s.Port <= 0 || s.Port > 65535:
		return fmt.Errorf("config: server.port %d out of range", s.Port)
	case s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0:
		return errors.New("config: negative server timeout")
	case c.Render.TemplateDir == "":
		return errors.New("config: render.templateDir is empty")
	}
	if _, err := overlay.ParsePolicy(c.Render.EncodingPolicy); err != nil {
		return fmt.Errorf("config: render.encodingPolicy: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Origins returns the CORS origins, defaulting to all.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range c.Server.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// EngineOptions returns the render options the settings describe. Profiles
// from ProfilesFile are added to the built-in ones, replacing those with
// the same name.
func (c *Config) EngineOptions() ([]render.Option, error) {
	policy, err := overlay.ParsePolicy(c.Render.EncodingPolicy)
	if err != nil {
		return nil, err
	}
	opts := []render.Option{
		render.WithTemplateDir(c.Render.TemplateDir),
		render.WithEncodingPolicy(policy),
	}
	if c.Render.AssetDir != "" {
		opts = append(opts, render.WithAssetDir(c.Render.AssetDir))
	}
	if c.Render.ProfilesFile != "" {
		reg, err := LoadProfiles(c.Render.ProfilesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, render.WithRegistry(reg))
	}
	return opts, nil
}

// LoadProfiles returns the built-in profiles extended with those in the
// YAML or JSON file at path.
func LoadProfiles(path string) (*profile.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: profiles: %w", err)
	}
	defer f.Close()
	extra, err := profile.Decode(f)
	if err != nil {
		return nil, err
	}
	base, err := profile.Builtin()
	if err != nil {
		return nil, err
	}
	return base.Extend(extra...)
}
