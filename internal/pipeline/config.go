package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/docmill/bake/internal/registry"
	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("invalid pipeline definition")

const (

	// Default path of the isolated dependency environment.
	DefaultEnvironment = "/opt/venv"

	// Default working directory receiving the application source.
	DefaultWorkdir = "/app"

	// Default requirements manifest, relative to the build context.
	defaultRequirements = "requirements.txt"

	// Package installer cache directory inside the builder container.
	pipCacheDir = "/root/.cache/pip"

	// Default renderer verification command.
	defaultVerify = "wkhtmltopdf --version"
)

// Native packages installed by default when the definition omits them.
var (
	defaultToolchain = []string{"build-essential", "libpq-dev"}

	defaultLibraries = []string{
		"libpq5",
		"libjpeg62-turbo",
		"libxrender1",
		"libxext6",
		"fontconfig",
		"xfonts-base",
		"xfonts-75dpi",
		"ca-certificates",
	}
)

// The pipeline definition, loaded from bake.yaml.
type Config struct {
	Name    string            `yaml:"name"`    // Resource name, used for container IDs and logging.
	App     App               `yaml:"app"`     // Application source placement.
	Builder Builder           `yaml:"builder"` // Builder stage inputs.
	Runtime Runtime           `yaml:"runtime"` // Runtime stage inputs.
	Env     map[string]string `yaml:"env"`     // Extra image environment variables.
}

// Application source placement.
type App struct {
	Source  string `yaml:"source"`  // Host path of the source tree, relative to the build context.
	Workdir string `yaml:"workdir"` // Image working directory receiving the tree.
}

// Builder stage inputs.
type Builder struct {
	Base         string   `yaml:"base"`         // Pinned base image reference.
	Toolchain    []string `yaml:"toolchain"`    // Native build toolchain and headers.
	Environment  string   `yaml:"environment"`  // Path of the isolated dependency environment.
	Requirements string   `yaml:"requirements"` // Requirements manifest, relative to the build context.
}

// Runtime stage inputs.
type Runtime struct {
	Base      string   `yaml:"base"`      // Pinned base image reference.
	Libraries []string `yaml:"libraries"` // Shared runtime libraries (no compilers, no headers).
	Renderer  Renderer `yaml:"renderer"`  // Pinned PDF renderer artifact.
}

// Pinned PDF renderer artifact.
type Renderer struct {
	URL     string `yaml:"url"`     // Version-pinned download location.
	Version string `yaml:"version"` // Exact version the installed binary must report.
	Verify  string `yaml:"verify"`  // Version query command; defaults to "wkhtmltopdf --version".
}

// Loads a pipeline definition from a YAML file, applies defaults, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Fills unset fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "app"
	}
	if c.App.Source == "" {
		c.App.Source = "."
	}
	if c.App.Workdir == "" {
		c.App.Workdir = DefaultWorkdir
	}
	if len(c.Builder.Toolchain) == 0 {
		c.Builder.Toolchain = defaultToolchain
	}
	if c.Builder.Environment == "" {
		c.Builder.Environment = DefaultEnvironment
	}
	if c.Builder.Requirements == "" {
		c.Builder.Requirements = defaultRequirements
	}
	if len(c.Runtime.Libraries) == 0 {
		c.Runtime.Libraries = defaultLibraries
	}
	if c.Runtime.Renderer.Verify == "" {
		c.Runtime.Renderer.Verify = defaultVerify
	}
}

// Validates the definition.
//
// Both base references and the renderer must be pinned to exact versions.
// Anything that would make a re-run resolve differently fails closed here,
// before any container or network activity.
func (c *Config) validate() error {
	if err := registry.Validate(c.Builder.Base); err != nil {
		return fmt.Errorf("%w: builder base: %w", ErrConfig, err)
	}
	if err := registry.Validate(c.Runtime.Base); err != nil {
		return fmt.Errorf("%w: runtime base: %w", ErrConfig, err)
	}

	r := c.Runtime.Renderer
	u, err := url.Parse(r.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: renderer url %q is not a fully-qualified download location", ErrConfig, r.URL)
	}
	if r.Version == "" || r.Version == "latest" {
		return fmt.Errorf("%w: renderer version %q is not an exact pin", ErrConfig, r.Version)
	}

	return nil
}
