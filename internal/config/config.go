// Package config loads .pyscope.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/jward/pyscope/internal/node"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".pyscope.toml"

// Config holds every setting of the analyzer and its hosts.
type Config struct {
	ExcludedCategories        []string      `toml:"excluded_categories"`
	TolerateSyntaxErrors      bool          `toml:"tolerate_syntax_errors"`
	MarkSelectedNodes         int           `toml:"mark_selected_nodes"`
	SelfToAttribute           bool          `toml:"self_to_attribute"`
	ErrorSign                 bool          `toml:"error_sign"`
	ErrorSignDelay            time.Duration `toml:"error_sign_delay"`
	AlwaysUpdateAllHighlights bool          `toml:"always_update_all_highlights"`
	// UpdateDelayFactor is in seconds per line of the buffer.
	UpdateDelayFactor float64       `toml:"update_delay_factor"`
	ExcludedFiles     []string      `toml:"excluded_files"`
	MaxDepth          int           `toml:"max_depth"`
	Debounce          time.Duration `toml:"debounce"`
	Workers           int           `toml:"workers"`
	MetricsAddr       string        `toml:"metrics_addr"`
	DB                string        `toml:"db"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ExcludedCategories:   []string{"local"},
		TolerateSyntaxErrors: true,
		MarkSelectedNodes:    1,
		SelfToAttribute:      true,
		ErrorSign:            true,
		ErrorSignDelay:       1500 * time.Millisecond,
		MaxDepth:             500,
		Debounce:             50 * time.Millisecond,
		DB:                   filepath.Join(".pyscope", "index.db"),
	}
}

// Load reads path over the defaults and validates the result. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 500
	}
	if strings.TrimSpace(cfg.DB) == "" {
		cfg.DB = filepath.Join(".pyscope", "index.db")
	}
}

// Validate checks value ranges, category names and glob patterns.
func (c *Config) Validate() error {
	if _, err := c.Excluded(); err != nil {
		return err
	}
	if c.MarkSelectedNodes < 0 || c.MarkSelectedNodes > 2 {
		return fmt.Errorf("mark_selected_nodes must be 0, 1 or 2, got %d", c.MarkSelectedNodes)
	}
	if c.ErrorSignDelay < 0 {
		return fmt.Errorf("error_sign_delay must not be negative, got %s", c.ErrorSignDelay)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.UpdateDelayFactor < 0 {
		return fmt.Errorf("update_delay_factor must not be negative, got %g", c.UpdateDelayFactor)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := NewFileMatcher(c.ExcludedFiles); err != nil {
		return err
	}
	return nil
}

// Excluded parses the excluded category names.
func (c *Config) Excluded() ([]node.Category, error) {
	out := make([]node.Category, 0, len(c.ExcludedCategories))
	for _, name := range c.ExcludedCategories {
		cat, err := node.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("excluded_categories: %w", err)
		}
		out = append(out, cat)
	}
	return out, nil
}

// FileMatcher matches file paths against excluded_files patterns.
type FileMatcher struct {
	globs []glob.Glob
}

// NewFileMatcher compiles patterns with '/' as the separator.
func NewFileMatcher(patterns []string) (*FileMatcher, error) {
	m := &FileMatcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid excluded_files pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether path or its base name matches any pattern. A nil
// matcher matches nothing.
func (m *FileMatcher) Match(path string) bool {
	if m == nil {
		return false
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}
