// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes HJSON configuration bytes.
func Parse(data []byte) (*Config, error) {
	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied and validates it.
// A relative project root is resolved against the config file's directory.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		dir := filepath.Dir(abs)
		if cfg.Project.Root == "" {
			cfg.Project.Root = dir
		} else if !filepath.IsAbs(cfg.Project.Root) {
			cfg.Project.Root = filepath.Join(dir, cfg.Project.Root)
		}
	}

	ApplyDefaults(cfg)
	if err := NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FindConfig searches for a config file in the current directory.
// It looks for slidesmith.hjson first, then slidesmith.json.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"slidesmith.hjson",
		"slidesmith.json",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for slidesmith.hjson, slidesmith.json)")
}

// Default returns a configuration with every default applied, rooted at the current directory.
func Default() *Config {
	cfg := &Config{}
	if wd, err := os.Getwd(); err == nil {
		cfg.Project.Root = wd
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for missing config fields.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Generator defaults
	if cfg.Generator.Command == "" {
		cfg.Generator.Command = "claude"
	}
	if cfg.Generator.Args == nil {
		cfg.Generator.Args = []string{
			"--output-format", "stream-json",
			"--verbose",
			"--dangerously-skip-permissions",
		}
	}
	if cfg.Generator.PromptFlag == "" {
		cfg.Generator.PromptFlag = "-p"
	}
	if cfg.Generator.ResumeFlag == "" {
		cfg.Generator.ResumeFlag = "--resume"
	}
	if cfg.Generator.MaxDuration == "" {
		cfg.Generator.MaxDuration = "30m"
	}
	if cfg.Generator.StopTimeout == "" {
		cfg.Generator.StopTimeout = "5s"
	}

	// Slides defaults
	if cfg.Slides.Dir == "" {
		cfg.Slides.Dir = "src/slides"
	}
	if cfg.Slides.Extension == "" {
		cfg.Slides.Extension = ".tsx"
	}

	// Design system defaults
	if cfg.DesignSystem.Dir == "" {
		cfg.DesignSystem.Dir = "src/design-system"
	}
	if len(cfg.DesignSystem.Files) == 0 {
		cfg.DesignSystem.Files = []string{
			"tokens.css",
			"theme.ts",
			"components.tsx",
			"guidelines.md",
		}
	}
	if cfg.DesignSystem.Changelog == "" {
		cfg.DesignSystem.Changelog = "CHANGELOG.md"
	}
	if cfg.DesignSystem.Brief == "" {
		cfg.DesignSystem.Brief = "BRIEF.md"
	}

	// Scratch defaults
	if cfg.Scratch.Dir == "" {
		cfg.Scratch.Dir = ".slidesmith/uploads"
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 1000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	// Watch defaults
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "250ms"
	}
}

// ScratchDir returns the absolute scratch directory.
func (c *Config) ScratchDir() string {
	if filepath.IsAbs(c.Scratch.Dir) {
		return c.Scratch.Dir
	}
	return filepath.Join(c.Project.Root, c.Scratch.Dir)
}
