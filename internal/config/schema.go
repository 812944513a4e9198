// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for slidesmith.
package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration structure for slidesmith.
type Config struct {
	Version      string             `json:"version"`
	Project      ProjectConfig      `json:"project"`
	Server       ServerConfig       `json:"server"`
	Generator    GeneratorConfig    `json:"generator"`
	Slides       SlidesConfig       `json:"slides"`
	DesignSystem DesignSystemConfig `json:"design_system"`
	Scratch      ScratchConfig      `json:"scratch"`
	Events       EventsConfig       `json:"events"`
	Watch        WatchConfig        `json:"watch"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name string `json:"name"`
	Root string `json:"root"` // Working directory for generator processes (defaults to config file dir)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	TLSCert      string `json:"tls_cert"`      // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey       string `json:"tls_key"`       // Path to TLS private key file
	TailscaleTLS bool   `json:"tailscale_tls"` // Fetch certificates from the local tailscaled instead of files
}

// GeneratorConfig configures the external generation CLI.
type GeneratorConfig struct {
	Command      string            `json:"command"`        // Executable, e.g. "claude"
	Args         []string          `json:"args"`           // Base arguments placed before the prompt
	PromptFlag   string            `json:"prompt_flag"`    // Flag that precedes the prompt text
	ResumeFlag   string            `json:"resume_flag"`    // Flag that precedes a session id
	Env          map[string]string `json:"env"`            // Extra environment variables
	MaxDuration  string            `json:"max_duration"`   // Watchdog; "0" disables
	StopTimeout  string            `json:"stop_timeout"`   // Grace period between SIGTERM and SIGKILL
	MaxLineBytes int               `json:"max_line_bytes"` // Longest accepted output line; 0 uses the built-in limit
	CheckResume  *bool             `json:"check_resume"`   // Verify the CLI session file exists before resuming
}

// SlidesConfig locates slide source files.
type SlidesConfig struct {
	Dir       string `json:"dir"`
	Extension string `json:"extension"`
}

// DesignSystemConfig locates the design-system files the prompts refer to.
type DesignSystemConfig struct {
	Dir       string   `json:"dir"`
	Files     []string `json:"files"`     // Relative to Dir; read before editing, regenerated on create
	Changelog string   `json:"changelog"` // Relative to Dir
	Brief     string   `json:"brief"`     // Relative to Dir; written by the assessment run
}

// ScratchConfig configures where inline reference images are staged.
type ScratchConfig struct {
	Dir string `json:"dir"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event history retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// WatchConfig configures the design-system watcher.
type WatchConfig struct {
	Enabled  *bool  `json:"enabled"`
	Debounce string `json:"debounce"`
}

// IsEnabled reports whether the design-system watcher should run.
func (w WatchConfig) IsEnabled() bool {
	if w.Enabled == nil {
		return true
	}
	return *w.Enabled
}

// ShouldCheckResume reports whether resume tokens are verified against the CLI's session store.
func (g GeneratorConfig) ShouldCheckResume() bool {
	if g.CheckResume == nil {
		return true
	}
	return *g.CheckResume
}

// SlidePath returns the project-relative path of the slide file for a key.
func (s SlidesConfig) SlidePath(key string) string {
	return filepath.Join(s.Dir, key+s.Extension)
}

// FilePaths returns the design-system file paths relative to the project root.
func (d DesignSystemConfig) FilePaths() []string {
	paths := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		paths = append(paths, filepath.Join(d.Dir, f))
	}
	return paths
}

// ChangelogPath returns the changelog path relative to the project root.
func (d DesignSystemConfig) ChangelogPath() string {
	return filepath.Join(d.Dir, d.Changelog)
}

// BriefPath returns the assessment brief path relative to the project root.
func (d DesignSystemConfig) BriefPath() string {
	return filepath.Join(d.Dir, d.Brief)
}

// ParseDuration parses a duration string, returning defaultVal on empty or invalid input.
// A trailing "d" is accepted as days ("7d").
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return defaultVal
		}
		return time.Duration(days) * 24 * time.Hour
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
