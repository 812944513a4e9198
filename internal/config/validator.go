// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateGenerator(cfg, errs)
	v.validatePaths(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs.Add("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if cfg.Server.TailscaleTLS && cfg.Server.TLSCert != "" {
		errs.Add("server.tailscale_tls", "cannot be combined with tls_cert/tls_key")
	}
}

func (v *Validator) validateGenerator(cfg *Config, errs *ValidationError) {
	if strings.TrimSpace(cfg.Generator.Command) == "" {
		errs.Add("generator.command", "is required")
	}
	if cfg.Generator.MaxLineBytes < 0 {
		errs.Add("generator.max_line_bytes", "must not be negative")
	}
	for field, value := range map[string]string{
		"generator.max_duration": cfg.Generator.MaxDuration,
		"generator.stop_timeout": cfg.Generator.StopTimeout,
		"watch.debounce":         cfg.Watch.Debounce,
	} {
		if value == "" || value == "0" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			errs.Add(field, fmt.Sprintf("invalid duration %q", value))
		}
	}
}

func (v *Validator) validatePaths(cfg *Config, errs *ValidationError) {
	if cfg.Project.Root == "" {
		errs.Add("project.root", "is required")
	}
	for field, value := range map[string]string{
		"slides.dir":        cfg.Slides.Dir,
		"design_system.dir": cfg.DesignSystem.Dir,
	} {
		if filepath.IsAbs(value) || strings.Contains(value, "..") {
			errs.Add(field, "must be a path inside the project root")
		}
	}
	if len(cfg.DesignSystem.Files) == 0 {
		errs.Add("design_system.files", "must list at least one file")
	}
	if cfg.Slides.Extension != "" && !strings.HasPrefix(cfg.Slides.Extension, ".") {
		errs.Add("slides.extension", "must start with '.'")
	}
}
