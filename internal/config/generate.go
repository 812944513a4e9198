// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strconv"
	"strings"
)

// InitOptions are the answers collected by "slidesmith init".
type InitOptions struct {
	ProjectName     string
	Port            int
	Command         string
	SlidesDir       string
	DesignSystemDir string
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func quoted(s string) string {
	return `"` + escapeHJSONValue(s) + `"`
}

// GenerateConfig renders a commented slidesmith.hjson for opts. Empty fields fall
// back to the defaults.
func GenerateConfig(opts InitOptions) string {
	def := &Config{}
	ApplyDefaults(def)
	if opts.Port == 0 {
		opts.Port = def.Server.Port
	}
	if opts.Command == "" {
		opts.Command = def.Generator.Command
	}
	if opts.SlidesDir == "" {
		opts.SlidesDir = def.Slides.Dir
	}
	if opts.DesignSystemDir == "" {
		opts.DesignSystemDir = def.DesignSystem.Dir
	}

	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // slidesmith configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).

  version: "1"

  project: {
    name: `)
	sb.WriteString(quoted(opts.ProjectName))
	sb.WriteString(`
    // Generator processes run here; relative paths below are resolved against it.
    // Defaults to the directory containing this file.
    // root: "."
  }

  // ---------------------------------------------------------------------------
  // HTTP server
  // ---------------------------------------------------------------------------
  server: {
    port: `)
	sb.WriteString(strconv.Itoa(opts.Port))
	sb.WriteString(`
    host: "127.0.0.1"
    // tls_cert: "~/.certs/cert.pem"
    // tls_key: "~/.certs/key.pem"
    // tailscale_tls: true
  }

  // ---------------------------------------------------------------------------
  // Generator CLI
  // ---------------------------------------------------------------------------
  generator: {
    command: `)
	sb.WriteString(quoted(opts.Command))
	sb.WriteString(`
    // args: ["--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions"]
    // Kill runs that take longer than this ("0" disables)
    max_duration: "30m"
    // Grace period between SIGTERM and SIGKILL
    stop_timeout: "5s"
  }

  slides: {
    dir: `)
	sb.WriteString(quoted(opts.SlidesDir))
	sb.WriteString(`
    extension: ".tsx"
  }

  design_system: {
    dir: `)
	sb.WriteString(quoted(opts.DesignSystemDir))
	sb.WriteString(`
    files: ["tokens.css", "theme.ts", "components.tsx", "guidelines.md"]
    changelog: "CHANGELOG.md"
    brief: "BRIEF.md"
  }

  // Inline reference images are staged here before a run
  scratch: {
    dir: ".slidesmith/uploads"
  }

  events: {
    history: {
      max_events: 1000
      max_age: "1h"
    }
  }

  // Publish design_system.changed when files in the design-system directory change
  watch: {
    enabled: true
    debounce: "250ms"
  }
}
`)

	return sb.String()
}
