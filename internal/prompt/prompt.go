// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package prompt builds the prompt text sent to the generator for each operation.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Kind identifies a generation operation.
type Kind string

const (
	KindGenerate           Kind = "generate"
	KindEdit               Kind = "edit"
	KindEditDesignSystem   Kind = "edit-design-system"
	KindApplyDesignSystem  Kind = "apply-design-system"
	KindCreateDesignSystem Kind = "create-design-system"
	KindAssessDesignSystem Kind = "assess-design-system"
)

// Params are the inputs to a prompt template. Paths are relative to the project root,
// except ImagePaths which are absolute.
type Params struct {
	Kind        Kind
	Prompt      string
	Description string
	FilePath    string
	Resume      bool
	PlanOnly    bool
	URLs        []string
	ImagePaths  []string

	SlidesDir         string
	Extension         string
	DesignSystemDir   string
	DesignSystemFiles []string
	Changelog         string
	Brief             string
}

var funcs = template.FuncMap{
	"trim": strings.TrimSpace,
}

var templates = template.Must(template.New("prompt").Funcs(funcs).Parse(`
{{- define "images" -}}
{{- if .ImagePaths}}

Reference images (read them from disk):
{{- range .ImagePaths}}
- {{.}}
{{- end}}
{{- end}}
{{- end -}}

{{- define "urls" -}}
{{- if .URLs}}

Reference URLs:
{{- range .URLs}}
- {{.}}
{{- end}}
{{- end}}
{{- end -}}

{{- define "files" -}}
{{- range .DesignSystemFiles}}
- {{.}}
{{- end}}
{{- end -}}

{{- define "generate" -}}
Create a new slide for this deck as a single {{.Extension}} file in {{.SlidesDir}}.
Follow the design system in {{.DesignSystemDir}}: use its tokens and components rather than inventing new styles.

Request:
{{trim .Prompt}}
{{- template "images" .}}
{{- end -}}

{{- define "edit" -}}
{{- if .Resume -}}
{{trim .Prompt}}

(Continue editing {{.FilePath}}.)
{{- else -}}
Edit the slide in {{.FilePath}}. Read the file first and change only what the request asks for.
Keep using the design system in {{.DesignSystemDir}}.

Request:
{{trim .Prompt}}
{{- end}}
{{- template "images" .}}
{{- end -}}

{{- define "edit-design-system" -}}
{{- if .Resume -}}
{{trim .Prompt}}
{{- else -}}
You are editing this deck's design system. Before making any change, read these files:
{{- template "files" .}}

Apply the request below across those files so they stay consistent with each other,
then append a dated entry to {{.Changelog}} describing what changed and why.

Request:
{{trim .Prompt}}
{{- end}}
{{- template "images" .}}
{{- end -}}

{{- define "apply-design-system" -}}
Bring the slide in {{.FilePath}} in line with the current design system.

Read {{.FilePath}} and the design-system change log {{.Changelog}} first, then rewrite the
slide so it uses the current tokens and components. Preserve the slide's content and
structure; change styling only. Do not edit any other file.
{{- end -}}

{{- define "create-design-system" -}}
Design a new design system for this deck from the description below.
{{- if .PlanOnly}}

Produce a plan only: describe the palette, typography, spacing and components you would
create. Do not write or modify any files.
{{- else}}

Regenerate each of these files from scratch:
{{- template "files" .}}

Start a fresh {{.Changelog}} recording the initial version.
{{- end}}

Description:
{{trim .Description}}
{{- template "urls" .}}
{{- template "images" .}}
{{- end -}}

{{- define "assess-design-system" -}}
Assess how well the existing slides in {{.SlidesDir}} fit the design system described below.
Write your findings as a short markdown brief to {{.Brief}}. Do not modify any other file.

Description:
{{trim .Description}}
{{- template "images" .}}
{{- end -}}
`))

// Build renders the prompt for p.Kind.
func Build(p Params) (string, error) {
	if templates.Lookup(string(p.Kind)) == nil {
		return "", fmt.Errorf("unknown prompt kind %q", p.Kind)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(p.Kind), p); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", p.Kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
