// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams(kind Kind) Params {
	return Params{
		Kind:              kind,
		SlidesDir:         "src/slides",
		Extension:         ".tsx",
		DesignSystemDir:   "src/design-system",
		DesignSystemFiles: []string{"src/design-system/tokens.css", "src/design-system/theme.ts"},
		Changelog:         "src/design-system/CHANGELOG.md",
		Brief:             "src/design-system/BRIEF.md",
	}
}

func TestBuild_Generate(t *testing.T) {
	p := baseParams(KindGenerate)
	p.Prompt = "  A title slide for Q3 results  "
	p.ImagePaths = []string{"/tmp/scratch/a.png"}

	out, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, out, "single .tsx file in src/slides")
	assert.Contains(t, out, "Request:\nA title slide for Q3 results")
	assert.Contains(t, out, "Reference images (read them from disk):\n- /tmp/scratch/a.png")
}

func TestBuild_EditFreshAndResumed(t *testing.T) {
	p := baseParams(KindEdit)
	p.Prompt = "make the heading blue"
	p.FilePath = "src/slides/intro.tsx"

	fresh, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, fresh, "Edit the slide in src/slides/intro.tsx")
	assert.NotContains(t, fresh, "Reference images")

	p.Resume = true
	resumed, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, "make the heading blue\n\n(Continue editing src/slides/intro.tsx.)", resumed)
}

func TestBuild_EditDesignSystemEnrichedOnlyOnFirstRequest(t *testing.T) {
	p := baseParams(KindEditDesignSystem)
	p.Prompt = "tighten the spacing scale"

	first, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, first, "read these files:\n- src/design-system/tokens.css\n- src/design-system/theme.ts")
	assert.Contains(t, first, "src/design-system/CHANGELOG.md")

	p.Resume = true
	followUp, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, "tighten the spacing scale", followUp)
}

func TestBuild_ApplyDesignSystem(t *testing.T) {
	p := baseParams(KindApplyDesignSystem)
	p.FilePath = "src/slides/pricing.tsx"

	out, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, out, "Read src/slides/pricing.tsx and the design-system change log src/design-system/CHANGELOG.md")
}

func TestBuild_CreateDesignSystem(t *testing.T) {
	p := baseParams(KindCreateDesignSystem)
	p.Description = "calm, editorial, lots of whitespace"
	p.URLs = []string{"https://example.com/brand"}

	out, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, out, "Regenerate each of these files from scratch:\n- src/design-system/tokens.css")
	assert.Contains(t, out, "Reference URLs:\n- https://example.com/brand")
	assert.NotContains(t, out, "Do not write or modify any files")

	p.PlanOnly = true
	plan, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, plan, "Produce a plan only")
	assert.Contains(t, plan, "Do not write or modify any files")
	assert.NotContains(t, plan, "Regenerate")
}

func TestBuild_AssessDesignSystem(t *testing.T) {
	p := baseParams(KindAssessDesignSystem)
	p.Description = "bold brand"

	out, err := Build(p)
	require.NoError(t, err)
	assert.Contains(t, out, "brief to src/design-system/BRIEF.md")
	assert.Contains(t, out, "Description:\nbold brand")
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := Build(Params{Kind: "nope"})
	assert.Error(t, err)
}

func TestCleanRelPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"src/slides/intro.tsx", "src/slides/intro.tsx", false},
		{"./src//slides/intro.tsx", "src/slides/intro.tsx", false},
		{"", "", true},
		{".", "", true},
		{"/etc/passwd", "", true},
		{"../secrets", "", true},
		{"src/../../secrets", "", true},
		{`..\secrets`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanRelPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlideFile(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"intro", "src/slides/intro.tsx", false},
		{"intro.tsx", "src/slides/intro.tsx", false},
		{"src/slides/deep/intro.tsx", "src/slides/deep/intro.tsx", false},
		{"..", "", true},
		{"../intro", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := SlideFile(tt.key, "src/slides", ".tsx")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
