// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"generation.started", "*", true},
		{"generation.started", "generation.started", true},
		{"generation.started", "generation.finished", false},
		{"generation.started", "generation.*", true},
		{"generation", "generation.*", false},
		{"generation.sub.started", "generation.*", true},
		{"design_system.changed", "*.changed", true},
		{"design_system.assessed", "*.changed", false},
		{"a.b.c", "a.*.c", true},
		{"a.x.d", "a.*.c", false},
		{"a.b", "a.b.c", false},
		{"generationx.started", "generation.*", false},
		{"", "*", false},
		{"generation.started", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType+"~"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.eventType, tt.pattern))
		})
	}
}

func TestCompilePattern(t *testing.T) {
	p, err := CompilePattern("generation.*")
	assert.NoError(t, err)
	assert.True(t, p.Match(GenerationCancelled))

	_, err = CompilePattern("  ")
	assert.ErrorIs(t, err, ErrEmptyPattern)
}
