// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned when subscribing with an empty pattern.
var ErrEmptyPattern = errors.New("empty pattern")

// Match reports whether eventType matches pattern. Patterns are dot-separated
// segments where "*" matches exactly one segment, and a trailing "*" also matches
// any number of remaining segments:
//
//	"*"                  everything
//	"generation.*"       generation.started, generation.failed
//	"*.changed"          design_system.changed
func Match(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	if pattern == "*" || pattern == eventType {
		return true
	}

	ps := strings.Split(pattern, ".")
	es := strings.Split(eventType, ".")
	for i, p := range ps {
		last := i == len(ps)-1
		if i >= len(es) {
			return false
		}
		if p == "*" {
			if last {
				return true
			}
			continue
		}
		if p != es[i] {
			return false
		}
	}
	return len(ps) == len(es)
}

// Pattern is a validated subscription pattern.
type Pattern string

// CompilePattern validates pattern.
func CompilePattern(pattern string) (Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", ErrEmptyPattern
	}
	return Pattern(pattern), nil
}

// Match reports whether eventType matches the pattern.
func (p Pattern) Match(eventType string) bool {
	return Match(eventType, string(p))
}
