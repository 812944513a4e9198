// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CLIProjectDir returns the directory where the claude CLI stores sessions for the
// given working directory. The CLI encodes the path by replacing / and . with -,
// e.g. /Users/alice/decks/q3.talk -> -Users-alice-decks-q3-talk.
func CLIProjectDir(workDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return cliProjectDir(home, workDir), nil
}

func cliProjectDir(home, workDir string) string {
	encoded := strings.NewReplacer("/", "-", ".", "-").Replace(workDir)
	return filepath.Join(home, ".claude", "projects", encoded)
}

// ResumeAvailable reports whether the CLI still has the session file for sessionID.
// Resuming a missing session makes the CLI fail with "No conversation found".
func ResumeAvailable(workDir, sessionID string) bool {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return false
	}
	dir, err := CLIProjectDir(workDir)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, sessionID+".jsonl"))
	return err == nil
}
