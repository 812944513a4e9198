// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths that are absolute or leave the project root.
var ErrUnsafePath = errors.New("path must be relative to the project root")

// CleanRelPath validates a client-supplied project-relative path and returns it cleaned.
func CleanRelPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.ContainsRune(p, 0) {
		return "", ErrUnsafePath
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return "", ErrUnsafePath
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", ErrUnsafePath
		}
	}
	cleaned := path.Clean(filepath.ToSlash(p))
	if cleaned == "." {
		return "", ErrUnsafePath
	}
	return cleaned, nil
}

// SlideFile resolves a slide key to a project-relative file path. A key that already
// looks like a path (contains a slash or ends in ext) is validated and used as is.
func SlideFile(key, slidesDir, ext string) (string, error) {
	key = strings.TrimSpace(key)
	if strings.ContainsAny(key, `/\`) || (ext != "" && strings.HasSuffix(key, ext)) {
		if !strings.ContainsAny(key, `/\`) {
			key = path.Join(filepath.ToSlash(slidesDir), key)
		}
		return CleanRelPath(key)
	}
	if key == "" || key == "." || key == ".." {
		return "", ErrUnsafePath
	}
	return CleanRelPath(path.Join(filepath.ToSlash(slidesDir), key+ext))
}
