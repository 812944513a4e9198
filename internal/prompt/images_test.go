// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Smallest valid PNG header plus padding; enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func TestStager_DataURL(t *testing.T) {
	dir := t.TempDir()
	s := NewStager(dir)

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	path, err := s.Stage(payload)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestStager_BareBase64Sniffed(t *testing.T) {
	s := NewStager(t.TempDir())
	path, err := s.Stage(base64.StdEncoding.EncodeToString(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
}

func TestStager_JPEGDataURL(t *testing.T) {
	s := NewStager(t.TempDir())
	path, err := s.Stage("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0}))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))
}

func TestStager_UniqueNames(t *testing.T) {
	s := NewStager(t.TempDir())
	payload := base64.StdEncoding.EncodeToString(pngBytes)

	a, err := s.Stage(payload)
	require.NoError(t, err)
	b, err := s.Stage(payload)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStager_Invalid(t *testing.T) {
	s := NewStager(t.TempDir())

	tests := map[string]string{
		"empty":          "",
		"not base64":     "!!!not-base64!!!",
		"unsupported":    "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
		"not base64 url": "data:image/png,rawdata",
		"text sniffed":   base64.StdEncoding.EncodeToString([]byte("just some text")),
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Stage(payload)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestStager_StageAllRemovesOnError(t *testing.T) {
	dir := t.TempDir()
	s := NewStager(dir)

	_, err := s.StageAll([]string{
		base64.StdEncoding.EncodeToString(pngBytes),
		"!!!",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
