// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageBytes bounds a single decoded reference image.
const MaxImageBytes = 20 << 20

// ErrInvalidImage is returned for payloads that are not base64 images.
var ErrInvalidImage = errors.New("invalid image payload")

var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

// Stager writes inline reference images to a scratch directory under unique names.
type Stager struct {
	Dir string
}

// NewStager returns a stager writing into dir.
func NewStager(dir string) *Stager {
	return &Stager{Dir: dir}
}

// Stage decodes a data URL ("data:image/png;base64,...") or bare base64 payload and
// writes it to the scratch directory, returning the absolute file path.
func (s *Stager) Stage(payload string) (string, error) {
	mime, data, err := decodeImage(payload)
	if err != nil {
		return "", err
	}
	ext, ok := imageExtensions[mime]
	if !ok {
		return "", fmt.Errorf("%w: unsupported type %s", ErrInvalidImage, mime)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(s.Dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// StageAll stages each payload in order. Files already written are removed on error.
func (s *Stager) StageAll(payloads []string) ([]string, error) {
	paths := make([]string, 0, len(payloads))
	for i, p := range payloads {
		path, err := s.Stage(p)
		if err != nil {
			for _, written := range paths {
				os.Remove(written)
			}
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func decodeImage(payload string) (mime string, data []byte, err error) {
	payload = strings.TrimSpace(payload)
	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("%w: expected base64 data URL", ErrInvalidImage)
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = body
	}
	if encoded == "" {
		return "", nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+3 {
		return "", nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if mime == "" {
		mime = http.DetectContentType(data)
		if strings.HasPrefix(mime, "text/xml") && strings.Contains(string(data[:min(len(data), 512)]), "<svg") {
			mime = "image/svg+xml"
		}
	}
	return mime, data, nil
}
