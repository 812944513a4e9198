// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"bytes"
	"errors"
)

// DefaultMaxLine bounds a single output line when no other limit is configured.
const DefaultMaxLine = 16 << 20

// ErrLineTooLong is returned by LineBuffer.Write once a line grows past Max bytes.
var ErrLineTooLong = errors.New("line too long")

// LineBuffer splits a byte stream into newline-terminated lines, holding any
// incomplete tail until more bytes arrive or Flush is called.
type LineBuffer struct {
	// Max is the longest line accepted, excluding the newline. Zero means no limit.
	Max int

	buf []byte
}

// Write appends p and returns every line it completed, without line endings.
// Returned slices are owned by the caller. When a line exceeds Max, the lines
// completed before it are returned with ErrLineTooLong and the buffer is reset.
func (b *LineBuffer) Write(p []byte) ([][]byte, error) {
	b.buf = append(b.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		if b.tooLong(i) {
			b.buf = nil
			return lines, ErrLineTooLong
		}
		line := make([]byte, i)
		copy(line, b.buf[:i])
		lines = append(lines, bytes.TrimSuffix(line, []byte("\r")))
		b.buf = b.buf[i+1:]
	}

	if b.tooLong(len(b.buf)) {
		b.buf = nil
		return lines, ErrLineTooLong
	}

	// Reclaim the consumed prefix
	if len(b.buf) == 0 {
		b.buf = nil
	}
	return lines, nil
}

func (b *LineBuffer) tooLong(n int) bool {
	return b.Max > 0 && n > b.Max
}

// Flush returns the held partial line, if any, and resets the buffer.
func (b *LineBuffer) Flush() []byte {
	if len(b.buf) == 0 {
		return nil
	}
	line := bytes.TrimSuffix(b.buf, []byte("\r"))
	b.buf = nil
	return line
}

// Pending returns the number of bytes held.
func (b *LineBuffer) Pending() int {
	return len(b.buf)
}
