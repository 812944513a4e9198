// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStreamClosed is returned when a stream ends without a terminal event.
var ErrStreamClosed = errors.New("stream closed before completion")

// GenerationError is returned by Decode after OnError has been called.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// Handlers receive decoded stream events. Any of them may be nil.
type Handlers struct {
	// OnText receives the whole transcript each time it grows.
	OnText func(transcript string)

	// OnSession receives the resume token. It is called every time a session
	// event is seen; callers should treat repeats as no-ops.
	OnSession func(sessionID string)

	// OnStderr receives generator diagnostics. They are not part of the transcript.
	OnStderr func(line string)

	// OnDone is called once when the generation completes successfully.
	OnDone func()

	// OnError is called once when the generation fails.
	OnError func(message string)
}

// Decoder turns an SSE byte stream into handler calls.
type Decoder struct {
	Handlers   Handlers
	Transcript *Transcript
}

// NewDecoder returns a decoder with an empty transcript.
func NewDecoder(h Handlers) *Decoder {
	return &Decoder{Handlers: h, Transcript: NewTranscript()}
}

// streamPayload is the union of the payload shapes the server sends.
type streamPayload struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Text      string         `json:"text"`
	Error     string         `json:"error"`
	Code      *int           `json:"code"`
	Message   *streamMessage `json:"message"`
	Result    string         `json:"result"`
	IsError   bool           `json:"is_error"`
	Errors    []string       `json:"errors"`
}

type streamMessage struct {
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

func (m *streamMessage) blocks() []contentBlock {
	if m == nil || len(m.Content) == 0 {
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		// A bare string is a single text block
		var s string
		if json.Unmarshal(m.Content, &s) == nil {
			return []contentBlock{{Type: "text", Text: s}}
		}
		return nil
	}
	return blocks
}

// resultText flattens tool_result content, which is a string or a list of text blocks.
func (b contentBlock) resultText() string {
	if len(b.Content) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(b.Content, &s) == nil {
		return s
	}
	var parts []contentBlock
	if json.Unmarshal(b.Content, &parts) != nil {
		return ""
	}
	var texts []string
	for _, p := range parts {
		if p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Decode reads r until a terminal event, the end of the stream or ctx is done. It
// returns nil after OnDone, a *GenerationError after OnError, and ErrStreamClosed
// when r ends first.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) error {
	if d.Transcript == nil {
		d.Transcript = NewTranscript()
	}

	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if done, err := d.handleLine(line); done {
				return err
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return ErrStreamClosed
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// handleLine dispatches one SSE line. done reports a terminal event.
func (d *Decoder) handleLine(line []byte) (done bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte("data:")) {
		return false, nil
	}
	data := bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" "))

	var p streamPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return false, nil // Skip malformed frames
	}
	return d.dispatch(p)
}

func (d *Decoder) dispatch(p streamPayload) (bool, error) {
	h := d.Handlers
	switch p.Type {
	case "session":
		if p.SessionID != "" && h.OnSession != nil {
			h.OnSession(p.SessionID)
		}
	case "assistant":
		grew := false
		for _, b := range p.Message.blocks() {
			switch b.Type {
			case "text":
				grew = d.Transcript.AppendText(b.Text) || grew
			case "tool_use":
				grew = d.Transcript.AppendToolUse(b.ID, b.Name, b.Input) || grew
			}
		}
		if grew {
			d.text()
		}
	case "user":
		grew := false
		for _, b := range p.Message.blocks() {
			if b.Type == "tool_result" {
				grew = d.Transcript.AppendToolResult(b.resultText()) || grew
			}
		}
		if grew {
			d.text()
		}
	case "stderr":
		if h.OnStderr != nil {
			h.OnStderr(p.Text)
		}
	case "error":
		return true, d.fail(p.Error)
	case "result":
		if p.IsError {
			msg := strings.Join(p.Errors, "; ")
			if msg == "" {
				msg = p.Result
			}
			if msg == "" {
				msg = "generation failed"
			}
			return true, d.fail(msg)
		}
		return true, d.done()
	case "done":
		if p.Code != nil && *p.Code != 0 {
			return true, d.fail(fmt.Sprintf("generator exited with code %d", *p.Code))
		}
		return true, d.done()
	}
	return false, nil
}

func (d *Decoder) text() {
	if d.Handlers.OnText != nil {
		d.Handlers.OnText(d.Transcript.String())
	}
}

func (d *Decoder) done() error {
	if d.Handlers.OnDone != nil {
		d.Handlers.OnDone()
	}
	return nil
}

func (d *Decoder) fail(msg string) error {
	if msg == "" {
		msg = "generation failed"
	}
	if d.Handlers.OnError != nil {
		d.Handlers.OnError(msg)
	}
	return &GenerationError{Message: msg}
}
