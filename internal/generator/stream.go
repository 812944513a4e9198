// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"encoding/json"
	"strings"
)

// StreamLine is a parsed NDJSON line from claude --output-format stream-json.
type StreamLine struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Result    string          `json:"result,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// StreamMessage is the message field of assistant and user lines.
type StreamMessage struct {
	Role    string         `json:"role,omitempty"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one block of a stream message.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ResultText returns the textual content of a tool_result block.
// The CLI sends either a plain string or a list of text blocks.
func (b ContentBlock) ResultText() string {
	if len(b.Content) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(b.Content, &s) == nil {
		return s
	}
	var parts []ContentBlock
	if json.Unmarshal(b.Content, &parts) == nil {
		var sb strings.Builder
		for _, p := range parts {
			if p.Type != "text" || p.Text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
		return sb.String()
	}
	return string(b.Content)
}

// IsInit reports whether the line is the system/init line carrying the session id.
func (l *StreamLine) IsInit() bool {
	return l.Type == "system" && l.Subtype == "init"
}

// Blocks decodes the message content blocks, returning nil when absent or malformed.
func (l *StreamLine) Blocks() []ContentBlock {
	if len(l.Message) == 0 {
		return nil
	}
	var msg StreamMessage
	if err := json.Unmarshal(l.Message, &msg); err != nil {
		return nil
	}
	return msg.Content
}
