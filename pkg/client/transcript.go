// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxSummaryRunes is the fixed length tool results are cut to in a transcript.
const MaxSummaryRunes = 200

// AskUserQuestionTool is the tool whose input is rendered as [Question]/[Option] lines.
const AskUserQuestionTool = "AskUserQuestion"

// targetKeys are the tool input fields tried, in order, for a tool line's target.
var targetKeys = []string{"file_path", "path", "notebook_path", "pattern", "command", "url", "query", "description", "prompt"}

// Transcript accumulates the readable text of one stream. Paragraphs are separated
// by a blank line.
//
// A Transcript is not safe for concurrent use.
type Transcript struct {
	paragraphs []string
	seenTools  map[string]bool
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{seenTools: make(map[string]bool)}
}

// String returns the transcript text.
func (t *Transcript) String() string {
	return strings.Join(t.paragraphs, "\n\n")
}

// AppendText appends assistant text as a paragraph. Blank text is ignored.
func (t *Transcript) AppendText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	t.paragraphs = append(t.paragraphs, text)
	return true
}

// AppendToolUse appends the line for a tool invocation. An id that was already
// rendered is skipped and false is returned.
func (t *Transcript) AppendToolUse(id, name string, input json.RawMessage) bool {
	if id != "" {
		if t.seenTools[id] {
			return false
		}
		t.seenTools[id] = true
	}
	if name == AskUserQuestionTool {
		if block := FormatQuestions(input); block != "" {
			t.paragraphs = append(t.paragraphs, block)
			return true
		}
	}
	t.paragraphs = append(t.paragraphs, FormatToolUse(name, input))
	return true
}

// AppendToolResult appends the summary of a tool result. Empty results are dropped.
func (t *Transcript) AppendToolResult(content string) bool {
	summary := Summarize(content)
	if summary == "" {
		return false
	}
	t.paragraphs = append(t.paragraphs, summary)
	return true
}

// FormatToolUse renders "[Name] target", where target is the first recognised string
// field of the tool input.
func FormatToolUse(name string, input json.RawMessage) string {
	var fields map[string]interface{}
	if len(input) > 0 {
		json.Unmarshal(input, &fields)
	}
	for _, key := range targetKeys {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			return fmt.Sprintf("[%s] %s", name, truncate(firstLine(s), MaxSummaryRunes))
		}
	}
	return fmt.Sprintf("[%s]", name)
}

// Summarize trims a tool result and cuts it to MaxSummaryRunes runes plus "...".
func Summarize(content string) string {
	return truncate(strings.TrimSpace(content), MaxSummaryRunes)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

type askInput struct {
	Questions []struct {
		Question string `json:"question"`
		Header   string `json:"header"`
		Options  []struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"options"`
	} `json:"questions"`
}

// FormatQuestions renders AskUserQuestion input as [Question] and [Option] lines.
// It returns "" when the input holds no questions.
func FormatQuestions(input json.RawMessage) string {
	var in askInput
	if err := json.Unmarshal(input, &in); err != nil {
		return ""
	}
	var lines []string
	for _, q := range in.Questions {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			text = strings.TrimSpace(q.Header)
		}
		if text == "" {
			continue
		}
		lines = append(lines, questionPrefix+text)
		for _, o := range q.Options {
			line := optionPrefix + strings.TrimSpace(o.Label)
			if d := strings.TrimSpace(o.Description); d != "" {
				line += optionSeparator + d
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
