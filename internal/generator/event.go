// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"encoding/json"
	"strings"
)

// Kind identifies the variant of an Event.
type Kind string

const (
	KindSession    Kind = "session"
	KindText       Kind = "text"
	KindToolUse    Kind = "tool_use"
	KindToolResult Kind = "tool_result"
	KindResult     Kind = "result"
	KindStderr     Kind = "stderr"
	KindError      Kind = "error"
	KindDone       Kind = "done"
	KindRaw        Kind = "raw"
)

// Event is one item of an adapter's ordered output.
//
// Passthrough kinds (text, tool_use, tool_result, result, raw) carry the verbatim
// stdout line in Raw and are forwarded unchanged. The remaining kinds are synthesised
// by the adapter.
type Event struct {
	Kind      Kind            `json:"kind"`
	SessionID string          `json:"session_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	ExitCode  *int            `json:"exit_code,omitempty"`
	Err       string          `json:"error,omitempty"`
	Raw       []byte          `json:"-"`
}

// IsTerminal reports whether the event ends the adapter's stream.
func (e Event) IsTerminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

// Payload returns the SSE data payload for the event.
func (e Event) Payload() []byte {
	var v interface{}
	switch e.Kind {
	case KindSession:
		v = struct {
			Type      string `json:"type"`
			SessionID string `json:"session_id"`
		}{"session", e.SessionID}
	case KindStderr:
		v = struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{"stderr", e.Text}
	case KindError:
		v = struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{"error", e.Err}
	case KindDone:
		v = struct {
			Type string `json:"type"`
			Code *int   `json:"code"`
		}{"done", e.ExitCode}
	default:
		return e.Raw
	}
	data, _ := json.Marshal(v)
	return data
}

func sessionEvent(id string) Event {
	return Event{Kind: KindSession, SessionID: id}
}

func stderrEvent(text string) Event {
	return Event{Kind: KindStderr, Text: text}
}

func errorEvent(msg string) Event {
	return Event{Kind: KindError, Err: msg}
}

func doneEvent(code *int) Event {
	return Event{Kind: KindDone, ExitCode: code}
}

// Classify parses one stdout line. init reports a system/init line, whose session id
// is returned in the event; such lines are never forwarded as-is.
func Classify(line []byte) (ev Event, init bool) {
	raw := make([]byte, len(line))
	copy(raw, line)

	var sl StreamLine
	if err := json.Unmarshal(line, &sl); err != nil {
		return Event{Kind: KindRaw, Raw: raw}, false
	}
	if sl.IsInit() {
		return sessionEvent(sl.SessionID), true
	}

	ev = Event{Kind: KindRaw, Raw: raw, SessionID: sl.SessionID}
	switch sl.Type {
	case "assistant":
		var texts []string
		for _, b := range sl.Blocks() {
			switch b.Type {
			case "text":
				texts = append(texts, b.Text)
			case "tool_use":
				if ev.Kind != KindToolUse {
					ev.Kind = KindToolUse
					ev.ToolName = b.Name
					ev.ToolUseID = b.ID
					ev.ToolInput = b.Input
				}
			}
		}
		if ev.Kind != KindToolUse && len(texts) > 0 {
			ev.Kind = KindText
		}
		ev.Text = strings.Join(texts, "")
	case "user":
		for _, b := range sl.Blocks() {
			if b.Type == "tool_result" {
				ev.Kind = KindToolResult
				ev.ToolUseID = b.ToolUseID
				ev.Text = b.ResultText()
				break
			}
		}
	case "result":
		ev.Kind = KindResult
		ev.Text = sl.Result
		if sl.IsError {
			ev.Err = strings.Join(sl.Errors, "; ")
			if ev.Err == "" {
				ev.Err = sl.Result
			}
		}
	}
	return ev, false
}
