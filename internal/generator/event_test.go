// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kind  Kind
		check func(t *testing.T, ev Event)
	}{
		{
			name: "assistant text",
			line: `{"type":"assistant","message":{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}]}}`,
			kind: KindText,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "Hello world", ev.Text)
			},
		},
		{
			name: "assistant tool use",
			line: `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tu_1","name":"Edit","input":{"file_path":"src/slides/intro.tsx"}}]}}`,
			kind: KindToolUse,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "Edit", ev.ToolName)
				assert.Equal(t, "tu_1", ev.ToolUseID)
				assert.JSONEq(t, `{"file_path":"src/slides/intro.tsx"}`, string(ev.ToolInput))
			},
		},
		{
			name: "tool result string content",
			line: `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tu_1","content":"ok"}]}}`,
			kind: KindToolResult,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "tu_1", ev.ToolUseID)
				assert.Equal(t, "ok", ev.Text)
			},
		},
		{
			name: "tool result block content",
			line: `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tu_2","content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}]}}`,
			kind: KindToolResult,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "a\nb", ev.Text)
			},
		},
		{
			name: "result error",
			line: `{"type":"result","subtype":"error_during_execution","is_error":true,"errors":["boom"],"session_id":"s1"}`,
			kind: KindResult,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "boom", ev.Err)
				assert.Equal(t, "s1", ev.SessionID)
			},
		},
		{
			name: "unknown json",
			line: `{"type":"system","subtype":"status"}`,
			kind: KindRaw,
		},
		{
			name: "not json",
			line: `Loading…`,
			kind: KindRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, init := Classify([]byte(tt.line))
			assert.False(t, init)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.line, string(ev.Payload()), "passthrough payload must be the verbatim line")
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestClassify_Init(t *testing.T) {
	ev, init := Classify([]byte(`{"type":"system","subtype":"init","session_id":"abc","tools":[]}`))
	require.True(t, init)
	assert.Equal(t, KindSession, ev.Kind)
	assert.Equal(t, "abc", ev.SessionID)
	assert.JSONEq(t, `{"type":"session","session_id":"abc"}`, string(ev.Payload()))
}

func TestEvent_SynthesisedPayloads(t *testing.T) {
	zero := 0
	two := 2

	assert.JSONEq(t, `{"type":"stderr","text":"warn"}`, string(stderrEvent("warn").Payload()))
	assert.JSONEq(t, `{"type":"error","error":"nope"}`, string(errorEvent("nope").Payload()))
	assert.JSONEq(t, `{"type":"done","code":0}`, string(doneEvent(&zero).Payload()))
	assert.JSONEq(t, `{"type":"done","code":2}`, string(doneEvent(&two).Payload()))
	assert.JSONEq(t, `{"type":"done","code":null}`, string(doneEvent(nil).Payload()))

	assert.True(t, doneEvent(nil).IsTerminal())
	assert.True(t, errorEvent("x").IsTerminal())
	assert.False(t, sessionEvent("x").IsTerminal())
}
