// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/slidesmith/pkg/client"
)

func sse(payloads ...string) string {
	var sb strings.Builder
	for _, p := range payloads {
		sb.WriteString("data: " + p + "\n\n")
	}
	return sb.String()
}

func TestTurn_Success(t *testing.T) {
	c := New("intro")
	turn, err := c.Begin("make it blue")
	require.NoError(t, err)

	var statuses []Status
	var gotText string
	h := turn.Handlers(client.Handlers{
		OnText: func(s string) {
			gotText = s
			m, _ := c.Streaming()
			statuses = append(statuses, m.Status)
		},
	})

	stream := sse(
		`{"type":"session","session_id":"s1"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Blue now."}]}}`,
		`{"type":"session","session_id":"s2"}`,
		`{"type":"done","code":0}`,
	)
	err = client.NewDecoder(h).Decode(context.Background(), strings.NewReader(stream))
	turn.Finish(err)
	require.NoError(t, err)

	assert.Equal(t, "s1", c.SessionID())
	assert.Equal(t, "Blue now.", gotText)
	assert.Equal(t, []Status{StatusStreaming}, statuses)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "make it blue", msgs[0].Text)
	assert.Equal(t, turn.MessageID(), msgs[1].ID)
	assert.Equal(t, "Blue now.", msgs[1].Text)
	assert.Equal(t, StatusComplete, msgs[1].Status)
}

func TestTurn_GenerationError(t *testing.T) {
	c := New("intro")
	turn, err := c.Begin("x")
	require.NoError(t, err)

	var reported string
	h := turn.Handlers(client.Handlers{OnError: func(m string) { reported = m }})
	err = client.NewDecoder(h).Decode(context.Background(), strings.NewReader(sse(`{"type":"done","code":1}`)))
	turn.Finish(err)

	assert.Equal(t, "generator exited with code 1", reported)
	msg := c.Messages()[1]
	assert.Equal(t, StatusError, msg.Status)
	assert.Equal(t, "generator exited with code 1", msg.Error)
}

func TestTurn_StreamClosedEarly(t *testing.T) {
	c := New("intro")
	turn, _ := c.Begin("x")

	err := client.NewDecoder(turn.Handlers(client.Handlers{})).Decode(context.Background(), strings.NewReader(""))
	turn.Finish(err)

	msg := c.Messages()[1]
	assert.Equal(t, StatusError, msg.Status)
	assert.Equal(t, client.ErrStreamClosed.Error(), msg.Error)
}

func TestTurn_FinishAfterDoneKeepsComplete(t *testing.T) {
	c := New("intro")
	turn, _ := c.Begin("x")
	turn.Handlers(client.Handlers{}).OnDone()
	turn.Finish(errors.New("late transport error"))

	assert.Equal(t, StatusComplete, c.Messages()[1].Status)
}

func TestBegin_RejectedWhileStreaming(t *testing.T) {
	c := New("intro")
	_, err := c.Begin("first")
	require.NoError(t, err)

	_, err = c.Begin("second")
	assert.ErrorIs(t, err, ErrAlreadyStreaming)
	assert.Len(t, c.Messages(), 2, "rejected prompt is not recorded")
}
