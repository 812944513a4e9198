// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"errors"
	"log"

	"github.com/wingedpig/slidesmith/pkg/client"
)

// Turn is one prompt and the assistant reply streaming into the conversation.
type Turn struct {
	conv *Conversation
	id   string
}

// Begin records prompt as a user message and opens a pending assistant reply.
// Nothing is recorded while another reply is in flight.
func (c *Conversation) Begin(prompt string) (*Turn, error) {
	if _, busy := c.Streaming(); busy {
		return nil, ErrAlreadyStreaming
	}
	c.AddUserMessage(prompt)
	id, err := c.AddAssistantMessage()
	if err != nil {
		return nil, err
	}
	return &Turn{conv: c, id: id}, nil
}

// MessageID returns the id of the assistant message.
func (t *Turn) MessageID() string {
	return t.id
}

// Handlers returns decoder callbacks that update the conversation and then call
// next. The resume token is stored from the first session event.
func (t *Turn) Handlers(next client.Handlers) client.Handlers {
	return client.Handlers{
		OnSession: func(id string) {
			t.conv.SetSessionID(id)
			if next.OnSession != nil {
				next.OnSession(id)
			}
		},
		OnText: func(text string) {
			t.update(Patch{Text: &text, Status: StatusStreaming})
			if next.OnText != nil {
				next.OnText(text)
			}
		},
		OnStderr: next.OnStderr,
		OnDone: func() {
			t.update(Patch{Status: StatusComplete})
			if next.OnDone != nil {
				next.OnDone()
			}
		},
		OnError: func(msg string) {
			t.update(Patch{Status: StatusError, Error: msg})
			if next.OnError != nil {
				next.OnError(msg)
			}
		},
	}
}

// Finish settles a reply the stream left open, after Decode returns err.
func (t *Turn) Finish(err error) {
	if err == nil {
		t.update(Patch{Status: StatusComplete})
		return
	}
	var genErr *client.GenerationError
	if errors.As(err, &genErr) {
		return // already recorded by OnError
	}
	t.update(Patch{Status: StatusError, Error: err.Error()})
}

func (t *Turn) update(p Patch) {
	for _, m := range t.conv.Messages() {
		if m.ID == t.id && m.Status.IsTerminal() {
			return
		}
	}
	if err := t.conv.UpdateMessage(t.id, p); err != nil {
		log.Printf("conversation: %s: %v", t.conv.ItemKey(), err)
	}
}
