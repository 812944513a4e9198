// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package conversation keeps the per-item chat history and resume token that let
// follow-up requests continue a generator session.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// rank orders statuses; a message may only move to a higher rank.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusStreaming:
		return 1
	case StatusComplete, StatusError:
		return 2
	}
	return -1
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s.rank() == 2
}

var (
	// ErrInvalidTransition is returned for a status change that moves backward
	// or leaves a terminal state.
	ErrInvalidTransition = errors.New("invalid message status transition")

	// ErrAlreadyStreaming is returned when an assistant reply is already in flight.
	ErrAlreadyStreaming = errors.New("an assistant message is already streaming")
)

// Message is one chat entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Patch is a partial update for UpdateMessage. Nil fields are left unchanged.
type Patch struct {
	Text   *string
	Status Status
	Error  string
}

// Conversation is the message history and resume token for one item.
// It is safe for concurrent use.
type Conversation struct {
	mu        sync.Mutex
	itemKey   string
	sessionID string
	messages  []Message

	now func() time.Time
}

// New returns an empty conversation for itemKey.
func New(itemKey string) *Conversation {
	return &Conversation{itemKey: itemKey, now: time.Now}
}

// ItemKey returns the slide key or "design-system".
func (c *Conversation) ItemKey() string {
	return c.itemKey
}

// SessionID returns the resume token, or "" before the first session event.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetSessionID stores the resume token. Only the first token is kept; it reports
// whether id was stored.
func (c *Conversation) SetSessionID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || c.sessionID != "" {
		return false
	}
	c.sessionID = id
	return true
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Streaming returns the assistant message currently in flight, if any.
func (c *Conversation) Streaming() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.inFlight(); i >= 0 {
		return c.messages[i], true
	}
	return Message{}, false
}

// AddUserMessage appends a complete user message.
func (c *Conversation) AddUserMessage(text string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := Message{
		ID:        ulid.Make().String(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: c.now(),
		Status:    StatusComplete,
	}
	c.messages = append(c.messages, msg)
	return msg
}

// AddAssistantMessage appends a pending assistant message and returns its id.
// It fails with ErrAlreadyStreaming while another reply is pending or streaming.
func (c *Conversation) AddAssistantMessage() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight() >= 0 {
		return "", ErrAlreadyStreaming
	}
	msg := Message{
		ID:        ulid.Make().String(),
		Role:      RoleAssistant,
		Timestamp: c.now(),
		Status:    StatusPending,
	}
	c.messages = append(c.messages, msg)
	return msg.ID, nil
}

// UpdateMessage merges p into the message with id. An unknown id is a no-op,
// since the history may have been cleared while a stream was still running.
func (c *Conversation) UpdateMessage(id string, p Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return nil
	}
	msg := &c.messages[i]

	if p.Status != "" && p.Status != msg.Status {
		if p.Status.rank() < 0 || msg.Status.IsTerminal() || p.Status.rank() < msg.Status.rank() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, msg.Status, p.Status)
		}
		msg.Status = p.Status
	}
	if p.Text != nil {
		msg.Text = *p.Text
	}
	if p.Error != "" {
		msg.Error = p.Error
	}
	return nil
}

// ClearHistory drops all messages and the resume token. The generator's own
// session store is not touched.
func (c *Conversation) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.sessionID = ""
}

func (c *Conversation) index(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) inFlight() int {
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if m.Role == RoleAssistant && !m.Status.IsTerminal() {
			return i
		}
	}
	return -1
}

// record is the persisted form of a conversation.
type record struct {
	ItemKey   string    `json:"item_key"`
	SessionID string    `json:"session_id,omitempty"`
	Messages  []Message `json:"-"`
}

func (c *Conversation) snapshot() record {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return record{ItemKey: c.itemKey, SessionID: c.sessionID, Messages: msgs}
}

func fromRecord(r record) *Conversation {
	c := New(r.ItemKey)
	c.sessionID = r.SessionID
	c.messages = r.Messages
	return c
}
