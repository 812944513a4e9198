// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus for slidesmith.
package events

import (
	"context"
	"time"
)

// Event is an immutable record of something the server did.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Item      string                 `json:"item,omitempty"` // Slide key, "design-system" or empty
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Handler processes received events.
type Handler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// Filter selects events from history.
type Filter struct {
	Types []string  // Patterns, see Match
	Item  string    // Exact item key
	Since time.Time // Events after this time
	Until time.Time // Events before this time
	Limit int       // Most recent N matches
}

// Bus is the pub/sub surface used by the gateway, watcher and event endpoints.
type Bus interface {
	// Publish records the event and delivers it to matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler Handler) (SubscriptionID, error)

	// Watch returns a buffered channel of events matching pattern and a function
	// that ends the subscription and closes the channel.
	Watch(pattern string, buffer int) (<-chan Event, func(), error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History returns past events matching filter, oldest first.
	History(filter Filter) ([]Event, error)

	// Close shuts down the bus.
	Close() error
}

// Event types.
const (
	GenerationStarted   = "generation.started"
	GenerationFinished  = "generation.finished"
	GenerationFailed    = "generation.failed"
	GenerationCancelled = "generation.cancelled"

	DesignSystemChanged  = "design_system.changed"
	DesignSystemAssessed = "design_system.assessed"
)

// ItemDesignSystem is the item key used for design-system operations.
const ItemDesignSystem = "design-system"
