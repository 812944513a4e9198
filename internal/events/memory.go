// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with an unknown ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// MemoryBus is an in-memory Bus.
type MemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[SubscriptionID]*subscription
	history       *History
	closed        atomic.Bool
	wg            sync.WaitGroup
	stopPruner    chan struct{}
}

type subscription struct {
	pattern Pattern
	handler Handler      // synchronous subscribers
	ch      chan Event   // watchers
	once    sync.Once
}

func (s *subscription) close() {
	if s.ch != nil {
		s.once.Do(func() { close(s.ch) })
	}
}

// NewMemoryBus creates a bus and starts its history pruner.
func NewMemoryBus(cfg HistoryConfig) *MemoryBus {
	bus := &MemoryBus{
		subscriptions: make(map[SubscriptionID]*subscription),
		history:       NewHistory(cfg),
		stopPruner:    make(chan struct{}),
	}

	pruneInterval := bus.history.maxAge / 10
	if pruneInterval < time.Minute {
		pruneInterval = time.Minute
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bus.stopPruner:
				return
			case now := <-ticker.C:
				bus.history.Prune(now)
			}
		}
	}()

	return bus
}

// Publish records the event and delivers it to matching subscribers.
func (bus *MemoryBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.history.Add(event)

	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, sub := range bus.subscriptions {
		if !sub.pattern.Match(event.Type) {
			continue
		}
		if sub.ch != nil {
			select {
			case sub.ch <- event:
			default:
				log.Printf("events: dropped %s, watcher buffer full", event.Type)
			}
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("events: handler panic for %s: %v", event.Type, r)
				}
			}()
			if err := sub.handler(ctx, event); err != nil {
				log.Printf("events: handler for %s: %v", event.Type, err)
			}
		}()
	}
	return nil
}

// Subscribe registers a synchronous handler. Handlers must not publish.
func (bus *MemoryBus) Subscribe(pattern string, handler Handler) (SubscriptionID, error) {
	return bus.add(pattern, &subscription{handler: handler})
}

// Watch returns a channel of matching events. Events are dropped when the buffer is full.
func (bus *MemoryBus) Watch(pattern string, buffer int) (<-chan Event, func(), error) {
	if buffer <= 0 {
		buffer = 100
	}
	sub := &subscription{ch: make(chan Event, buffer)}
	id, err := bus.add(pattern, sub)
	if err != nil {
		return nil, nil, err
	}
	return sub.ch, func() { bus.Unsubscribe(id) }, nil
}

func (bus *MemoryBus) add(pattern string, sub *subscription) (SubscriptionID, error) {
	if bus.closed.Load() {
		return "", ErrBusClosed
	}
	compiled, err := CompilePattern(pattern)
	if err != nil {
		return "", err
	}
	sub.pattern = compiled

	id := SubscriptionID(uuid.NewString())
	bus.mu.Lock()
	bus.subscriptions[id] = sub
	bus.mu.Unlock()
	return id, nil
}

// Unsubscribe removes a subscription, closing its channel for watchers.
func (bus *MemoryBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	sub, ok := bus.subscriptions[id]
	if ok {
		delete(bus.subscriptions, id)
	}
	bus.mu.Unlock()

	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.close()
	return nil
}

// History returns past events matching filter.
func (bus *MemoryBus) History(filter Filter) ([]Event, error) {
	return bus.history.Query(filter), nil
}

// Close stops the pruner and closes every watcher channel.
func (bus *MemoryBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}
	close(bus.stopPruner)

	bus.mu.Lock()
	for id, sub := range bus.subscriptions {
		sub.close()
		delete(bus.subscriptions, id)
	}
	bus.mu.Unlock()

	bus.wg.Wait()
	return nil
}
