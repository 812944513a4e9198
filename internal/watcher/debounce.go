// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sort"
	"sync"
	"time"
)

const defaultDebounceDuration = 250 * time.Millisecond

// Batcher collects keys during a quiet period and hands them to a callback in one call.
// Every Add restarts the quiet period.
type Batcher struct {
	mu       sync.Mutex
	duration time.Duration
	pending  map[string]struct{}
	timer    *time.Timer
	flush    func(keys []string)
	stopped  bool
}

// NewBatcher creates a batcher that calls flush with the sorted keys collected during
// each burst.
func NewBatcher(duration time.Duration, flush func(keys []string)) *Batcher {
	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	return &Batcher{
		duration: duration,
		pending:  make(map[string]struct{}),
		flush:    flush,
	}
}

// Add records key and restarts the quiet period.
func (b *Batcher) Add(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.pending[key] = struct{}{}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.duration, b.fire)
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if b.stopped || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	b.pending = make(map[string]struct{})
	b.timer = nil
	b.mu.Unlock()

	sort.Strings(keys)
	b.flush(keys)
}

// Stop discards pending keys. Later calls to Add are ignored.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = make(map[string]struct{})
}
