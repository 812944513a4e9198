// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/slidesmith/internal/events"
)

func newTestWatcher(t *testing.T) (*DesignSystemWatcher, *events.MemoryBus, string) {
	t.Helper()
	root := t.TempDir()
	bus := events.NewMemoryBus(events.HistoryConfig{})
	t.Cleanup(func() { bus.Close() })

	w, err := NewDesignSystemWatcher(bus, Options{
		Root:     root,
		Dir:      "design-system",
		Brief:    "design-system/BRIEF.md",
		Debounce: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, bus, root
}

func TestDesignSystemWatcher_PublishesChanged(t *testing.T) {
	_, bus, root := newTestWatcher(t)

	dir := filepath.Join(root, "design-system")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokens.css"), []byte(":root{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.ts"), []byte("export {}"), 0644))

	var changed []events.Event
	assert.Eventually(t, func() bool {
		changed, _ = bus.History(events.Filter{Types: []string{events.DesignSystemChanged}})
		return len(changed) > 0
	}, 2*time.Second, 10*time.Millisecond)

	files := changed[0].Payload["files"].([]string)
	assert.Contains(t, files, filepath.Join("design-system", "tokens.css"))
	assert.Equal(t, events.ItemDesignSystem, changed[0].Item)

	assessed, _ := bus.History(events.Filter{Types: []string{events.DesignSystemAssessed}})
	assert.Empty(t, assessed)
}

func TestDesignSystemWatcher_PublishesAssessed(t *testing.T) {
	_, bus, root := newTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "design-system", "BRIEF.md"), []byte("# Brief"), 0644))

	assert.Eventually(t, func() bool {
		assessed, _ := bus.History(events.Filter{Types: []string{events.DesignSystemAssessed}})
		return len(assessed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assessed, _ := bus.History(events.Filter{Types: []string{events.DesignSystemAssessed}})
	assert.Equal(t, filepath.Join("design-system", "BRIEF.md"), assessed[0].Payload["brief"])
}

func TestDesignSystemWatcher_IgnoresHiddenFiles(t *testing.T) {
	_, bus, root := newTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "design-system", ".tokens.css.swp"), []byte("x"), 0644))
	time.Sleep(150 * time.Millisecond)

	changed, _ := bus.History(events.Filter{Types: []string{events.DesignSystemChanged}})
	assert.Empty(t, changed)
}

func TestDesignSystemWatcher_RunStopsOnCancel(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	// Close after Run is a no-op
	assert.NoError(t, w.Close())
}
