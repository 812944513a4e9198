// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher publishes events when design-system files change on disk.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wingedpig/slidesmith/internal/events"
)

// DesignSystemWatcher watches the design-system directory and publishes
// design_system.changed for each burst of writes, plus design_system.assessed when
// the assessment brief is written.
type DesignSystemWatcher struct {
	bus       events.Bus
	root      string // project root; event paths are relative to it
	dir       string // absolute design-system directory
	brief     string // absolute brief path
	watcher   *fsnotify.Watcher
	batcher   *Batcher
	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Options configures a DesignSystemWatcher.
type Options struct {
	Root     string // project root
	Dir      string // design-system directory, relative to Root
	Brief    string // brief path, relative to Root
	Debounce time.Duration
}

// NewDesignSystemWatcher starts watching opts.Dir. The directory is created if missing.
func NewDesignSystemWatcher(bus events.Bus, opts Options) (*DesignSystemWatcher, error) {
	dir := filepath.Join(opts.Root, opts.Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create design-system dir: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &DesignSystemWatcher{
		bus:     bus,
		root:    opts.Root,
		dir:     dir,
		brief:   filepath.Join(opts.Root, opts.Brief),
		watcher: fsWatcher,
		closeCh: make(chan struct{}),
	}
	w.batcher = NewBatcher(opts.Debounce, w.publish)

	w.wg.Add(1)
	go w.processEvents()

	log.Printf("watcher: watching %s", dir)
	return w, nil
}

// Run blocks until ctx is done, then closes the watcher.
func (w *DesignSystemWatcher) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-w.closeCh:
	}
	return w.Close()
}

// Close stops the watcher and releases resources.
func (w *DesignSystemWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.batcher.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *DesignSystemWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *DesignSystemWatcher) handleEvent(event fsnotify.Event) {
	// Chmod alone does not change content
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	base := filepath.Base(event.Name)
	if base == "" || base[0] == '.' || base[len(base)-1] == '~' {
		return
	}
	w.batcher.Add(event.Name)
}

func (w *DesignSystemWatcher) publish(paths []string) {
	rel := make([]string, 0, len(paths))
	assessed := false
	for _, p := range paths {
		if p == w.brief {
			assessed = true
		}
		if r, err := filepath.Rel(w.root, p); err == nil {
			p = r
		}
		rel = append(rel, p)
	}

	ctx := context.Background()
	w.bus.Publish(ctx, events.Event{
		Type: events.DesignSystemChanged,
		Item: events.ItemDesignSystem,
		Payload: map[string]interface{}{
			"files": rel,
		},
	})

	if assessed {
		if _, err := os.Stat(w.brief); err != nil {
			return
		}
		briefRel, _ := filepath.Rel(w.root, w.brief)
		w.bus.Publish(ctx, events.Event{
			Type: events.DesignSystemAssessed,
			Item: events.ItemDesignSystem,
			Payload: map[string]interface{}{
				"brief": briefRel,
			},
		})
	}
}
