// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"
)

// Pool tracks live adapters so the server can report and stop them.
type Pool struct {
	mu       sync.Mutex
	adapters map[*Adapter]struct{}
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{adapters: make(map[*Adapter]struct{})}
}

// Track adds a started adapter. It is removed automatically when its process exits.
func (p *Pool) Track(a *Adapter) {
	p.mu.Lock()
	p.adapters[a] = struct{}{}
	p.mu.Unlock()

	go func() {
		a.Wait()
		p.remove(a)
	}()
}

func (p *Pool) remove(a *Adapter) {
	p.mu.Lock()
	delete(p.adapters, a)
	p.mu.Unlock()
}

// Len returns the number of tracked adapters.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.adapters)
}

// PIDs returns the sorted process ids of tracked adapters whose process still exists
// in the OS process table. Adapters whose process has vanished are dropped.
func (p *Pool) PIDs() []int {
	p.mu.Lock()
	tracked := make([]*Adapter, 0, len(p.adapters))
	for a := range p.adapters {
		tracked = append(tracked, a)
	}
	p.mu.Unlock()

	var pids []int
	for _, a := range tracked {
		proc, err := ps.FindProcess(a.PID())
		if err != nil {
			log.Printf("generator: process lookup for pid %d: %v", a.PID(), err)
			continue
		}
		if proc == nil {
			p.remove(a)
			continue
		}
		pids = append(pids, proc.Pid())
	}
	sort.Ints(pids)
	return pids
}

// Shutdown kills every tracked adapter in parallel and waits for the processes to exit
// or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	tracked := make([]*Adapter, 0, len(p.adapters))
	for a := range p.adapters {
		tracked = append(tracked, a)
	}
	p.mu.Unlock()

	if len(tracked) > 0 {
		log.Printf("generator: stopping %d running generator(s)", len(tracked))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range tracked {
		a := a
		g.Go(func() error {
			a.Kill()
			select {
			case <-a.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}
